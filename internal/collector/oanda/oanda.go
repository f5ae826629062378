package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/metrics"
)

const (
	PracticeURL = "https://api-fxpractice.oanda.com"
	LiveURL     = "https://api-fxtrade.oanda.com"

	// MaxPageSize is the largest count the candles endpoint accepts.
	MaxPageSize = 5000

	// TokenEnv is the environment variable holding the API token.
	TokenEnv = "OANDA_ACCESS_TOKEN"
)

// validInstrument matches v20 instrument names like EUR_USD, XAU_USD, SPX500_USD
var validInstrument = regexp.MustCompile(`^[A-Z0-9]{2,10}_[A-Z]{3}$`)

// Config holds the v20 REST connection settings
type Config struct {
	BaseURL  string
	Token    string
	PageSize int
	Timeout  time.Duration
}

// Oanda implements collector.HistoryProvider over the v20 REST API
type Oanda struct {
	client   *http.Client
	baseURL  string
	token    string
	pageSize int
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// Option configures an Oanda collector
type Option func(*Oanda)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Oanda) { o.client = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Oanda) { o.logger = logger }
}

// WithMetrics records outbound request metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *Oanda) { o.metrics = reg }
}

// New creates a new Oanda collector
func New(cfg Config, opts ...Option) (*Oanda, error) {
	if cfg.Token == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "oanda token is required (set %s)", TokenEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = PracticeURL
	}
	if cfg.PageSize <= 0 || cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	o := &Oanda{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.client.Transport = metrics.InstrumentTransport(o.client.Transport, o.metrics, o.logger)

	return o, nil
}

func (o *Oanda) Name() string {
	return "oanda"
}

// FetchHistory pages through mid-price candles from start until end,
// dropping candles still forming.
func (o *Oanda) FetchHistory(ctx context.Context, instrument string, start, end time.Time, granularity core.Granularity) ([]core.Bar, error) {
	if !validInstrument.MatchString(instrument) {
		return nil, core.Errorf(core.ErrInvalidArgument, "invalid instrument %q", instrument)
	}
	if granularity.Duration() == 0 {
		return nil, core.Errorf(core.ErrInvalidArgument, "unsupported granularity %q", granularity)
	}
	if !end.After(start) {
		return nil, core.Errorf(core.ErrInvalidArgument, "end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	var bars []core.Bar
	from, includeFirst := start, true
	for page := 1; ; page++ {
		resp, err := o.fetchPage(ctx, instrument, granularity, from, includeFirst)
		if err != nil {
			return nil, err
		}

		last := from
		for _, c := range resp.Candles {
			if !c.Time.Before(end) {
				break
			}
			last = c.Time
			if !c.Complete {
				continue
			}
			bar, err := c.bar()
			if err != nil {
				return nil, core.WrapError(core.ErrCollectorFailed, err)
			}
			bars = append(bars, bar)
		}

		o.logger.Debug("candles page",
			zap.String("instrument", instrument),
			zap.Int("page", page),
			zap.Int("candles", len(resp.Candles)),
			zap.Time("from", from),
		)

		n := len(resp.Candles)
		if n < o.pageSize || !resp.Candles[n-1].Time.Before(end) || !last.After(from) {
			break
		}
		from, includeFirst = last, false
	}

	return bars, nil
}

func (o *Oanda) fetchPage(ctx context.Context, instrument string, granularity core.Granularity, from time.Time, includeFirst bool) (*candlesResponse, error) {
	q := url.Values{}
	q.Set("price", "M")
	q.Set("granularity", string(granularity))
	q.Set("from", from.UTC().Format(time.RFC3339Nano))
	q.Set("count", strconv.Itoa(o.pageSize))
	if !includeFirst {
		q.Set("includeFirst", "false")
	}
	endpoint := fmt.Sprintf("%s/v3/instruments/%s/candles?%s", o.baseURL, url.PathEscape(instrument), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) != nil || apiErr.ErrorMessage == "" {
			apiErr.ErrorMessage = http.StatusText(resp.StatusCode)
		}
		return nil, core.Errorf(core.ErrCollectorFailed, "oanda status %d: %s", resp.StatusCode, apiErr.ErrorMessage)
	}

	var result candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}
	return &result, nil
}

type candlesResponse struct {
	Instrument  string   `json:"instrument"`
	Granularity string   `json:"granularity"`
	Candles     []candle `json:"candles"`
}

type candle struct {
	Time     time.Time `json:"time"`
	Complete bool      `json:"complete"`
	Volume   int64     `json:"volume"`
	Mid      *ohlc     `json:"mid"`
}

type ohlc struct {
	O decimal.Decimal `json:"o"`
	H decimal.Decimal `json:"h"`
	L decimal.Decimal `json:"l"`
	C decimal.Decimal `json:"c"`
}

type errorResponse struct {
	ErrorMessage string `json:"errorMessage"`
}

func (c candle) bar() (core.Bar, error) {
	if c.Mid == nil {
		return core.Bar{}, fmt.Errorf("candle at %s has no mid prices", c.Time.Format(time.RFC3339))
	}
	return core.Bar{
		Time:   c.Time.UTC(),
		Open:   c.Mid.O.InexactFloat64(),
		High:   c.Mid.H.InexactFloat64(),
		Low:    c.Mid.L.InexactFloat64(),
		Close:  c.Mid.C.InexactFloat64(),
		Volume: c.Volume,
	}, nil
}
