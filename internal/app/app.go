package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/newthinker/fxlab/internal/backtest"
	"github.com/newthinker/fxlab/internal/chart"
	"github.com/newthinker/fxlab/internal/collector"
	"github.com/newthinker/fxlab/internal/collector/csvfile"
	"github.com/newthinker/fxlab/internal/collector/oanda"
	"github.com/newthinker/fxlab/internal/config"
	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/metrics"
	"github.com/newthinker/fxlab/internal/report"
	"github.com/newthinker/fxlab/internal/storage/archive"
)

// App wires configuration into the collaborators a command needs
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Registry
	store      archive.Storage
	collectors *collector.Registry
}

// Option configures an App
type Option func(*App)

// WithStorage replaces the configured archive storage.
func WithStorage(s archive.Storage) Option {
	return func(a *App) { a.store = s }
}

// WithProvider registers an extra history provider.
func WithProvider(p collector.HistoryProvider) Option {
	return func(a *App) { a.collectors.Register(p) }
}

// New creates an App from a validated config
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
	}
	if cfg.Metrics.Enabled || cfg.Metrics.File != "" {
		a.metrics = metrics.NewRegistry()
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		store, err := openStorage(cfg.Storage)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	if _, ok := a.collectors.Get("csvfile"); !ok {
		a.collectors.Register(csvfile.NewProvider(a.store, cfg.Data.CSVPrefix))
	}
	if _, ok := a.collectors.Get("oanda"); !ok && cfg.Oanda.Token != "" {
		o, err := oanda.New(oanda.Config{
			BaseURL:  cfg.Oanda.BaseURL,
			Token:    cfg.Oanda.Token,
			PageSize: cfg.Oanda.PageSize,
			Timeout:  cfg.Oanda.Timeout,
		}, oanda.WithLogger(logger), oanda.WithMetrics(a.metrics))
		if err != nil {
			return nil, err
		}
		a.collectors.Register(o)
	}

	logger.Debug("app ready",
		zap.Strings("collectors", a.collectors.Names()),
		zap.String("storage", cfg.Storage.Type),
	)
	return a, nil
}

func openStorage(cfg config.StorageConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	case "localfs", "":
		return archive.NewLocalFS(cfg.Path)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown storage type %q", cfg.Type)
	}
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Storage returns the archive storage.
func (a *App) Storage() archive.Storage { return a.store }

// Metrics returns the metrics registry, nil when metrics are off.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Provider returns the named collector, or the configured one when name is
// empty, counting the bars it returns.
func (a *App) Provider(name string) (collector.HistoryProvider, error) {
	if name == "" {
		name = a.cfg.Data.Collector
	}
	p, err := a.collectors.MustGet(name)
	if err != nil {
		if name == "oanda" {
			return nil, core.Errorf(core.ErrConfigMissing, "oanda collector needs a token (set %s)", config.TokenEnv)
		}
		return nil, err
	}
	return collector.Counted(p, a.metrics), nil
}

// Backtester returns a Backtester over the named collector.
func (a *App) Backtester(collectorName string) (*backtest.Backtester, error) {
	p, err := a.Provider(collectorName)
	if err != nil {
		return nil, err
	}
	return backtest.New(p,
		backtest.WithLogger(a.logger),
		backtest.WithMetrics(a.metrics),
	), nil
}

// Archive stores r as a JSON document and returns its path.
func (a *App) Archive(ctx context.Context, r *backtest.Result) (string, error) {
	j := report.JSON{Store: a.store, Prefix: a.cfg.Backtest.ReportPrefix}
	return j.Save(ctx, r)
}

// Download fetches candles through the named collector and saves them as
// CSV under the configured prefix.
func (a *App) Download(ctx context.Context, collectorName, instrument string, granularity core.Granularity, start, end time.Time) (string, int, error) {
	if collectorName == "" {
		collectorName = "oanda"
	}
	p, err := a.Provider(collectorName)
	if err != nil {
		return "", 0, err
	}

	bars, err := p.FetchHistory(ctx, instrument, start, end, granularity)
	if err != nil {
		return "", 0, err
	}
	if len(bars) == 0 {
		return "", 0, core.Errorf(core.ErrNoData, "no candles for %s %s", instrument, granularity)
	}

	path, err := csvfile.Save(ctx, a.store, a.cfg.Data.CSVPrefix, instrument, granularity, start, end, bars)
	if err != nil {
		return "", 0, err
	}
	a.logger.Info("candles saved",
		zap.String("instrument", instrument),
		zap.String("granularity", string(granularity)),
		zap.Int("bars", len(bars)),
		zap.String("path", path),
	)
	return path, len(bars), nil
}

// Labeler returns a chart labeler storing images under
// <chart prefix>/<instrument>.
func (a *App) Labeler(instrument string) *chart.Labeler {
	c := a.cfg.Chart
	style := chart.DefaultStyle()
	style.Width = vg.Length(c.Width) * vg.Inch / 96
	style.Height = vg.Length(c.Height) * vg.Inch / 96

	return &chart.Labeler{
		Store:   a.store,
		Prefix:  c.Prefix + "/" + instrument,
		Window:  c.Window,
		Target:  c.Target,
		BuyPct:  c.BuyPct,
		SellPct: c.SellPct,
		Style:   style,
		Workers: c.Workers,
		Metrics: a.metrics,
		Logger:  a.logger,
	}
}

// FlushMetrics writes the metrics snapshot when a file is configured.
func (a *App) FlushMetrics() error {
	if a.metrics == nil || a.cfg.Metrics.File == "" {
		return nil
	}
	return a.metrics.WriteTextfile(a.cfg.Metrics.File)
}
