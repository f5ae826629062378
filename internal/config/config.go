package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/fxlab/internal/backtest"
	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/cost"
)

// TokenEnv is read for the Oanda token when the config leaves it empty.
const TokenEnv = "OANDA_ACCESS_TOKEN"

type Config struct {
	Oanda    OandaConfig    `mapstructure:"oanda"`
	Data     DataConfig     `mapstructure:"data"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// OandaConfig holds the v20 REST settings. Keep the token out of the file:
// use "${OANDA_ACCESS_TOKEN}" or leave it empty.
type OandaConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DataConfig selects where history comes from.
type DataConfig struct {
	Collector string `mapstructure:"collector"`  // "oanda" or "csvfile"
	CSVPrefix string `mapstructure:"csv_prefix"` // archive prefix of downloaded candles
}

// BacktestConfig holds the defaults of a single run.
type BacktestConfig struct {
	Instrument           string  `mapstructure:"instrument"`
	Granularity          string  `mapstructure:"granularity"`
	Horizon              int     `mapstructure:"horizon"`
	BuyThreshold         float64 `mapstructure:"buy_threshold"`
	SellThreshold        float64 `mapstructure:"sell_threshold"`
	StartingCapital      float64 `mapstructure:"starting_capital"`
	TransactionCosts     bool    `mapstructure:"transaction_costs"`
	Margin               bool    `mapstructure:"margin"`
	Leverage             int     `mapstructure:"leverage"`
	SellRule             string  `mapstructure:"sell_rule"`
	EntryPrice           string  `mapstructure:"entry_price"`
	Spread               float64 `mapstructure:"spread"`
	LiquidationThreshold float64 `mapstructure:"liquidation_threshold"`
	ReportPrefix         string  `mapstructure:"report_prefix"`
}

// SweepConfig holds the parameter grid.
type SweepConfig struct {
	MaxHorizon     int       `mapstructure:"max_horizon"`
	BuyThresholds  []float64 `mapstructure:"buy_thresholds"`
	SellThresholds []float64 `mapstructure:"sell_thresholds"`
	Workers        int       `mapstructure:"workers"`
	Top            int       `mapstructure:"top"`
}

// ChartConfig holds the labelled image settings.
type ChartConfig struct {
	Window  int     `mapstructure:"window"`
	Target  int     `mapstructure:"target"`
	BuyPct  float64 `mapstructure:"buy_pct"`
	SellPct float64 `mapstructure:"sell_pct"`
	Width   int     `mapstructure:"width"`  // pixels
	Height  int     `mapstructure:"height"` // pixels
	Prefix  string  `mapstructure:"prefix"`
	Workers int     `mapstructure:"workers"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"` // textfile collector snapshot written on exit
}

// Load reads configuration from file over Defaults. An empty path returns
// the defaults with environment fallbacks applied.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)

		// Support environment variable overrides
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		if err := v.ReadInConfig(); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
		}

		// Expand environment variables in string values
		for _, key := range v.AllKeys() {
			val := v.GetString(key)
			if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
				envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
				v.Set(key, os.Getenv(envKey))
			}
		}

		// Lists from the file replace the default lists instead of merging.
		if v.IsSet("sweep.buy_thresholds") {
			cfg.Sweep.BuyThresholds = nil
		}
		if v.IsSet("sweep.sell_thresholds") {
			cfg.Sweep.SellThresholds = nil
		}

		if err := v.Unmarshal(cfg); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
		}
	}

	if cfg.Oanda.Token == "" {
		cfg.Oanda.Token = os.Getenv(TokenEnv)
	}
	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Oanda: OandaConfig{
			BaseURL:  "https://api-fxpractice.oanda.com",
			PageSize: 5000,
			Timeout:  30 * time.Second,
		},
		Data: DataConfig{
			Collector: "oanda",
			CSVPrefix: "candles",
		},
		Backtest: BacktestConfig{
			Instrument:           "EUR_USD",
			Granularity:          string(core.GranularityH1),
			Horizon:              1,
			BuyThreshold:         0.002,
			SellThreshold:        0.002,
			StartingCapital:      1000,
			TransactionCosts:     true,
			Leverage:             cost.DefaultLeverage,
			SellRule:             string(backtest.SellWindowBased),
			EntryPrice:           string(backtest.EntryOpen),
			Spread:               cost.DefaultSpread,
			LiquidationThreshold: backtest.DefaultLiquidationThreshold,
			ReportPrefix:         "reports",
		},
		Sweep: SweepConfig{
			MaxHorizon:     24,
			BuyThresholds:  []float64{0.001, 0.002, 0.003, 0.004, 0.005},
			SellThresholds: []float64{0.001, 0.002, 0.003, 0.004, 0.005},
			Top:            20,
		},
		Chart: ChartConfig{
			Window:  15,
			Target:  3,
			BuyPct:  0.0015,
			SellPct: 0.0015,
			Width:   640,
			Height:  480,
			Prefix:  "charts",
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: "./data",
		},
	}
}

// Params converts the run defaults into engine parameters.
func (b BacktestConfig) Params() backtest.Params {
	return backtest.Params{
		BuyThreshold:    b.BuyThreshold,
		SellThreshold:   b.SellThreshold,
		StartingCapital: b.StartingCapital,
		Options: backtest.Options{
			UseTransactionCosts:  b.TransactionCosts,
			UseMargin:            b.Margin,
			Leverage:             b.Leverage,
			SellRule:             backtest.SellRule(b.SellRule),
			EntryPriceBasis:      backtest.EntryBasis(b.EntryPrice),
			Spread:               b.Spread,
			LiquidationThreshold: b.LiquidationThreshold,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Data.Collector {
	case "oanda":
		if c.Oanda.BaseURL == "" {
			return core.Errorf(core.ErrConfigMissing, "oanda base_url required")
		}
		if c.Oanda.PageSize < 1 || c.Oanda.PageSize > 5000 {
			return core.Errorf(core.ErrConfigInvalid, "oanda page_size must be between 1 and 5000, got %d", c.Oanda.PageSize)
		}
	case "csvfile":
	default:
		return core.Errorf(core.ErrConfigInvalid, "unknown collector %q", c.Data.Collector)
	}

	// Backtest validation
	if core.Granularity(c.Backtest.Granularity).Duration() == 0 {
		return core.Errorf(core.ErrConfigInvalid, "unknown granularity %q", c.Backtest.Granularity)
	}
	if c.Backtest.Horizon < 1 {
		return core.Errorf(core.ErrConfigInvalid, "horizon must be positive, got %d", c.Backtest.Horizon)
	}
	if err := c.Backtest.Params().Validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	// Sweep validation
	if c.Sweep.MaxHorizon < 0 {
		return core.Errorf(core.ErrConfigInvalid, "sweep max_horizon cannot be negative, got %d", c.Sweep.MaxHorizon)
	}
	if c.Sweep.Workers < 0 {
		return core.Errorf(core.ErrConfigInvalid, "sweep workers cannot be negative, got %d", c.Sweep.Workers)
	}

	// Chart validation
	if c.Chart.Window < 1 || c.Chart.Target < 1 {
		return core.Errorf(core.ErrConfigInvalid, "chart window and target must be positive")
	}
	if c.Chart.Width < 1 || c.Chart.Height < 1 {
		return core.Errorf(core.ErrConfigInvalid, "chart size must be positive, got %dx%d", c.Chart.Width, c.Chart.Height)
	}

	// Storage validation
	switch c.Storage.Type {
	case "localfs":
		if c.Storage.Path == "" {
			return core.Errorf(core.ErrConfigMissing, "storage path required for localfs")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.Errorf(core.ErrConfigMissing, "s3 bucket required for s3 storage")
		}
	default:
		return core.Errorf(core.ErrConfigInvalid, "unknown storage type %q", c.Storage.Type)
	}

	return nil
}
