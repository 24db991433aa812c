package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/census-geocode/internal/cache"
)

// EnvPrefix prefixes every environment override, e.g. CENSUSGEO_OUTPUT_PATH.
const EnvPrefix = "CENSUSGEO"

// Config holds the full application configuration.
type Config struct {
	InputPath           string `yaml:"input_path" mapstructure:"input_path"`
	OutputPath          string `yaml:"output_path" mapstructure:"output_path"`
	AddressColumnName   string `yaml:"address_column_name" mapstructure:"address_column_name"`
	InputEncoding       string `yaml:"input_encoding" mapstructure:"input_encoding"`
	InputSheet          string `yaml:"input_sheet" mapstructure:"input_sheet"`
	BackoffMinutes      int    `yaml:"backoff_minutes" mapstructure:"backoff_minutes"`
	ProgressLogInterval int    `yaml:"progress_log_interval" mapstructure:"progress_log_interval"`
	CheckpointInterval  int    `yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
	ExpectedStateCode   string `yaml:"expected_state_code" mapstructure:"expected_state_code"`

	Census   CensusConfig   `yaml:"census" mapstructure:"census"`
	SelfTest SelfTestConfig `yaml:"selftest" mapstructure:"selftest"`
	Cache    cache.Config   `yaml:"cache" mapstructure:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CensusConfig configures the Census geocoder client.
type CensusConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Benchmark   string  `yaml:"benchmark" mapstructure:"benchmark"`
	Vintage     string  `yaml:"vintage" mapstructure:"vintage"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-request HTTP timeout.
func (c CensusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SelfTestConfig configures the connectivity check run before a batch.
type SelfTestConfig struct {
	Address       string `yaml:"address" mapstructure:"address"`
	ExpectedTract string `yaml:"expected_tract" mapstructure:"expected_tract"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Backoff returns the rate-limit sleep.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.BackoffMinutes) * time.Minute
}

// Load reads configuration from an optional .env file, an optional YAML file,
// and CENSUSGEO_* environment variables. When path is empty, config.yaml is
// looked up in the working directory.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal, including keys whose default is empty.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input_path", "")
	v.SetDefault("output_path", "")
	v.SetDefault("address_column_name", "Address")
	v.SetDefault("input_encoding", "")
	v.SetDefault("input_sheet", "")
	v.SetDefault("backoff_minutes", 30)
	v.SetDefault("progress_log_interval", 1000)
	v.SetDefault("checkpoint_interval", 10000)
	v.SetDefault("expected_state_code", "36")

	v.SetDefault("census.base_url", "https://geocoding.geo.census.gov/geocoder/geographies/onelineaddress")
	v.SetDefault("census.benchmark", "Public_AR_Census2010")
	v.SetDefault("census.vintage", "Census2010_Census2010")
	v.SetDefault("census.rate_limit", 50)
	v.SetDefault("census.timeout_secs", 30)

	v.SetDefault("selftest.address", "425 E 61 ST, New York, NY 10065 ")
	v.SetDefault("selftest.expected_tract", "010602")

	v.SetDefault("cache.driver", "")
	v.SetDefault("cache.dsn", "")
	v.SetDefault("cache.pool.max_conns", 4)
	v.SetDefault("cache.pool.min_conns", 1)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings a batch run depends on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.InputPath) == "":
		return eris.New("config: input_path is required")
	case strings.TrimSpace(c.OutputPath) == "":
		return eris.New("config: output_path is required")
	case c.AddressColumnName == "":
		return eris.New("config: address_column_name must not be empty")
	case c.BackoffMinutes <= 0:
		return eris.Errorf("config: backoff_minutes must be positive, got %d", c.BackoffMinutes)
	case c.ProgressLogInterval <= 0:
		return eris.Errorf("config: progress_log_interval must be positive, got %d", c.ProgressLogInterval)
	case c.CheckpointInterval <= 0:
		return eris.Errorf("config: checkpoint_interval must be positive, got %d", c.CheckpointInterval)
	case c.Census.RateLimit < 0:
		return eris.Errorf("config: census.rate_limit must not be negative, got %g", c.Census.RateLimit)
	case c.Census.TimeoutSecs <= 0:
		return eris.Errorf("config: census.timeout_secs must be positive, got %d", c.Census.TimeoutSecs)
	case c.Cache.Enabled() && c.Cache.DSN == "":
		return eris.Errorf("config: cache.dsn is required for driver %q", c.Cache.Driver)
	}
	return nil
}

// NewLogger builds a zap logger: JSON production output by default, or the
// development console encoder when Format is "console".
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}
