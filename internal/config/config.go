package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Shapes   ShapesConfig   `yaml:"shapes" mapstructure:"shapes"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures the address geocoder.
type GeocodeConfig struct {
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	NominatimURL   string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CensusFallback bool    `yaml:"census_fallback" mapstructure:"census_fallback"`
	CachePath      string  `yaml:"cache_path" mapstructure:"cache_path"`
}

// PipelineConfig configures the enrichment run.
type PipelineConfig struct {
	DelayMS int `yaml:"delay_ms" mapstructure:"delay_ms"`
	Limit   int `yaml:"limit" mapstructure:"limit"`
}

// ShapesConfig points at the polygon datasets loaded on startup.
type ShapesConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Manifest string `yaml:"manifest" mapstructure:"manifest"`
}

// FetchConfig configures archive downloads.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	DestDir     string `yaml:"dest_dir" mapstructure:"dest_dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REGIONCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geocode.user_agent", "regioncheck/1.0")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.rate_per_sec", 1.0)
	v.SetDefault("pipeline.delay_ms", 1000)
	v.SetDefault("shapes.dir", "shape_files")
	v.SetDefault("fetch.timeout_secs", 600)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.dest_dir", "downloads")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields the given mode depends on.
func (c *Config) Validate(mode string) error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	geocode := func() {
		check(c.Geocode.UserAgent != "", "geocode.user_agent is required")
		check(c.Geocode.RatePerSec > 0, "geocode.rate_per_sec must be > 0")
	}

	switch mode {
	case "run":
		geocode()
		check(c.Pipeline.DelayMS >= 0, "pipeline.delay_ms must be >= 0")
		check(c.Pipeline.Limit >= 0, "pipeline.limit must be >= 0")
	case "serve":
		geocode()
		check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be between 1 and 65535")
	case "fetch":
		check(c.Fetch.MaxRetries > 0, "fetch.max_retries must be > 0")
		check(c.Fetch.DestDir != "", "fetch.dest_dir is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid %s configuration: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
