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
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Policy    PolicyConfig    `yaml:"policy" mapstructure:"policy"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CacheConfig configures the cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, redis
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB     int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// MetricsConfig configures query metrics persistence.
type MetricsConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, none
	Path   string `yaml:"path" mapstructure:"path"`
}

// GoogleConfig holds Custom Search API settings.
type GoogleConfig struct {
	Key      string  `yaml:"key" mapstructure:"key"`
	CX       string  `yaml:"cx" mapstructure:"cx"`
	BaseURL  string  `yaml:"base_url" mapstructure:"base_url"`
	QPS      float64 `yaml:"qps" mapstructure:"qps"`
	MaxBurst int     `yaml:"max_burst" mapstructure:"max_burst"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
	ChatModel      string `yaml:"chat_model" mapstructure:"chat_model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// ExtractConfig configures page content extraction.
type ExtractConfig struct {
	TimeoutSecs   int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyBytes  int `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// SearchConfig configures the retrieval phase.
type SearchConfig struct {
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FastMode    bool `yaml:"fast_mode" mapstructure:"fast_mode"`
}

// PolicyConfig points at an optional policy override file.
type PolicyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("TAXQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "taxqa-cache.db")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("metrics.driver", "sqlite")
	v.SetDefault("metrics.path", "taxqa-metrics.db")
	v.SetDefault("google.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("google.qps", 5.0)
	v.SetDefault("google.max_burst", 5)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("extract.timeout_secs", 10)
	v.SetDefault("extract.max_body_bytes", 2<<20)
	v.SetDefault("extract.max_concurrent", 5)
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("search.fast_mode", false)
	v.SetDefault("server.port", 8080)
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

// Validate checks that the configuration is usable for the given mode.
// Modes: "query" (CLI pipeline commands), "serve" (HTTP server).
func (c *Config) Validate(mode string) error {
	var missing []string

	checkCommon := func() {
		if c.Google.Key == "" {
			missing = append(missing, "google.key is required")
		}
		if c.Google.CX == "" {
			missing = append(missing, "google.cx is required")
		}
		if c.OpenAI.Key == "" {
			missing = append(missing, "openai.key is required")
		}
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		switch c.Cache.Driver {
		case "sqlite":
			if c.Cache.Path == "" {
				missing = append(missing, "cache.path is required for sqlite driver")
			}
		case "postgres":
			if c.Cache.DatabaseURL == "" {
				missing = append(missing, "cache.database_url is required for postgres driver")
			}
		case "redis":
			if c.Cache.RedisAddr == "" {
				missing = append(missing, "cache.redis_addr is required for redis driver")
			}
		default:
			missing = append(missing, "cache.driver must be sqlite, postgres, or redis")
		}
		if c.Extract.MaxConcurrent < 1 || c.Extract.MaxConcurrent > 20 {
			missing = append(missing, "extract.max_concurrent must be between 1 and 20")
		}
	}

	switch mode {
	case "query":
		checkCommon()
	case "serve":
		checkCommon()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.New("config: unknown mode " + mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
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
