// Package config loads runtime settings from an optional YAML file, a .env
// file and the process environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pitchfeed/internal/models"
	"pitchfeed/internal/utils"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console | json; empty picks by level

	Storage     string `yaml:"storage"` // memory | postgres
	DatabaseURL string `yaml:"database_url"`

	Oracle              string        `yaml:"oracle"` // static | redis | alphavantage
	RedisAddr           string        `yaml:"redis_addr"`
	RedisMaxAge         time.Duration `yaml:"redis_max_age"`
	AlphaVantageKey     string        `yaml:"alphavantage_api_key"`
	AlphaVantageBaseURL string        `yaml:"alphavantage_base_url"`
	OracleTimeout       time.Duration `yaml:"oracle_timeout"`
	OracleRPS           float64       `yaml:"oracle_rps"`
	RenderCacheTTL      time.Duration `yaml:"render_cache_ttl"`

	MaxThesisLength  int `yaml:"max_thesis_length"`
	MaxCommentLength int `yaml:"max_comment_length"`

	Karma models.KarmaWeights `yaml:"karma"`
	Feed  FeedConfig          `yaml:"feed"`

	SeedDemo bool `yaml:"seed_demo"`
}

type FeedConfig struct {
	Limit         int              `yaml:"limit"`
	DiscoverySize int              `yaml:"discovery_size"`
	Rank          utils.RankConfig `yaml:"rank"`
}

func Default() Config {
	return Config{
		Port:             "8080",
		LogLevel:         "info",
		Storage:          "memory",
		Oracle:           "static",
		RedisAddr:        "localhost:6379",
		RedisMaxAge:      5 * time.Minute,
		OracleTimeout:    2 * time.Second,
		OracleRPS:        1,
		RenderCacheTTL:   10 * time.Minute,
		MaxThesisLength:  2000,
		MaxCommentLength: 2000,
		Karma:            models.DefaultKarmaWeights,
		Feed: FeedConfig{
			Limit:         20,
			DiscoverySize: 5,
			Rank:          utils.DefaultConfig,
		},
	}
}

// Load builds the configuration. PITCHFEED_CONFIG names an optional YAML file.
func Load() (Config, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, reading env vars from system")
	}

	cfg := Default()
	if path := os.Getenv("PITCHFEED_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}

	str("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("STORAGE", &c.Storage)
	str("DATABASE_URL", &c.DatabaseURL)
	str("ORACLE", &c.Oracle)
	str("REDIS_ADDR", &c.RedisAddr)
	dur("REDIS_MAX_AGE", &c.RedisMaxAge)
	str("ALPHAVANTAGE_API_KEY", &c.AlphaVantageKey)
	str("ALPHAVANTAGE_BASE_URL", &c.AlphaVantageBaseURL)
	dur("ORACLE_TIMEOUT", &c.OracleTimeout)
	dur("RENDER_CACHE_TTL", &c.RenderCacheTTL)
	num("MAX_THESIS_LENGTH", &c.MaxThesisLength)
	num("MAX_COMMENT_LENGTH", &c.MaxCommentLength)

	if v, ok := lookup("ORACLE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("ORACLE_RPS=%q is not a number", v))
		} else {
			c.OracleRPS = f
		}
	}
	if v, ok := lookup("SEED_DEMO"); ok {
		c.SeedDemo = utils.ParseBool(v, c.SeedDemo)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	switch c.Oracle {
	case "static", "redis":
	case "alphavantage":
		if c.AlphaVantageKey == "" {
			return fmt.Errorf("ALPHAVANTAGE_API_KEY is required for the alphavantage oracle")
		}
	default:
		return fmt.Errorf("unknown oracle %q", c.Oracle)
	}
	if c.MaxThesisLength <= 0 || c.MaxCommentLength <= 0 {
		return fmt.Errorf("length limits must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// ConsoleLog reports whether logs should be human readable. Without an
// explicit LOG_FORMAT, debug and trace levels get the console writer and
// everything else gets JSON.
func (c Config) ConsoleLog() bool {
	switch c.LogFormat {
	case "console":
		return true
	case "json":
		return false
	}
	return c.Level() <= zerolog.DebugLevel
}

// Level is the parsed LOG_LEVEL; Validate has already rejected bad values.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
