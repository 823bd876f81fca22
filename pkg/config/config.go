package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"FXBias/internal/domain/models"
	"FXBias/pkg/retry"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"6m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            *bool         `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"100"`
		MaxAgeDays int    `yaml:"max_age_days" default:"7"`
	} `yaml:"log"`
	Metrics struct {
		Enabled       *bool         `yaml:"enabled" default:"true"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"5s"`
	} `yaml:"metrics"`
	Currencies []models.Currency `yaml:"currencies" validate:"dive"`
	Sources    struct {
		Defaults    map[string][]string            `yaml:"defaults"`
		PerCurrency map[string]map[string][]string `yaml:"per_currency"`
	} `yaml:"sources"`
	Analysis struct {
		CacheTTL         time.Duration `yaml:"cache_ttl" default:"30m"`
		UseRiskModifier  bool          `yaml:"use_risk_modifier"`
		UseScoreModifier bool          `yaml:"use_score_modifier"`
		RecapStyle       string        `yaml:"recap_style" default:"default" validate:"oneof=default simplified"`
		Timeout          time.Duration `yaml:"timeout" default:"5m"`
		AnalyzeRetry     retry.Policy  `yaml:"analyze_retry"`
		RecapRetry       retry.Policy  `yaml:"recap_retry"`
	} `yaml:"analysis"`
	ScoringService struct {
		URL     string        `yaml:"url" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"90s"`
	} `yaml:"scoring_service"`
	MarketData struct {
		APIKey            string        `yaml:"api_key"`
		BaseURL           string        `yaml:"base_url" default:"https://www.alphavantage.co/query" validate:"url"`
		RequestsPerMinute int           `yaml:"requests_per_minute" default:"5" validate:"gte=1"`
		Timeout           time.Duration `yaml:"timeout" default:"15s"`
		Symbols           struct {
			SPX         string `yaml:"spx" default:"SPY"`
			VIX         string `yaml:"vix" default:"VIXY"`
			AUDJPYBase  string `yaml:"audjpy_base" default:"AUD"`
			AUDJPYQuote string `yaml:"audjpy_quote" default:"JPY"`
			US10Y       string `yaml:"us10y" default:"10year"`
		} `yaml:"symbols"`
	} `yaml:"market_data"`
	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		StateKey     string        `yaml:"state_key" default:"fxbias:state"`
		CachePrefix  string        `yaml:"cache_prefix" default:"fxbias:cache:"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fxbias"`
		Table            string        `yaml:"table" default:"bias_snapshots"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"fxbias.analysis"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		// nil means true
		AutoCreateTopic *bool `yaml:"auto_create_topic"`

		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// DefaultCurrencies is used when the config lists none.
var DefaultCurrencies = []models.Currency{
	{Code: "USD", Flag: "🇺🇸"},
	{Code: "EUR", Flag: "🇪🇺"},
	{Code: "GBP", Flag: "🇬🇧"},
	{Code: "JPY", Flag: "🇯🇵"},
	{Code: "AUD", Flag: "🇦🇺"},
	{Code: "NZD", Flag: "🇳🇿"},
	{Code: "CAD", Flag: "🇨🇦"},
	{Code: "CHF", Flag: "🇨🇭"},
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv()
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("SCORING_SERVICE_URL"); v != "" {
		c.ScoringService.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
}

func (c *Config) finish() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if len(c.Currencies) == 0 {
		c.Currencies = append([]models.Currency(nil), DefaultCurrencies...)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Currencies))
	for _, cur := range c.Currencies {
		if len(cur.Code) != 3 {
			return fmt.Errorf("currency code %q must have 3 letters", cur.Code)
		}
		if seen[cur.Code] {
			return fmt.Errorf("currency %s listed twice", cur.Code)
		}
		seen[cur.Code] = true
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// CurrencyCodes returns the configured codes in order.
func (c *Config) CurrencyCodes() []string {
	codes := make([]string, len(c.Currencies))
	for i, cur := range c.Currencies {
		codes[i] = cur.Code
	}
	return codes
}

// SourcesFor returns the source URLs configured for an indicator of a
// currency. A per-currency entry replaces the default.
func (c *Config) SourcesFor(currency string, ind models.Indicator) []string {
	if per, ok := c.Sources.PerCurrency[currency]; ok {
		if urls, ok := per[string(ind)]; ok {
			return urls
		}
	}
	return c.Sources.Defaults[string(ind)]
}

// Enabled reports a pointer toggle, treating nil as on.
func Enabled(b *bool) bool { return b == nil || *b }
