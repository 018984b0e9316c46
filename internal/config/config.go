package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML duration
// strings like "30s" or "5m", or from plain integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
	Emitter    EmitterConfig    `yaml:"emitter"`
	Feed       FeedConfig       `yaml:"feed"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type EmitterConfig struct {
	// AllowMissingPrice permits fallback alerts when no price sample
	// resolves. Left unset, the emitter requires a price and marks
	// such transactions unresolvable instead.
	AllowMissingPrice bool     `yaml:"allow_missing_price"`
	LookupTimeout     Duration `yaml:"lookup_timeout"`
	RedriveInterval   Duration `yaml:"redrive_interval"`
}

type QuotePollerConfig struct {
	Enabled     bool     `yaml:"enabled"`
	BaseURL     string   `yaml:"base_url"`
	Interval    Duration `yaml:"interval"`
	RatePerSec  float64  `yaml:"rate_per_sec"`
	Burst       int      `yaml:"burst"`
	Tokens      []string `yaml:"tokens"`
	HTTPTimeout Duration `yaml:"http_timeout"`
}

type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type SentimentPollerConfig struct {
	Enabled     bool     `yaml:"enabled"`
	BaseURL     string   `yaml:"base_url"`
	Interval    Duration `yaml:"interval"`
	Tokens      []string `yaml:"tokens"`
	HTTPTimeout Duration `yaml:"http_timeout"`
}

type FeedConfig struct {
	Quotes    QuotePollerConfig     `yaml:"quotes"`
	Stream    StreamConfig          `yaml:"stream"`
	Sentiment SentimentPollerConfig `yaml:"sentiment"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads and parses a YAML config file, then fills defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with all defaults applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(15 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "whale.alerts"
	}
	if c.Emitter.LookupTimeout == 0 {
		c.Emitter.LookupTimeout = Duration(2 * time.Second)
	}
	if c.Feed.Quotes.Interval == 0 {
		c.Feed.Quotes.Interval = Duration(30 * time.Second)
	}
	if c.Feed.Quotes.RatePerSec == 0 {
		c.Feed.Quotes.RatePerSec = 5
	}
	if c.Feed.Quotes.Burst == 0 {
		c.Feed.Quotes.Burst = 10
	}
	if c.Feed.Quotes.HTTPTimeout == 0 {
		c.Feed.Quotes.HTTPTimeout = Duration(10 * time.Second)
	}
	if c.Feed.Sentiment.Interval == 0 {
		c.Feed.Sentiment.Interval = Duration(5 * time.Minute)
	}
	if c.Feed.Sentiment.HTTPTimeout == 0 {
		c.Feed.Sentiment.HTTPTimeout = Duration(10 * time.Second)
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}
