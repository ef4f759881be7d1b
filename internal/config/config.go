package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/uzhunt/internal/candidate"
	"github.com/FranksOps/uzhunt/internal/fingerprint"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. UZHUNT_WHOIS_TIMEOUT.
const EnvPrefix = "UZHUNT"

// Storage backends accepted by storage.backend.
const (
	BackendNone     = "none"
	BackendCSV      = "csv"
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Whois   WhoisConfig   `mapstructure:"whois"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	Search  SearchConfig  `mapstructure:"search"`
	Output  OutputConfig  `mapstructure:"output"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

type WhoisConfig struct {
	Server           string        `mapstructure:"server"`
	Port             int           `mapstructure:"port"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxResponseBytes int64         `mapstructure:"max_response_bytes"`
}

type VerifyConfig struct {
	Delay       time.Duration `mapstructure:"delay"`
	Concurrency int           `mapstructure:"concurrency"`
	TLD         string        `mapstructure:"tld"`
	Sanitize    bool          `mapstructure:"sanitize"`
}

type SearchConfig struct {
	MaxResults  int           `mapstructure:"max_results"`
	Delay       time.Duration `mapstructure:"delay"`
	Jitter      float64       `mapstructure:"jitter"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BaseURL     string        `mapstructure:"base_url"`
	Fingerprint string        `mapstructure:"fingerprint"`
	ProxiesFile string        `mapstructure:"proxies_file"`
	// Queries maps a source name to the search queries run for it.
	Queries map[string][]string `mapstructure:"queries"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	// DSN is a file path for csv, json and sqlite, a connection string for postgres.
	DSN string `mapstructure:"dsn"`
}

type MetricsConfig struct {
	// Port of the /metrics listener; 0 disables it.
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// New returns a viper instance carrying the defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("whois.server", "whois.cctld.uz")
	v.SetDefault("whois.port", 43)
	v.SetDefault("whois.timeout", 10*time.Second)
	v.SetDefault("whois.max_response_bytes", 1<<20)

	v.SetDefault("verify.delay", 500*time.Millisecond)
	v.SetDefault("verify.concurrency", 1)
	v.SetDefault("verify.tld", "uz")
	v.SetDefault("verify.sanitize", false)

	v.SetDefault("search.max_results", 50)
	v.SetDefault("search.delay", 2*time.Second)
	v.SetDefault("search.jitter", 0.5)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.base_url", "https://www.google.com/search")
	v.SetDefault("search.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("search.proxies_file", "")
	v.SetDefault("search.queries", map[string][]string{
		string(candidate.SourceTelegram):  {"site:t.me *uz"},
		string(candidate.SourceInstagram): {"site:instagram.com *uz"},
	})

	v.SetDefault("output.dir", "results")
	v.SetDefault("storage.backend", BackendNone)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("metrics.port", 0)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file at path into v and decodes the result.
// Values resolve as flags bound to v, then env, then file, then defaults.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Whois.Server) == "" {
		errs = append(errs, errors.New("whois.server must not be empty"))
	}
	if c.Whois.Port < 1 || c.Whois.Port > 65535 {
		errs = append(errs, fmt.Errorf("whois.port out of range: %d", c.Whois.Port))
	}
	if c.Whois.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("whois.timeout must be positive, got %s", c.Whois.Timeout))
	}
	if c.Whois.MaxResponseBytes < 0 {
		errs = append(errs, fmt.Errorf("whois.max_response_bytes cannot be negative: %d", c.Whois.MaxResponseBytes))
	}

	if c.Verify.Delay < 0 {
		errs = append(errs, fmt.Errorf("verify.delay cannot be negative: %s", c.Verify.Delay))
	}
	if c.Verify.Concurrency < 1 || c.Verify.Concurrency > 64 {
		errs = append(errs, fmt.Errorf("verify.concurrency must be between 1 and 64, got %d", c.Verify.Concurrency))
	}
	if tld := strings.Trim(c.Verify.TLD, "."); tld == "" || strings.ContainsAny(tld, " /") {
		errs = append(errs, fmt.Errorf("verify.tld is invalid: %q", c.Verify.TLD))
	}

	if c.Search.MaxResults < 1 || c.Search.MaxResults > 1000 {
		errs = append(errs, fmt.Errorf("search.max_results must be between 1 and 1000, got %d", c.Search.MaxResults))
	}
	if c.Search.Delay < 0 {
		errs = append(errs, fmt.Errorf("search.delay cannot be negative: %s", c.Search.Delay))
	}
	if c.Search.Jitter < 0 || c.Search.Jitter > 1 {
		errs = append(errs, fmt.Errorf("search.jitter must be between 0 and 1, got %v", c.Search.Jitter))
	}
	if _, err := fingerprint.ParseProfile(c.Search.Fingerprint); err != nil {
		errs = append(errs, fmt.Errorf("search.fingerprint: %w", err))
	}
	if _, err := c.SourceQueries(); err != nil {
		errs = append(errs, err)
	}

	switch c.Storage.Backend {
	case BackendNone:
	case BackendCSV, BackendJSON, BackendSQLite, BackendPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for backend %q", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SourceQueries returns the configured queries keyed by source.
func (c *Config) SourceQueries() (map[candidate.Source][]string, error) {
	out := make(map[candidate.Source][]string, len(c.Search.Queries))
	for name, queries := range c.Search.Queries {
		src, err := candidate.ParseSource(name)
		if err != nil {
			return nil, fmt.Errorf("search.queries: %w", err)
		}
		for _, q := range queries {
			if q = strings.TrimSpace(q); q != "" {
				out[src] = append(out[src], q)
			}
		}
	}
	return out, nil
}

// ParseLevel maps debug, info, warn or error to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid log.level %q: %w", s, err)
	}
	return l, nil
}
