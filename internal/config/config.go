package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. It is built once by Load and
// passed explicitly into every client and service constructor.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Registry   RegistryConfig   `yaml:"registry"`
	Generation GenerationConfig `yaml:"generation"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Server     ServerConfig     `yaml:"server"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Log        LogConfig        `yaml:"log"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RegistryConfig configures the NLIC registry client. The detail endpoint has
// its own timeout and retry budget because its payloads are much larger.
type RegistryConfig struct {
	OC                string        `yaml:"oc"`
	HistoryURL        string        `yaml:"history_url"`
	OldNewURL         string        `yaml:"oldnew_url"`
	PageSize          int           `yaml:"page_size"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	Backoff           time.Duration `yaml:"backoff"`
	DetailTimeout     time.Duration `yaml:"detail_timeout"`
	DetailMaxRetries  int           `yaml:"detail_max_retries"`
	DetailBackoff     time.Duration `yaml:"detail_backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

type GenerationConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

type EnrichmentConfig struct {
	BatchSize int `yaml:"batch_size"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// ScheduleConfig drives the daily ingest-then-enrich job. Cron uses the
// standard five-field format.
type ScheduleConfig struct {
	Cron    string `yaml:"cron"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with every tunable set
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			HistoryURL:        "https://www.law.go.kr/DRF/lawSearch.do",
			OldNewURL:         "https://www.law.go.kr/DRF/lawService.do",
			PageSize:          100,
			Timeout:           60 * time.Second,
			MaxRetries:        5,
			Backoff:           1 * time.Second,
			DetailTimeout:     230 * time.Second,
			DetailMaxRetries:  5,
			DetailBackoff:     2 * time.Second,
			RequestsPerSecond: 2,
		},
		Generation: GenerationConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "qwen2.5:7b",
			Timeout:     120 * time.Second,
			MaxAttempts: 2,
			RetryDelay:  1 * time.Second,
		},
		Enrichment: EnrichmentConfig{
			BatchSize: 10,
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Schedule: ScheduleConfig{
			Cron:    "0 2 * * *",
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the optional YAML file at path on top of the defaults, then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATABASE_URL":      &c.Database.URL,
		"NLIC_OC":           &c.Registry.OC,
		"NLIC_HISTORY_URL":  &c.Registry.HistoryURL,
		"NLIC_OLDNEW_URL":   &c.Registry.OldNewURL,
		"OLLAMA_BASE_URL":   &c.Generation.BaseURL,
		"OLLAMA_MODEL_NAME": &c.Generation.Model,
		"PORT":              &c.Server.Port,
		"LOG_LEVEL":         &c.Log.Level,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

// Validate checks the settings every entry point depends on. The database URL
// is checked by the commands that open a connection, since dry runs do not.
func (c *Config) Validate() error {
	var errs []error

	if c.Registry.HistoryURL == "" {
		errs = append(errs, errors.New("registry.history_url is required"))
	}
	if c.Registry.OldNewURL == "" {
		errs = append(errs, errors.New("registry.oldnew_url is required"))
	}
	if c.Registry.PageSize <= 0 {
		errs = append(errs, errors.New("registry.page_size must be positive"))
	}
	if c.Registry.MaxRetries <= 0 || c.Registry.DetailMaxRetries <= 0 {
		errs = append(errs, errors.New("registry retry budgets must be positive"))
	}
	if c.Generation.BaseURL == "" {
		errs = append(errs, errors.New("generation.base_url is required"))
	}
	if c.Generation.Model == "" {
		errs = append(errs, errors.New("generation.model is required"))
	}
	if c.Generation.MaxAttempts <= 0 {
		errs = append(errs, errors.New("generation.max_attempts must be positive"))
	}
	if c.Enrichment.BatchSize <= 0 {
		errs = append(errs, errors.New("enrichment.batch_size must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
