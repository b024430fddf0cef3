package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Raffle        RaffleConfig        `yaml:"raffle"`
	Randomness    RandomnessConfig    `yaml:"randomness"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. NKeySeed is optional; when set the
// connection authenticates with the seed's NKey.
type NATSConfig struct {
	URL      string `yaml:"url"`
	NKeySeed string `yaml:"nkey_seed"`
}

// RaffleConfig holds the raffle round parameters. EntryFee is in minor units
// and is fixed for the lifetime of the process; the core does not interpret
// units beyond "non-negative amount" and "non-negative duration".
type RaffleConfig struct {
	EntryFee     int64         `yaml:"entry_fee"`
	DrawInterval time.Duration `yaml:"draw_interval"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PotAccount   string        `yaml:"pot_account"`
}

// RandomnessConfig holds connection parameters for the randomness provider.
// CallbackBudget is passed through opaquely for providers that charge for
// fulfillment delivery.
type RandomnessConfig struct {
	RequestSubject   string `yaml:"request_subject"`
	FulfilledSubject string `yaml:"fulfilled_subject"`
	CallbackBudget   int64  `yaml:"callback_budget"`
	DevFulfiller     bool   `yaml:"dev_fulfiller"`
}

// HTTPConfig holds the HTTP API listener configuration.
type HTTPConfig struct {
	Addr       string  `yaml:"addr"`
	EnterRate  float64 `yaml:"enter_rate"`
	EnterBurst int     `yaml:"enter_burst"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress  string  `yaml:"metrics_address"`
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	OTLPInsecure    bool    `yaml:"otlp_insecure"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"`
	Environment     string  `yaml:"environment"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_NKEY_SEED"); v != "" {
		cfg.NATS.NKeySeed = v
	}
	if v := os.Getenv("RAFFLE_ENTRY_FEE"); v != "" {
		fee, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_ENTRY_FEE value: %v", err)
		}
		cfg.Raffle.EntryFee = fee
	}
	if v := os.Getenv("RAFFLE_DRAW_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_DRAW_INTERVAL value: %v", err)
		}
		cfg.Raffle.DrawInterval = d
	}
	if v := os.Getenv("RAFFLE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_POLL_INTERVAL value: %v", err)
		}
		cfg.Raffle.PollInterval = d
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("RANDOMNESS_DEV_FULFILLER"); v != "" {
		cfg.Randomness.DevFulfiller = v == "true"
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Observability.OTLPEndpoint = v
	}
	if v := os.Getenv("OTLP_INSECURE"); v != "" {
		cfg.Observability.OTLPInsecure = v == "true"
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.NATS.URL = os.Getenv("NATS_URL")
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}
	cfg.NATS.NKeySeed = os.Getenv("NATS_NKEY_SEED")

	if v := os.Getenv("RAFFLE_ENTRY_FEE"); v != "" {
		fee, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_ENTRY_FEE value: %v", err)
		}
		cfg.Raffle.EntryFee = fee
	}
	if v := os.Getenv("RAFFLE_DRAW_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_DRAW_INTERVAL value: %v", err)
		}
		cfg.Raffle.DrawInterval = d
	}
	if v := os.Getenv("RAFFLE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_POLL_INTERVAL value: %v", err)
		}
		cfg.Raffle.PollInterval = d
	}

	cfg.HTTP.Addr = os.Getenv("HTTP_ADDR")
	cfg.Randomness.DevFulfiller = os.Getenv("RANDOMNESS_DEV_FULFILLER") == "true"
	cfg.Observability.MetricsAddress = os.Getenv("METRICS_ADDRESS") // optional; empty disables metrics
	cfg.Observability.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")     // optional; empty disables tracing
	cfg.Observability.OTLPInsecure = os.Getenv("OTLP_INSECURE") == "true"
	cfg.Observability.Environment = os.Getenv("ENV")

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in the settings that have a sensible fallback.
func applyDefaults(cfg *Config) {
	if cfg.Raffle.EntryFee <= 0 {
		cfg.Raffle.EntryFee = 100
	}
	if cfg.Raffle.DrawInterval <= 0 {
		cfg.Raffle.DrawInterval = time.Hour
	}
	if cfg.Raffle.PollInterval <= 0 {
		cfg.Raffle.PollInterval = 30 * time.Second
	}
	if cfg.Raffle.PotAccount == "" {
		cfg.Raffle.PotAccount = "raffle:pot"
	}
	if cfg.Randomness.RequestSubject == "" {
		cfg.Randomness.RequestSubject = "randomness.request.v1"
	}
	if cfg.Randomness.FulfilledSubject == "" {
		cfg.Randomness.FulfilledSubject = "randomness.fulfilled.v1"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.EnterRate <= 0 {
		cfg.HTTP.EnterRate = 5
	}
	if cfg.HTTP.EnterBurst <= 0 {
		cfg.HTTP.EnterBurst = 10
	}
	if cfg.Observability.TraceSampleRate <= 0 {
		cfg.Observability.TraceSampleRate = 0.1
	}
	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = "development"
	}
}
