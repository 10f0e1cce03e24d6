package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultGeneratorURL   = "https://cv-generator-server.onrender.com/api/generate"
	DefaultMaxUploadBytes = 10 << 20
	DefaultSessionTTL     = 2 * time.Hour
)

// Config holds application configuration.
type Config struct {
	Port                  string        `yaml:"port" validate:"required"`
	Env                   string        `yaml:"env" validate:"oneof=dev local staging production"`
	LogLevel              string        `yaml:"log_level"`
	GeneratorURL          string        `yaml:"generator_url" validate:"required,url"`
	GeneratorTimeout      time.Duration `yaml:"generator_timeout" validate:"gte=0"`
	MaxUploadBytes        int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	SessionTTL            time.Duration `yaml:"session_ttl" validate:"gt=0"`
	GenerateRatePerMinute float64       `yaml:"generate_rate_per_minute" validate:"gte=0"`
	GenerateBurst         int           `yaml:"generate_burst" validate:"gte=0"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                  "8080",
		Env:                   "dev",
		LogLevel:              "info",
		GeneratorURL:          DefaultGeneratorURL,
		MaxUploadBytes:        DefaultMaxUploadBytes,
		SessionTTL:            DefaultSessionTTL,
		GenerateRatePerMinute: 6,
		GenerateBurst:         3,
	}
}

// Load reads configuration from .env files, an optional YAML file named by
// CONFIG_FILE and environment variables, in increasing precedence.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Env = normalizeEnv(cfg.Env)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.GeneratorURL = getEnv("GENERATOR_URL", cfg.GeneratorURL)

	var err error
	if cfg.GeneratorTimeout, err = getDuration("GENERATOR_TIMEOUT", cfg.GeneratorTimeout); err != nil {
		return err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return err
	}
	if raw := os.Getenv("MAX_UPLOAD_BYTES"); raw != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}
	if raw := os.Getenv("GENERATE_RATE_PER_MINUTE"); raw != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("GENERATE_RATE_PER_MINUTE: %w", err)
		}
		cfg.GenerateRatePerMinute = f
	}
	if raw := os.Getenv("GENERATE_BURST"); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("GENERATE_BURST: %w", err)
		}
		cfg.GenerateBurst = n
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getDuration accepts Go durations ("30s") or plain seconds ("30").
func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}
