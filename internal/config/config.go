package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"ai-dslr-studio/internal/photoshoot"
)

type PortfolioBackend string

const (
	PortfolioFile  PortfolioBackend = "file"
	PortfolioRedis PortfolioBackend = "redis"
)

// env mirrors the process environment; Load turns it into Config.
type env struct {
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	SeedreamAPIKey string `envconfig:"SEEDREAM_API_KEY"`

	GeminiModel      string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash-image"`
	GeminiBaseURL    string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiAPIVersion string `envconfig:"GEMINI_API_VERSION" default:"v1beta"`
	GeminiRetries    int    `envconfig:"GEMINI_RETRIES" default:"0"`

	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	Debug      bool   `envconfig:"DEBUG" default:"false"`
	PreferIPv4 bool   `envconfig:"PREFER_IPV4" default:"true"`

	RequestTimeoutSeconds int `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"600"`
	HTTPTimeoutSeconds    int `envconfig:"HTTP_TIMEOUT_SECONDS" default:"180"`
	MaxConcurrent         int `envconfig:"MAX_CONCURRENT" default:"4"`
	BatchConcurrency      int `envconfig:"BATCH_CONCURRENCY" default:"1"`
	BatchMinIntervalMS    int `envconfig:"BATCH_MIN_INTERVAL_MS" default:"0"`
	MediaGroupDebounceMS  int `envconfig:"MEDIA_GROUP_DEBOUNCE_MS" default:"1200"`
	SessionTTLMinutes     int `envconfig:"SESSION_TTL_MINUTES" default:"60"`

	PortfolioBackend string `envconfig:"PORTFOLIO_BACKEND" default:"file"`
	PortfolioPath    string `envconfig:"PORTFOLIO_PATH" default:"data/portfolio.json"`
	RedisAddr        string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisUsername    string `envconfig:"REDIS_USERNAME"`
	RedisPassword    string `envconfig:"REDIS_PASSWORD"`
	RedisDB          int    `envconfig:"REDIS_DB" default:"0"`
	RedisUseTLS      bool   `envconfig:"REDIS_USE_TLS" default:"false"`
	RedisKeyPrefix   string `envconfig:"REDIS_KEY_PREFIX" default:"aidslr"`

	WebAddr string `envconfig:"WEB_ADDR" default:":8080"`
}

type Config struct {
	TelegramToken string
	Credentials   map[photoshoot.Backend]string

	GeminiModel      string
	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiRetries    int

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	MaxConcurrent      int
	BatchConcurrency   int
	BatchMinInterval   time.Duration
	MediaGroupDebounce time.Duration
	SessionTTL         time.Duration

	PortfolioBackend PortfolioBackend
	PortfolioPath    string
	Redis            RedisConfig

	WebAddr string
}

type RedisConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	UseTLS    bool
	KeyPrefix string
}

// Load reads the environment. Backend credentials are optional here; each
// backend is checked when it is first used.
func Load() (Config, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg := Config{
		TelegramToken: strings.TrimSpace(e.TelegramToken),
		Credentials: map[photoshoot.Backend]string{
			photoshoot.BackendGemini:   strings.TrimSpace(e.GeminiAPIKey),
			photoshoot.BackendSeedream: strings.TrimSpace(e.SeedreamAPIKey),
		},
		GeminiModel:        strings.TrimSpace(e.GeminiModel),
		GeminiBaseURL:      strings.TrimRight(strings.TrimSpace(e.GeminiBaseURL), "/"),
		GeminiAPIVersion:   strings.TrimSpace(e.GeminiAPIVersion),
		GeminiRetries:      e.GeminiRetries,
		LogLevel:           strings.ToLower(strings.TrimSpace(e.LogLevel)),
		Debug:              e.Debug,
		PreferIPv4:         e.PreferIPv4,
		RequestTimeout:     time.Duration(e.RequestTimeoutSeconds) * time.Second,
		HTTPTimeout:        time.Duration(e.HTTPTimeoutSeconds) * time.Second,
		MaxConcurrent:      e.MaxConcurrent,
		BatchConcurrency:   e.BatchConcurrency,
		BatchMinInterval:   time.Duration(e.BatchMinIntervalMS) * time.Millisecond,
		MediaGroupDebounce: time.Duration(e.MediaGroupDebounceMS) * time.Millisecond,
		SessionTTL:         time.Duration(e.SessionTTLMinutes) * time.Minute,
		PortfolioBackend:   PortfolioBackend(strings.ToLower(strings.TrimSpace(e.PortfolioBackend))),
		PortfolioPath:      strings.TrimSpace(e.PortfolioPath),
		Redis: RedisConfig{
			Addr:      strings.TrimSpace(e.RedisAddr),
			Username:  strings.TrimSpace(e.RedisUsername),
			Password:  e.RedisPassword,
			DB:        e.RedisDB,
			UseTLS:    e.RedisUseTLS,
			KeyPrefix: strings.TrimSpace(e.RedisKeyPrefix),
		},
		WebAddr: strings.TrimSpace(e.WebAddr),
	}

	switch cfg.PortfolioBackend {
	case PortfolioFile, PortfolioRedis:
	default:
		return Config{}, fmt.Errorf("PORTFOLIO_BACKEND must be %q or %q, got %q", PortfolioFile, PortfolioRedis, e.PortfolioBackend)
	}

	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.5-flash-image"
	}
	if cfg.GeminiRetries < 0 {
		cfg.GeminiRetries = 0
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}
	if cfg.BatchMinInterval < 0 {
		cfg.BatchMinInterval = 0
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 600 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.PortfolioPath == "" {
		cfg.PortfolioPath = "data/portfolio.json"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "aidslr"
	}
	if cfg.WebAddr == "" {
		cfg.WebAddr = ":8080"
	}

	return cfg, nil
}

// RequireTelegram is the extra check the bot binary needs.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// ConfiguredBackends lists backends with a credential, in catalog order.
func (c Config) ConfiguredBackends() []photoshoot.Backend {
	var out []photoshoot.Backend
	for _, backend := range photoshoot.Backends() {
		if c.Credentials[backend] != "" {
			out = append(out, backend)
		}
	}
	return out
}
