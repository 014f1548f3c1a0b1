package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents application configuration loaded from environment
// variables, with an optional TOML overlay for provider settings.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StoragePath    string
	StorageBaseURL string
	GeoIPDBPath    string

	RenderAccessKey   string
	RenderSecretKey   string
	RenderBaseURL     string
	RenderModel       string
	RenderAspectRatio string

	ComposeBaseURL string
	ComposeAPIKey  string

	GeminiAPIKey string
	GeminiModel  string

	StylePrefix        string
	WorkerPollInterval time.Duration
	WorkerBackupBatch  int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
	DefaultLocale    string
}

// providerOverlay is the optional TOML file named by PROVIDER_SETTINGS_PATH.
// Values set there override the environment, which lets operators rotate
// provider endpoints and models without touching the deployment env.
type providerOverlay struct {
	Render struct {
		AccessKey   string `toml:"access_key"`
		SecretKey   string `toml:"secret_key"`
		BaseURL     string `toml:"base_url"`
		Model       string `toml:"model"`
		AspectRatio string `toml:"aspect_ratio"`
	} `toml:"render"`
	Compose struct {
		BaseURL string `toml:"base_url"`
		APIKey  string `toml:"api_key"`
	} `toml:"compose"`
	Gemini struct {
		APIKey string `toml:"api_key"`
		Model  string `toml:"model"`
	} `toml:"gemini"`
}

// LoadConfig loads configuration from environment variables, applies
// defaults, and merges the provider overlay file when one is configured.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		RenderAccessKey:    os.Getenv("RENDER_ACCESS_KEY"),
		RenderSecretKey:    os.Getenv("RENDER_SECRET_KEY"),
		RenderBaseURL:      os.Getenv("RENDER_BASE_URL"),
		RenderModel:        os.Getenv("RENDER_MODEL"),
		RenderAspectRatio:  getEnv("RENDER_ASPECT_RATIO", "16:9"),
		ComposeBaseURL:     os.Getenv("COMPOSE_BASE_URL"),
		ComposeAPIKey:      os.Getenv("COMPOSE_API_KEY"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		StylePrefix:        os.Getenv("STYLE_PREFIX"),
		WorkerPollInterval: time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 3)),
		WorkerBackupBatch:  getEnvInt("WORKER_BACKUP_BATCH", 5),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AllowedOrigins:     splitCSV(os.Getenv("ALLOWED_ORIGINS")),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if path := os.Getenv("PROVIDER_SETTINGS_PATH"); path != "" {
		if err := cfg.applyOverlay(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) applyOverlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("provider settings file %s does not exist", path)
		}
		return fmt.Errorf("read provider settings: %w", err)
	}
	var overlay providerOverlay
	if err := toml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse provider settings: %w", err)
	}
	setIfPresent(&c.RenderAccessKey, overlay.Render.AccessKey)
	setIfPresent(&c.RenderSecretKey, overlay.Render.SecretKey)
	setIfPresent(&c.RenderBaseURL, overlay.Render.BaseURL)
	setIfPresent(&c.RenderModel, overlay.Render.Model)
	setIfPresent(&c.RenderAspectRatio, overlay.Render.AspectRatio)
	setIfPresent(&c.ComposeBaseURL, overlay.Compose.BaseURL)
	setIfPresent(&c.ComposeAPIKey, overlay.Compose.APIKey)
	setIfPresent(&c.GeminiAPIKey, overlay.Gemini.APIKey)
	setIfPresent(&c.GeminiModel, overlay.Gemini.Model)
	return nil
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
