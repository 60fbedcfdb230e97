package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	API       APIConfig
	Auth      AuthConfig
	Browse    BrowseConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Exports   ExportConfig
	Stream    StreamConfig
}

// APIConfig describes the remote timetable service.
type APIConfig struct {
	BaseURL string
	Prefix  string
	Timeout time.Duration
}

// AuthConfig points at the bearer credential written by the login flow.
type AuthConfig struct {
	Token     string
	TokenFile string
}

// BrowseConfig tunes paging and reference-list search.
type BrowseConfig struct {
	PerPage          int
	ReferencePerPage int
	SearchDebounce   time.Duration
	DialogIdleTTL    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig bounds how fast a UI shell may drive the local API.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// StreamConfig controls the websocket snapshot stream.
type StreamConfig struct {
	Enabled      bool
	PingInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// ExportConfig toggles page export endpoints.
type ExportConfig struct {
	Enabled bool
	Title   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.API = APIConfig{
		BaseURL: strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		Prefix:  normalizePrefix(v.GetString("API_PREFIX")),
		Timeout: parseDuration(v.GetString("HTTP_TIMEOUT"), 15*time.Second),
	}

	cfg.Auth = AuthConfig{
		Token:     strings.TrimSpace(v.GetString("AUTH_TOKEN")),
		TokenFile: strings.TrimSpace(v.GetString("AUTH_TOKEN_FILE")),
	}

	cfg.Browse = BrowseConfig{
		PerPage:          positiveOr(v.GetInt("PER_PAGE"), 5),
		ReferencePerPage: positiveOr(v.GetInt("REFERENCE_PER_PAGE"), 50),
		SearchDebounce:   parseDuration(v.GetString("SEARCH_DEBOUNCE"), 500*time.Millisecond),
		DialogIdleTTL:    parseDuration(v.GetString("DIALOG_IDLE_TTL"), 15*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.RateLimit = RateLimitConfig{
		Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
		RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
		Burst:   positiveOr(v.GetInt("RATE_LIMIT_BURST"), 20),
	}
	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = 10
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Exports = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORT"),
		Title:   v.GetString("EXPORT_TITLE"),
	}

	cfg.Stream = StreamConfig{
		Enabled:      v.GetBool("ENABLE_STREAM"),
		PingInterval: parseDuration(v.GetString("STREAM_PING_INTERVAL"), 30*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8090)

	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("HTTP_TIMEOUT", "15s")

	v.SetDefault("AUTH_TOKEN", "")
	v.SetDefault("AUTH_TOKEN_FILE", "")

	v.SetDefault("PER_PAGE", 5)
	v.SetDefault("REFERENCE_PER_PAGE", 50)
	v.SetDefault("SEARCH_DEBOUNCE", "500ms")
	v.SetDefault("DIALOG_IDLE_TTL", "15m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_EXPORT", true)
	v.SetDefault("EXPORT_TITLE", "Thoi khoa bieu")
	v.SetDefault("ENABLE_STREAM", true)
	v.SetDefault("STREAM_PING_INTERVAL", "30s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func normalizePrefix(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "/" {
		return ""
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return strings.TrimRight(raw, "/")
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
