package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

var (
	// ErrMissingAPIKey is returned by Load when TMDB_API_KEY is not set.
	ErrMissingAPIKey = errors.New("TMDB_API_KEY is required")
	// ErrMissingDatabaseURL is returned by LoadDatabaseURL when DATABASE_URL is not set.
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
)

type Config struct {
	// Server
	ServerPort int
	Host       string

	// Database (optional; watchlist routes are disabled without it)
	DatabaseURL string

	// Redis (optional shared cache tier)
	RedisURL string

	// TMDB
	TMDBAPIKey  string
	TMDBBaseURL string
	Language    string
	Region      string
	TMDBTimeout time.Duration
	RateLimit   float64
	RateBurst   int
	Retries     int

	// Aggregation
	FetchConcurrency  int
	EnrichConcurrency int

	// Cache
	CacheSize     int
	CacheTTL      time.Duration
	GenreCacheTTL time.Duration

	// Auth
	JWTSecret string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Debug
	Debug bool
}

func newViper() *viper.Viper {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config.dotenv.not_loaded", "error", err)
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	return v
}

// LoadDatabaseURL reads only DATABASE_URL, for tools that never call the upstream API.
func LoadDatabaseURL() (string, error) {
	dsn := strings.TrimSpace(newViper().GetString("DATABASE_URL"))
	if dsn == "" {
		return "", ErrMissingDatabaseURL
	}
	return dsn, nil
}

func defaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	v.SetDefault("TMDB_LANGUAGE", "en-US")
	v.SetDefault("TMDB_REGION", "US")
	v.SetDefault("TMDB_TIMEOUT", "10s")
	v.SetDefault("TMDB_RATE_LIMIT", 40)
	v.SetDefault("TMDB_RATE_BURST", 20)
	v.SetDefault("TMDB_RETRIES", 3)
	v.SetDefault("FETCH_CONCURRENCY", 4)
	v.SetDefault("ENRICH_CONCURRENCY", 5)
	v.SetDefault("CACHE_SIZE", 2048)
	v.SetDefault("CACHE_TTL", "30m")
	v.SetDefault("GENRE_CACHE_TTL", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DEBUG", false)
}

// Load reads configuration from the environment, after loading a .env file
// if one exists. A missing TMDB_API_KEY is fatal.
func Load() (*Config, error) {
	v := newViper()

	cfg := &Config{
		ServerPort: v.GetInt("SERVER_PORT"),
		Host:       v.GetString("HOST"),

		DatabaseURL: v.GetString("DATABASE_URL"),
		RedisURL:    v.GetString("REDIS_URL"),

		TMDBAPIKey:  strings.TrimSpace(v.GetString("TMDB_API_KEY")),
		TMDBBaseURL: v.GetString("TMDB_BASE_URL"),
		Language:    v.GetString("TMDB_LANGUAGE"),
		Region:      v.GetString("TMDB_REGION"),
		TMDBTimeout: v.GetDuration("TMDB_TIMEOUT"),
		RateLimit:   v.GetFloat64("TMDB_RATE_LIMIT"),
		RateBurst:   v.GetInt("TMDB_RATE_BURST"),
		Retries:     v.GetInt("TMDB_RETRIES"),

		FetchConcurrency:  v.GetInt("FETCH_CONCURRENCY"),
		EnrichConcurrency: v.GetInt("ENRICH_CONCURRENCY"),

		CacheSize:     v.GetInt("CACHE_SIZE"),
		CacheTTL:      v.GetDuration("CACHE_TTL"),
		GenreCacheTTL: v.GetDuration("GENRE_CACHE_TTL"),

		JWTSecret: v.GetString("AUTH_JWT_SECRET"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
		LogFile:   v.GetString("LOG_FILE"),

		Debug: v.GetBool("DEBUG"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TMDBAPIKey == "" {
		return ErrMissingAPIKey
	}

	tag, err := language.Parse(c.Language)
	if err != nil {
		return fmt.Errorf("invalid TMDB_LANGUAGE %q: %w", c.Language, err)
	}
	c.Language = tag.String()

	region, err := language.ParseRegion(c.Region)
	if err != nil {
		return fmt.Errorf("invalid TMDB_REGION %q: %w", c.Region, err)
	}
	c.Region = region.String()

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.ServerPort)
	}
	if c.Retries < 1 {
		c.Retries = 1
	}
	if c.FetchConcurrency < 1 {
		c.FetchConcurrency = 1
	}
	if c.EnrichConcurrency < 1 {
		c.EnrichConcurrency = 1
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.ServerPort))
}

// WatchlistEnabled reports whether the watchlist routes can be served.
func (c *Config) WatchlistEnabled() bool {
	return c.DatabaseURL != "" && c.JWTSecret != ""
}
