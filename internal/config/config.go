package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string
	AuthToken         string
	AppEnv            string
	LogLevel          string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	DBURL             string
	DBAutoMigrate     bool
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int

	TmdbURL             string
	TmdbAccessToken     string
	TmdbLanguage        string
	ImageBaseURL        string
	CatalogTimeoutSecs  int
	CatalogBatchSize    int
	CatalogBatchDelayMS int
	CatalogRateLimit    float64

	AllocineURL         string
	AllocineTimeoutSecs int

	MapMinTitleLength       int
	MapMinDescriptionLength int
	MapMinMovies            int

	JobWorkers        int
	JobPollIntervalMS int
	JobMaxAttempts    int
	JobTimeoutSecs    int
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		AuthToken:         os.Getenv("AUTH_TOKEN"),
		AppEnv:            getEnv("APP_ENV", "production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ReadTimeoutSecs:   getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:  getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:   getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBURL:             os.Getenv("DB_URL"),
		DBAutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),

		TmdbURL:             getEnv("TMDB_API_URL", "https://api.themoviedb.org/3"),
		TmdbAccessToken:     os.Getenv("TMDB_API_ACCESS_TOKEN"),
		TmdbLanguage:        getEnv("TMDB_LANGUAGE", "fr-FR"),
		ImageBaseURL:        getEnv("CATALOG_IMAGE_BASE_URL", "https://image.tmdb.org/t/p/original"),
		CatalogTimeoutSecs:  getEnvInt("CATALOG_TIMEOUT_SECS", 10),
		CatalogBatchSize:    getEnvInt("CATALOG_BATCH_SIZE", 20),
		CatalogBatchDelayMS: getEnvInt("CATALOG_BATCH_DELAY_MS", 0),
		CatalogRateLimit:    getEnvFloat("CATALOG_RATE_LIMIT", 0),

		AllocineURL:         getEnv("ALLOCINE_URL", "https://www.allocine.fr"),
		AllocineTimeoutSecs: getEnvInt("ALLOCINE_TIMEOUT_SECS", 10),

		MapMinTitleLength:       getEnvInt("MAP_MIN_TITLE_LENGTH", 3),
		MapMinDescriptionLength: getEnvInt("MAP_MIN_DESCRIPTION_LENGTH", 5),
		MapMinMovies:            getEnvInt("MAP_MIN_MOVIES", 3),

		JobWorkers:        getEnvInt("JOB_WORKERS", 4),
		JobPollIntervalMS: getEnvInt("JOB_POLL_INTERVAL_MS", 1000),
		JobMaxAttempts:    getEnvInt("JOB_MAX_ATTEMPTS", 5),
		JobTimeoutSecs:    getEnvInt("JOB_TIMEOUT_SECS", 120),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.TmdbAccessToken == "" {
		return Config{}, fmt.Errorf("TMDB_API_ACCESS_TOKEN is required")
	}
	if cfg.CatalogTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("CATALOG_TIMEOUT_SECS must be positive")
	}
	if cfg.CatalogBatchSize <= 0 {
		return Config{}, fmt.Errorf("CATALOG_BATCH_SIZE must be positive")
	}
	if cfg.CatalogBatchDelayMS < 0 {
		return Config{}, fmt.Errorf("CATALOG_BATCH_DELAY_MS must be non-negative")
	}
	if cfg.CatalogRateLimit < 0 {
		return Config{}, fmt.Errorf("CATALOG_RATE_LIMIT must be non-negative")
	}
	if cfg.AllocineTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("ALLOCINE_TIMEOUT_SECS must be positive")
	}
	if cfg.MapMinTitleLength < 0 || cfg.MapMinDescriptionLength < 0 || cfg.MapMinMovies < 0 {
		return Config{}, fmt.Errorf("MAP_MIN_* thresholds must be non-negative")
	}
	if cfg.JobWorkers <= 0 {
		return Config{}, fmt.Errorf("JOB_WORKERS must be positive")
	}
	if cfg.JobPollIntervalMS <= 0 {
		return Config{}, fmt.Errorf("JOB_POLL_INTERVAL_MS must be positive")
	}
	if cfg.JobMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("JOB_MAX_ATTEMPTS must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "dev" || env == "development"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
