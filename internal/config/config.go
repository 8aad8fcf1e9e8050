package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	NATS struct {
		URL     string
		Subject string
	}

	Quota struct {
		StandardPerDay int
		RosesPerDay    int
	}

	Windows struct {
		PassRetention time.Duration
		ViewDedupe    time.Duration
	}

	Feed struct {
		PageTTL         time.Duration
		DefaultPageSize int
		MaxPageSize     int
		ScorerTimeout   time.Duration
	}

	Rank struct {
		SimilarityWeight float64
		TrustWeight      float64
		EngagementWeight float64
	}
}

func New() *Config {
	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "matching_engine")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "venturematch")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// NATS (optional; empty URL disables event publishing)
	cfg.NATS.URL = os.Getenv("NATS_URL")
	cfg.NATS.Subject = getEnvDefault("NATS_MATCH_SUBJECT", "venturematch.matches.created")

	// Daily quotas
	cfg.Quota.StandardPerDay = getEnvInt("STANDARD_LIKES_PER_DAY", 10)
	cfg.Quota.RosesPerDay = getEnvInt("ROSES_PER_DAY", 3)

	// Feed exclusion windows
	cfg.Windows.PassRetention = time.Duration(getEnvInt("PASS_RETENTION_DAYS", 30)) * 24 * time.Hour
	cfg.Windows.ViewDedupe = time.Duration(getEnvInt("VIEW_DEDUPE_DAYS", 7)) * 24 * time.Hour

	// Feed cache / pagination
	cfg.Feed.PageTTL = time.Duration(getEnvInt("FEED_TTL_SECONDS", 120)) * time.Second
	cfg.Feed.DefaultPageSize = getEnvInt("FEED_PAGE_SIZE", 20)
	cfg.Feed.MaxPageSize = getEnvInt("FEED_MAX_PAGE_SIZE", 50)
	cfg.Feed.ScorerTimeout = time.Duration(getEnvInt("SCORER_TIMEOUT_MS", 300)) * time.Millisecond

	// Ranking weights (non-negative; normalized by the ranker)
	cfg.Rank.SimilarityWeight = getEnvFloat("RANK_SIMILARITY_WEIGHT", 0.6)
	cfg.Rank.TrustWeight = getEnvFloat("RANK_TRUST_WEIGHT", 0.25)
	cfg.Rank.EngagementWeight = getEnvFloat("RANK_ENGAGEMENT_WEIGHT", 0.15)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
