package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	SuperJWTSecret   string
	PaymentSecretKey string
	PaymentBaseURL   string
	AdminTokenTTL    time.Duration
	CustTokenTTL     time.Duration
	RateLimitWindow  time.Duration
	RateLimitMax     int
	OutboxPoll       time.Duration
	OutboxBatchSize  int
	OutboxRetention  time.Duration
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		SuperJWTSecret:   os.Getenv("SUPER_JWT_SECRET"),
		PaymentSecretKey: os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentBaseURL:   readString("PAYMENT_BASE_URL", "https://api.tosspayments.com"),
		AdminTokenTTL:    readDurationSeconds("ADMIN_TOKEN_TTL_SECONDS", 43200),
		CustTokenTTL:     readDurationSeconds("CUST_TOKEN_TTL_SECONDS", 10800),
		RateLimitWindow:  readDurationSeconds("RATE_LIMIT_WINDOW_SECONDS", 10),
		RateLimitMax:     readInt("RATE_LIMIT_MAX", 20),
		OutboxPoll:       readDurationSeconds("OUTBOX_POLL_INTERVAL_SECONDS", 1),
		OutboxBatchSize:  readInt("OUTBOX_BATCH_SIZE", 100),
		OutboxRetention:  readDurationSeconds("OUTBOX_RETENTION_SECONDS", 3600),
	}
}

func readString(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
