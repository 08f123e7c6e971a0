package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full environment-driven configuration of the rewards service.
type Config struct {
	// Application
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Gateway
	AllowedOrigins []string
	ServiceToken   string

	// Collaborators
	ProfileSyncURL  string
	ProfileSyncPath string
	WalletURL       string // empty = use the local balance mirror

	// Referral program
	DefaultReferrerBonus int64
	DefaultReferredBonus int64
	PendingTTL           time.Duration
	SweepInterval        time.Duration
	ProfileSyncInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "5300"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		ServiceToken:   getEnv("REWARDS_SERVICE_TOKEN", ""),

		ProfileSyncURL:  getEnv("PROFILE_SYNC_URL", ""),
		ProfileSyncPath: getEnv("PROFILE_SYNC_PATH", "/api/v1/public/profiles"),
		WalletURL:       getEnv("WALLET_SERVICE_URL", ""),

		DefaultReferrerBonus: getEnvInt64("DEFAULT_REFERRER_BONUS", 50),
		DefaultReferredBonus: getEnvInt64("DEFAULT_REFERRED_BONUS", 50),
		PendingTTL:           time.Duration(getEnvInt64("REFERRAL_PENDING_TTL_DAYS", 7)) * 24 * time.Hour,
		SweepInterval:        time.Duration(getEnvInt64("REFERRAL_SWEEP_INTERVAL_MINUTES", 60)) * time.Minute,
		ProfileSyncInterval:  time.Duration(getEnvInt64("PROFILE_SYNC_INTERVAL_SECONDS", 60)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
