package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                   string
	AllowedOrigin          string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	AuthSecret             string
	AccessTokenTTLMinutes  int
	ReportCacheTTLSeconds  int
	StaleOrderSweepMinutes int
	StaleOrderMaxAgeHours  int
	ShiftTimezone          string
	NotifyCooldownSeconds  int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		AuthSecret:             strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:  getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		ReportCacheTTLSeconds:  getEnvInt("REPORT_CACHE_TTL_SECONDS", 60),
		StaleOrderSweepMinutes: getEnvInt("STALE_ORDER_SWEEP_MINUTES", 60),
		StaleOrderMaxAgeHours:  getEnvInt("STALE_ORDER_MAX_AGE_HOURS", 24),
		ShiftTimezone:          getEnv("SHIFT_TIMEZONE", "Local"),
		NotifyCooldownSeconds:  getEnvInt("NOTIFY_COOLDOWN_SECONDS", 30),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// getEnvInt parses a positive integer from the environment, falling back when
// the variable is unset, malformed or less than one.
func getEnvInt(key string, fallback int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil || val < 1 {
		return fallback
	}
	return val
}
