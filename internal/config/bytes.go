package config

import (
	"os"
	"strconv"
	"time"
)

// BytesDefaults are the guild economy settings applied when a guild has no
// stored configuration yet. A guild row is created on demand from these
// values; deleting a guild's config falls back to them again.
type BytesDefaults struct {
	DailyAmount     int64
	StartingBalance int64
	MaxTransfer     int64
	StreakBonuses   map[string]any
	ConfigCacheTTL  time.Duration
	AuditSchedule   string
}

func LoadBytesDefaults() *BytesDefaults {
	return &BytesDefaults{
		DailyAmount:     getEnvAsInt64("BYTES_DAILY_AMOUNT", 10),
		StartingBalance: getEnvAsInt64("BYTES_STARTING_BALANCE", 100),
		MaxTransfer:     getEnvAsInt64("BYTES_MAX_TRANSFER", 1000),
		StreakBonuses: map[string]any{
			"7":  getEnvAsInt64("BYTES_BONUS_WEEK", 2),
			"14": getEnvAsInt64("BYTES_BONUS_FORTNIGHT", 3),
			"30": getEnvAsInt64("BYTES_BONUS_MONTH", 5),
		},
		ConfigCacheTTL: getEnvAsDuration("BYTES_CONFIG_CACHE_TTL", 5*time.Minute),
		AuditSchedule:  getEnv("BYTES_AUDIT_SCHEDULE", "0 4 * * *"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
