package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUUID         string
	AnnounceChannel    string
	ActionChannel      string

	// Lunch policy
	DefaultConcurrencyLimit int
	DefaultGroupSize        int
	AnnouncementTime        string
	StartTime               string
	ReturnWindow            time.Duration
	ReminderLead            time.Duration

	// Scheduling
	SweepInterval time.Duration
	NotifyTimeout time.Duration

	// Locking
	SessionLockTTL time.Duration

	// Rate limiting
	RateLimitPerMinute int

	// Admin access
	AdminTokenHash string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUUID:         getEnv("PUBNUB_UUID", "lunch-queue"),
		AnnounceChannel:    getEnv("ANNOUNCE_CHANNEL", "lunch-announce"),
		ActionChannel:      getEnv("ACTION_CHANNEL", "lunch-actions"),

		// Lunch policy
		DefaultConcurrencyLimit: getEnvAsInt("DEFAULT_CONCURRENCY_LIMIT", 3),
		DefaultGroupSize:        getEnvAsInt("DEFAULT_GROUP_SIZE", 3),
		AnnouncementTime:        getEnv("ANNOUNCEMENT_TIME", "12:00"),
		StartTime:               getEnv("LUNCH_START_TIME", "13:00"),
		ReturnWindow:            getEnvAsDuration("RETURN_WINDOW", "30m"),
		ReminderLead:            getEnvAsDuration("REMINDER_LEAD", "5m"),

		// Scheduling
		SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", "20s"),
		NotifyTimeout: getEnvAsDuration("NOTIFY_TIMEOUT", "10s"),

		// Locking
		SessionLockTTL: getEnvAsDuration("SESSION_LOCK_TTL", "10s"),

		// Rate limiting
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),

		// Admin access
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
