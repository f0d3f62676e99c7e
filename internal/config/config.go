// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ukydev/cars-service-log/internal/db"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	Storage          db.Config
	StorageKeyPrefix string
	PersistTimeout   time.Duration

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
	AlertInterval   time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads a .env file when one exists and then the process environment.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	var errs []string

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err.Error())
	}
	rateRequests, err := getEnvInt("RATE_LIMIT_REQUESTS", 120)
	if err != nil {
		errs = append(errs, err.Error())
	}
	rateWindow, err := getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	alertInterval, err := getEnvDuration("ALERT_INTERVAL", time.Hour)
	if err != nil {
		errs = append(errs, err.Error())
	}
	persistTimeout, err := getEnvDuration("PERSIST_TIMEOUT", 5*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	pathStyle, err := getEnvBool("S3_PATH_STYLE", false)
	if err != nil {
		errs = append(errs, err.Error())
	}

	cfg := Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		Storage: db.Config{
			Driver:      db.Driver(strings.ToLower(getEnv("STORAGE_DRIVER", string(db.DriverFile)))),
			FileDir:     getEnv("STORAGE_FILE_DIR", "./data"),
			SQLitePath:  getEnv("SQLITE_PATH", "./data/carsservicelog.db"),
			PostgresDSN: getEnv("POSTGRES_DSN", ""),
			Redis: db.RedisConfig{
				Addr:     getEnv("REDIS_ADDR", ""),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       redisDB,
			},
			Mongo: db.MongoConfig{
				URI:        getEnv("MONGO_URI", ""),
				Database:   getEnv("MONGO_DB", "carsservicelog"),
				Collection: getEnv("MONGO_COLLECTION", "kv"),
			},
			S3: db.S3Config{
				Bucket:    getEnv("S3_BUCKET", ""),
				Region:    getEnv("S3_REGION", "us-east-1"),
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				PathStyle: pathStyle,
			},
		},
		StorageKeyPrefix:  getEnv("STORAGE_KEY_PREFIX", ""),
		PersistTimeout:    persistTimeout,
		MQTTBroker:        getEnv("MQTT_BROKER", ""),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "cars-service-log"),
		MQTTTopicPrefix:   getEnv("MQTT_TOPIC_PREFIX", "carsservicelog"),
		AlertInterval:     alertInterval,
		RateLimitRequests: rateRequests,
		RateLimitWindow:   rateWindow,
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a boolean", key, raw)
	}
	return b, nil
}
