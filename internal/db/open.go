package db

import (
	"context"
	"fmt"
	"strings"
)

// MongoConfig selects the MongoDB collection used by the mongo driver.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// Config selects and configures a storage driver.
type Config struct {
	Driver      Driver
	FileDir     string
	SQLitePath  string
	PostgresDSN string
	Redis       RedisConfig
	Mongo       MongoConfig
	S3          S3Config
}

// Open builds the store named by cfg.Driver. An empty driver selects the
// file store.
func Open(ctx context.Context, cfg Config) (KeyValueStore, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(string(cfg.Driver))))
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile, "":
		return NewFileStore(cfg.FileDir)
	case DriverSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	case DriverRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case DriverMongo:
		database := cfg.Mongo.Database
		if database == "" {
			database = "carsservicelog"
		}
		collection := cfg.Mongo.Collection
		if collection == "" {
			collection = "kv"
		}
		return NewMongoStore(ctx, cfg.Mongo.URI, database, collection)
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
