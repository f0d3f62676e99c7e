package db

import (
	"context"
	"errors"
)

// KeyValueStore is the durable record store behind the service log. Values
// are UTF-8 JSON text keyed by fixed record names.
type KeyValueStore interface {
	// Get returns the value stored under key. found is false when the key
	// does not exist; that is not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases connections held by the store.
	Close(ctx context.Context) error
}

// Driver identifies a KeyValueStore implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-process map, tests and throwaway runs
	DriverFile     Driver = "file"     // one file per key in a directory (default)
	DriverSQLite   Driver = "sqlite"   // single-file SQLite database
	DriverPostgres Driver = "postgres" // PostgreSQL via pgx
	DriverRedis    Driver = "redis"    // Redis string keys
	DriverMongo    Driver = "mongo"    // MongoDB collection
	DriverS3       Driver = "s3"       // S3 / MinIO bucket
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown storage driver")
	// ErrEmptyKey is returned when a record key is empty.
	ErrEmptyKey = errors.New("empty record key")
)
