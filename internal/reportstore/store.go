// Package reportstore defines the persistence contract for serialized
// scan reports.
//
// Reports are stored as opaque JSON documents under string keys. All
// providers (local filesystem, MinIO, …) implement the Store interface;
// callers depend only on this package.
package reportstore

import (
	"context"
	"fmt"
	"time"
)

// Store is the single interface all report storage providers implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// Put stores a serialized report under key, replacing any previous
	// report with the same key.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the serialized report stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the stored report keys, sorted ascending.
	List(ctx context.Context) ([]ReportInfo, error)
}

// ReportInfo describes one stored report.
type ReportInfo struct {
	// Key is the storage key of the report.
	Key string `json:"key"`

	// Size is the byte size of the serialized report. -1 if unknown.
	Size int64 `json:"size"`

	// StoredAt is when the report was last written.
	// May be zero if the backend does not expose it.
	StoredAt time.Time `json:"stored_at"`
}

// Key builds the canonical storage key for a scan of one target.
func Key(engine, database string) string {
	return fmt.Sprintf("source_schema_%s_%s.json", engine, database)
}

// Config holds settings for the storage backends. Provider selects the
// implementation; the remaining fields apply to the matching backend.
type Config struct {
	// Provider is "fs" (local directory) or "minio".
	Provider string `yaml:"provider"`

	// Dir is the root directory of the fs provider.
	Dir string `yaml:"dir"`

	// MinIO / S3-style settings.
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}
