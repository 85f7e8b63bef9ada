// Package minio provides a MinIO implementation of reportstore.Store.
//
// Usage:
//
//	store, err := minio.New(ctx, &reportstore.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "datlens-reports",
//	})
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"bytes"
	"context"
	"io"
	"sort"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/DatLens/internal/reportstore"
)

const reportContentType = "application/json"

// Driver is a MinIO implementation of reportstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO using the provided Config and returns a Driver.
// The report bucket is created when it does not exist yet.
func New(ctx context.Context, cfg *reportstore.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, mapError(err, "failed to create minio client")
	}

	d := &Driver{client: client, bucket: cfg.Bucket}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, mapError(err, "failed to check report bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, mapError(err, "failed to create report bucket")
		}
	}

	return d, nil
}

// --- reportstore.Store implementation ---

// Ping verifies the MinIO server is reachable by probing the bucket.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.BucketExists(ctx, d.bucket); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op for MinIO; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// Put uploads a serialized report under key.
func (d *Driver) Put(ctx context.Context, key string, data []byte) error {
	_, err := d.client.PutObject(ctx, d.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: reportContentType})
	if err != nil {
		return mapError(err, "failed to store report")
	}
	return nil
}

// Get downloads the serialized report stored under key.
func (d *Driver) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to open report")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err, "failed to read report")
	}
	return data, nil
}

// List returns all stored report keys in the bucket.
func (d *Driver) List(ctx context.Context) ([]reportstore.ReportInfo, error) {
	infos := make([]reportstore.ReportInfo, 0)

	for obj := range d.client.ListObjects(ctx, d.bucket, miniogo.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list reports")
		}
		infos = append(infos, reportstore.ReportInfo{
			Key:      obj.Key,
			Size:     obj.Size,
			StoredAt: obj.LastModified,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
