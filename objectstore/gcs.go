package objectstore

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSFetcher reads objects from one Google Cloud Storage bucket.
type GCSFetcher struct {
	client *storage.Client
	bucket string
}

// Compile-time check.
var _ Fetcher = (*GCSFetcher)(nil)

// NewGCSFetcher creates a fetcher. keyFile is a service-account JSON key;
// when empty, application default credentials are used.
func NewGCSFetcher(ctx context.Context, bucket, keyFile string) (*GCSFetcher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	var opts []option.ClientOption
	if keyFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, keyFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSFetcher{client: client, bucket: bucket}, nil
}

// Get downloads the whole object.
func (f *GCSFetcher) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := f.client.Bucket(f.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs open %s/%s: %w", f.bucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s/%s: %w", f.bucket, key, err)
	}
	return data, nil
}

// Close releases the underlying client.
func (f *GCSFetcher) Close() error { return f.client.Close() }
