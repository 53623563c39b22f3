// Package publish uploads finished catalogs to S3 compatible object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ContentType is set on every uploaded catalog.
const ContentType = "application/vnd.sqlite3"

var ErrBucketMissing = errors.New("publish: bucket does not exist")

type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Uploader copies catalog files into one bucket.
type Uploader struct {
	mu sync.Mutex

	client *minio.Client
	bucket string
}

func NewUploader(opts Options) (*Uploader, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("publish: endpoint and bucket are required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	return &Uploader{
		client: client,
		bucket: opts.Bucket,
	}, nil
}

func (*Uploader) Name() string {
	return "s3"
}

// Open verifies that the bucket exists.
func (u *Uploader) Open(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrBucketMissing, u.bucket)
	}
	return nil
}

func (u *Uploader) Close(ctx context.Context) error {
	return nil
}

// Upload stores the file at path as object. An empty object name uses the
// base name of path. It returns the stored object key and size.
func (u *Uploader) Upload(ctx context.Context, path, object string) (string, int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if object == "" {
		object = filepath.Base(path)
	}

	info, err := u.client.FPutObject(ctx, u.bucket, object, path, minio.PutObjectOptions{
		ContentType: ContentType,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload '%s' to %s/%s: %w", path, u.bucket, object, err)
	}
	return info.Key, info.Size, nil
}
