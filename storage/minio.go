package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// NewMinioClient creates a client for the MinIO server at endpoint (host:port).
func NewMinioClient(endpoint, accessKey, secretKey string, secure bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
}

// MinioRepository stores fragments as objects in a MinIO bucket.
type MinioRepository struct {
	client      *minio.Client
	bucket      string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewMinioRepository creates a repository storing objects under prefix in bucket.
func NewMinioRepository(locationURI string, client *minio.Client, bucket, prefix string, log *slog.Logger) *MinioRepository {
	return &MinioRepository{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		log:         log,
		locationURI: locationURI,
	}
}

// Location returns the URI that identifies this repository.
func (r *MinioRepository) Location() string {
	return r.locationURI
}

// SaveFragment uploads the fragment object.
func (r *MinioRepository) SaveFragment(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	key := r.key(name)

	_, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return interfaces.NewRepositoryError("SaveFragment", r.locationURI, "failed to put object", err)
	}

	r.log.Debug("Stored fragment in MinIO",
		slog.String("bucket", r.bucket),
		slog.String("key", key),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// LoadFragment downloads the fragment object.
func (r *MinioRepository) LoadFragment(ctx context.Context, name string) ([]byte, error) {
	key := r.key(name)

	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, r.loadError(name, err)
	}
	defer obj.Close()

	// GetObject is lazy, a missing object only surfaces on read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, r.loadError(name, err)
	}
	return data, nil
}

// DeleteFragment removes the fragment object, reporting whether it existed.
func (r *MinioRepository) DeleteFragment(ctx context.Context, name string) (bool, error) {
	key := r.key(name)

	if _, err := r.client.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, interfaces.NewRepositoryError("DeleteFragment", r.locationURI, "failed to stat object", err)
	}

	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, interfaces.NewRepositoryError("DeleteFragment", r.locationURI, "failed to remove object", err)
	}
	return true, nil
}

func (r *MinioRepository) key(name string) string {
	return path.Join(r.prefix, name)
}

func (r *MinioRepository) loadError(name string, err error) error {
	if isMinioNotFound(err) {
		return interfaces.NewRepositoryError("LoadFragment", r.locationURI,
			fmt.Sprintf("no fragment %q", name), errors.Join(interfaces.ErrFragmentNotFound, err))
	}
	return interfaces.NewRepositoryError("LoadFragment", r.locationURI, "failed to get object", err)
}

func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
