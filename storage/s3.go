package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// S3Options configures the AWS session shared by S3 repositories.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// NewS3Session creates an AWS session. Static credentials are used when both
// keys are set, otherwise the default credential chain applies.
func NewS3Session(opts S3Options) (*session.Session, error) {
	cfg := aws.Config{
		Region: aws.String(opts.Region),
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	if opts.PathStyle {
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

// S3Repository stores fragments as objects in an S3 or S3-compatible bucket.
type S3Repository struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Repository creates a repository storing objects under prefix in bucketName.
func NewS3Repository(locationURI string, sess *session.Session, bucketName, prefix string, log *slog.Logger) *S3Repository {
	return &S3Repository{
		client:      s3.New(sess),
		bucketName:  bucketName,
		prefix:      prefix,
		log:         log,
		locationURI: locationURI,
	}
}

// Location returns the URI that identifies this repository.
func (r *S3Repository) Location() string {
	return r.locationURI
}

// SaveFragment uploads the fragment object.
func (r *S3Repository) SaveFragment(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	key := r.objectKey(name)

	_, err := r.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return interfaces.NewRepositoryError("SaveFragment", r.locationURI, "failed to upload object to S3", err)
	}

	r.log.Debug("Stored fragment in S3",
		slog.String("bucket", r.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// LoadFragment downloads the fragment object.
func (r *S3Repository) LoadFragment(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	key := r.objectKey(name)

	result, err := r.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			r.log.Debug("Fragment not found in S3",
				slog.String("bucket", r.bucketName),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI,
				fmt.Sprintf("no fragment %q", name), errors.Join(interfaces.ErrFragmentNotFound, err))
		}
		return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI, "failed to get object from S3", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI, "failed to read object body", err)
	}

	r.log.Debug("Fetched fragment from S3",
		slog.String("bucket", r.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// DeleteFragment removes the fragment object. S3 deletes are idempotent, so
// existence is checked with a HEAD request first.
func (r *S3Repository) DeleteFragment(ctx context.Context, name string) (bool, error) {
	key := r.objectKey(name)

	_, err := r.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, interfaces.NewRepositoryError("DeleteFragment", r.locationURI, "failed to head object in S3", err)
	}

	_, err = r.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, interfaces.NewRepositoryError("DeleteFragment", r.locationURI, "failed to delete object from S3", err)
	}

	r.log.Debug("Deleted fragment from S3",
		slog.String("bucket", r.bucketName),
		slog.String("key", key))

	return true, nil
}

func (r *S3Repository) objectKey(name string) string {
	if r.prefix == "" {
		return name
	}
	return path.Join(r.prefix, name)
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
