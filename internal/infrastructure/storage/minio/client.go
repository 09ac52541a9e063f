// Package minio exports result tables to an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/storage"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// API is the subset of *minio.Client the sink uses.
type API interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// Config configures the bucket connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool

	// Prefix is prepended to every object name.
	Prefix string

	// CreateBucket makes the bucket when it does not exist.
	CreateBucket bool
}

func applyDefaults(cfg *Config) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
}

// Sink implements storage.Sink on a bucket.
type Sink struct {
	api    API
	config Config
	logger logging.Logger
}

var _ storage.Sink = (*Sink)(nil)

// NewSink connects to the endpoint in cfg and checks the bucket.
func NewSink(ctx context.Context, cfg Config, log logging.Logger) (*Sink, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.InvalidParam("minio endpoint and bucket are required")
	}
	applyDefaults(&cfg)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}
	return NewSinkWithAPI(ctx, client, cfg, log)
}

// NewSinkWithAPI builds a Sink on an existing client.
func NewSinkWithAPI(ctx context.Context, api API, cfg Config, log logging.Logger) (*Sink, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)
	s := &Sink{api: api, config: cfg, logger: log.Named("minio")}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("minio sink ready",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return s, nil
}

func (s *Sink) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to reach minio").WithDetail(s.config.Endpoint)
	}
	if exists {
		return nil
	}
	if !s.config.CreateBucket {
		return errors.New(errors.CodeNotFound, "bucket not found").WithDetail(s.config.Bucket)
	}
	if err := s.api.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{Region: s.config.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, fmt.Sprintf("failed to create bucket %s", s.config.Bucket))
	}
	s.logger.Info("created bucket", logging.String("bucket", s.config.Bucket))
	return nil
}

// Name implements storage.Sink.
func (s *Sink) Name() string { return "minio" }

// Key returns the object key for name.
func (s *Sink) Key(name string) string {
	if s.config.Prefix == "" {
		return name
	}
	return path.Join(s.config.Prefix, name)
}

// Put implements storage.Sink.  The returned location is s3://bucket/key.
func (s *Sink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	clean, err := storage.CleanName(name)
	if err != nil {
		return "", err
	}
	key := s.Key(clean)
	info, err := s.api.PutObject(ctx, s.config.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "upload failed").WithDetail(key)
	}
	s.logger.Debug("object uploaded",
		logging.String("key", key),
		logging.Int64("size", info.Size),
		logging.String("etag", info.ETag))
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key), nil
}

// Exists reports whether the object for name is present.
func (s *Sink) Exists(ctx context.Context, name string) (bool, error) {
	clean, err := storage.CleanName(name)
	if err != nil {
		return false, err
	}
	_, err = s.api.StatObject(ctx, s.config.Bucket, s.Key(clean), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorage, "stat failed").WithDetail(name)
}
