package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config carries the bucket settings for object storage. Endpoint is
// optional and supports S3-compatible stores.
type S3Config struct {
	Region    string
	Bucket    string
	KeyPrefix string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// S3Store keeps reports in an S3 bucket under a configurable prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Store(cfg S3Config) *S3Store {
	client := s3.New(s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		BaseEndpoint: func() *string {
			if cfg.Endpoint == "" {
				return nil
			}
			return aws.String(cfg.Endpoint)
		}(),
	})

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "medical-reports/"
	}

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}
}

func (s *S3Store) Save(ctx context.Context, r io.Reader, size int64, contentType, originalName string) (*StoredFile, error) {
	if err := validateUpload(size, contentType); err != nil {
		return nil, err
	}

	key := s.prefix + newKey()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          &limitedReader{r: r, remaining: MaxReportSize},
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("put report object: %w", err)
	}

	return &StoredFile{
		Key:          key,
		OriginalName: originalName,
		Size:         size,
		UploadedAt:   time.Now().UTC(),
	}, nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("get report object: %w", err)
	}
	return out.Body, nil
}
