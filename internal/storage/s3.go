// Package storage keeps uploaded images in S3-compatible object storage.
// The rest of the system only sees the opaque reference returned by Put.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/oggyb/recipebox/internal/config"
)

// ErrForeignRef is returned when asked to delete a ref this store did not issue.
var ErrForeignRef = errors.New("storage: reference not issued by this store")

// ObjectStore stores image bytes under generated keys.
type ObjectStore interface {
	Put(ctx context.Context, prefix, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AllowedContentType reports whether uploads of this type are accepted.
func AllowedContentType(ct string) bool {
	_, ok := extensions[ct]
	return ok
}

type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds a client from the default AWS chain, overridden by
// static keys, a custom endpoint and path-style addressing when configured
// (MinIO, LocalStack).
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads data and returns its reference, "<prefix>/<id><ext>".
func (s *S3Store) Put(ctx context.Context, prefix, contentType string, data []byte) (string, error) {
	key, err := newKey(prefix, contentType)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// Delete removes the object behind ref. Empty refs are ignored.
func (s *S3Store) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if foreign(ref) {
		return ErrForeignRef
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func newKey(prefix, contentType string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("storage: unsupported content type %q", contentType)
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return strings.Trim(prefix, "/") + "/" + id + ext, nil
}

func foreign(ref string) bool {
	return strings.Contains(ref, "://") || strings.HasPrefix(ref, "/")
}
