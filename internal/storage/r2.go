package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrBackupDisabled is returned when no object storage is configured.
var ErrBackupDisabled = errors.New("backup storage is not configured")

// ObjectPutter is the part of *s3.Client the backup client needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Options holds the S3-compatible endpoint settings (Cloudflare R2, MinIO, S3).
type R2Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

// R2Client uploads data exports to an S3-compatible bucket.
type R2Client struct {
	client  ObjectPutter
	bucket  string
	baseURL string
}

// NewR2Client builds an S3 client for the endpoint with static credentials.
func NewR2Client(ctx context.Context, opts R2Options) (*R2Client, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, ErrBackupDisabled
	}

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading object storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})
	return NewR2ClientWith(client, opts.Bucket, opts.PublicBaseURL), nil
}

// NewR2ClientWith wraps an existing putter.
func NewR2ClientWith(client ObjectPutter, bucket, baseURL string) *R2Client {
	return &R2Client{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload stores body under key and returns its public URL, or the key when no public base URL is set.
func (r *R2Client) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	if r.baseURL == "" {
		return key, nil
	}
	return fmt.Sprintf("%s/%s", r.baseURL, key), nil
}

// BackupKey names a backup object by its UTC timestamp.
func BackupKey(t time.Time) string {
	return "backups/bakery-" + t.UTC().Format("20060102T150405Z") + ".json"
}
