// Package s3archive copies bundle audit records to S3-compatible object
// storage.
package s3archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// Config holds the configuration for an S3-compatible object store.
type Config struct {
	// Endpoint overrides the AWS endpoint for MinIO, R2 and similar. Empty for AWS S3.
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
	// Prefix is prepended to every object key.
	Prefix string
}

// Archiver implements storage.Archiver. Each bundle is written as one JSON
// object under <prefix>/YYYY/MM/DD/<bundle_id>.json.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an Archiver from cfg.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3archive: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3archive: region is required")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("s3archive: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "bundles"
	}

	return &Archiver{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// Key returns the object key for a bundle.
func (a *Archiver) Key(b *domain.Bundle) string {
	created := time.UnixMilli(b.CreatedAt).UTC()
	return fmt.Sprintf("%s/%s/%s.json", a.prefix, created.Format("2006/01/02"), b.BundleID)
}

// Archive uploads the bundle record.
func (a *Archiver) Archive(ctx context.Context, b *domain.Bundle) error {
	if b == nil || b.BundleID == "" {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("s3archive: encode bundle %s: %w", b.BundleID, err)
	}

	key := a.Key(b)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3archive: put object %s: %w", key, err)
	}
	return nil
}

// Health performs a HeadBucket call to verify connectivity and permissions.
func (a *Archiver) Health(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		return fmt.Errorf("s3archive: health check failed for bucket %s: %w", a.bucket, err)
	}
	return nil
}

// normaliseEndpoint adds a scheme when the endpoint has none.
func normaliseEndpoint(endpoint string, useSSL bool) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// Compile-time interface check.
var _ storage.Archiver = (*Archiver)(nil)
