// Package s3 implements a secret provider that reads secret objects from
// AWS S3 or an S3-compatible store such as MinIO.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxObjectSize caps how much of a secret object is read. Secret material is
// small; anything larger is a misconfigured reference, not a secret.
const maxObjectSize = 1 << 20

// Provider implements the source.Provider interface for S3 objects.
type Provider struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config holds configuration for the S3 provider.
type Config struct {
	BucketName  string
	Region      string
	AccessKeyID string // optional, uses default credential chain if empty
	SecretKey   string // optional
	Endpoint    string // custom S3 endpoint (for MinIO, etc.)
	PathPrefix  string // prefix for object keys
}

// New creates a new S3 provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("s3: bucket_name is required")
	}

	opts := []func(*config.LoadOptions) error{}

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Provider{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.BucketName,
		prefix: cfg.PathPrefix,
	}, nil
}

// Get retrieves the object at path (joined with the configured prefix) and
// returns its content.
func (p *Provider) Get(ctx context.Context, objectPath string) (string, error) {
	key := objectPath
	if p.prefix != "" {
		key = path.Join(p.prefix, objectPath)
	}

	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("get s3 object %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize+1))
	if err != nil {
		return "", fmt.Errorf("read s3 object %q: %w", key, err)
	}
	if len(data) > maxObjectSize {
		return "", fmt.Errorf("s3 object %q exceeds %d bytes", key, maxObjectSize)
	}

	return string(data), nil
}

// Close is a no-op for the S3 provider.
func (p *Provider) Close() error {
	return nil
}
