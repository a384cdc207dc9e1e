// Package awssm implements a secret provider backed by AWS Secrets Manager.
package awssm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/goccy/go-json"
)

// Provider implements the source.Provider interface for AWS Secrets Manager.
type Provider struct {
	client *secretsmanager.Client
}

// Config holds configuration for the Secrets Manager provider.
type Config struct {
	Region      string
	AccessKeyID string // optional, uses default credential chain if empty
	SecretKey   string // optional
	Endpoint    string // custom endpoint (for localstack, etc.)
}

// New creates a new Secrets Manager provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
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
		return nil, fmt.Errorf("awssm: load AWS config: %w", err)
	}

	smOpts := []func(*secretsmanager.Options){}
	if cfg.Endpoint != "" {
		smOpts = append(smOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &Provider{client: secretsmanager.NewFromConfig(awsCfg, smOpts...)}, nil
}

// Get retrieves a secret from Secrets Manager.
// Path format: "secret-id" or "secret-id#jsonKey" for JSON secrets.
func (p *Provider) Get(ctx context.Context, path string) (string, error) {
	secretID := path
	key := ""
	if idx := strings.LastIndex(path, "#"); idx != -1 {
		secretID = path[:idx]
		key = path[idx+1:]
	}

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %q: %w", secretID, err)
	}

	var payload string
	switch {
	case out.SecretString != nil:
		payload = *out.SecretString
	case out.SecretBinary != nil:
		payload = string(out.SecretBinary)
	default:
		return "", fmt.Errorf("secret %q has no value", secretID)
	}

	if key == "" {
		return payload, nil
	}

	var bundle map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &bundle); err != nil {
		return "", fmt.Errorf("parse secret %q as JSON: %w", secretID, err)
	}
	raw, ok := bundle[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretID)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return string(raw), nil
}

// Close is a no-op for the Secrets Manager provider.
func (p *Provider) Close() error {
	return nil
}
