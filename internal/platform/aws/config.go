// Package aws wraps the AWS SDK clients used by the service behind
// resilience patterns.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Config holds AWS client configuration. Endpoint overrides the service
// endpoint for local stacks; empty means the real AWS endpoints.
type Config struct {
	Region   string
	Endpoint string
}

// LoadAWSConfig loads SDK configuration through the default credential
// chain (environment, shared credentials file, instance role).
func LoadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}
