// Package cloud builds the shared AWS configuration for the SES, SNS, SQS
// and S3 clients.
package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/dmitrijs2005/gophwallet/internal/server/config"
)

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// LoadAWSConfig resolves region and credentials. Static credentials are used
// when both key id and secret are configured; otherwise the default chain
// applies.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}
	return loadDefaultAWSConfig(ctx, opts...)
}

// BaseEndpoint returns the endpoint override for a client, or nil. Used to
// point clients at localstack or minio.
func BaseEndpoint(cfg *config.Config) *string {
	if cfg.AWSBaseEndpoint == "" {
		return nil
	}
	return aws.String(cfg.AWSBaseEndpoint)
}
