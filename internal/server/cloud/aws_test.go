package cloud

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophwallet/internal/server/config"
)

func TestLoadAWSConfig_StaticCredentials(t *testing.T) {
	cfg := &config.Config{AWSRegion: "eu-west-1", AWSAccessKeyID: "AKID", AWSSecretAccessKey: "SECRET"}

	got, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", got.Region)

	creds, err := got.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
	assert.Equal(t, "SECRET", creds.SecretAccessKey)
}

func TestLoadAWSConfig_DefaultChain(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	var nopts int
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		nopts = len(optFns)
		return aws.Config{Region: "us-east-1"}, nil
	}

	_, err := LoadAWSConfig(context.Background(), &config.Config{AWSRegion: "us-east-1", AWSAccessKeyID: "only-id"})
	require.NoError(t, err)
	assert.Equal(t, 1, nopts)
}

func TestBaseEndpoint(t *testing.T) {
	assert.Nil(t, BaseEndpoint(&config.Config{}))
	assert.Equal(t, "http://localstack:4566", *BaseEndpoint(&config.Config{AWSBaseEndpoint: "http://localstack:4566"}))
}
