package secrets

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AWSConfig is the "aws" configuration section. Static credentials are optional; without
// them the default credential chain applies.
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SecretName      string `yaml:"secret_name"`
	Endpoint        string `yaml:"endpoint,omitempty"`
}

func (a AWSConfig) Validate() error {
	if a.Region == "" {
		return errors.New("AWS region is required")
	}
	if a.SecretName == "" {
		return errors.New("AWS secret name is required")
	}
	return nil
}

// CreateClient implements config.ClientFactory[*secretsmanager.Client].
func (a AWSConfig) CreateClient() (*secretsmanager.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(a.Region)}
	if a.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(a.Endpoint))
	}
	if a.AccessKeyID != "" && a.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.AccessKeyID, a.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

type secretValueGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretLoader reads from one Secrets Manager secret. JSON object secrets are indexed
// by key; plain text secrets are returned whole and the key is ignored.
//
//	password: ${aws:db_password}
type AWSSecretLoader struct {
	client     secretValueGetter
	secretName string
}

func NewAWSSecretLoader(client *secretsmanager.Client, secretName string) *AWSSecretLoader {
	return &AWSSecretLoader{client: client, secretName: secretName}
}

func (a *AWSSecretLoader) Resolve(key string) (string, error) {
	out, err := a.client.GetSecretValue(context.Background(), &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretName),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret %q from AWS Secrets Manager", a.secretName)
	}
	if out.SecretString == nil {
		return "", errors.Errorf("secret %q has no string value", a.secretName)
	}

	raw := *out.SecretString
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		log.Debug().Str("secret_name", a.secretName).Msg("Resolved plain text secret from AWS Secrets Manager")
		return raw, nil
	}

	value, ok := fields[key].(string)
	if !ok {
		return "", errors.Errorf("key %q not found in AWS secret %q", key, a.secretName)
	}
	log.Debug().Str("secret_name", a.secretName).Str("key", key).Msg("Resolved secret from AWS Secrets Manager")
	return value, nil
}

func (a *AWSSecretLoader) Name() string {
	return "AWS Secrets Manager"
}
