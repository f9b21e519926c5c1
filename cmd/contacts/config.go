package main

import (
	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/config/secrets"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

// loadConfig reads the configuration file and registers the secret providers it
// configures, so later modules can reference them.
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration file")
	}
	if err := registerSecretProviders(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func registerSecretProviders(cfg *config.Config) error {
	vaultClient, vaultCfg, err := config.GetClient[secrets.VaultConfig, *api.Client](cfg, "vault")
	if err != nil {
		return errors.Wrap(err, "failed to load or create Vault client")
	}
	if vaultClient != nil {
		secrets.Register("vault", secrets.NewVaultSecretLoader(*vaultClient, vaultCfg.Path))
	}

	fileResolver, _, err := config.GetClient[secrets.FileSecretConfig, *secrets.FileSecretLoader](cfg, "file_resolver")
	if err != nil {
		return errors.Wrap(err, "failed to load or create file secret provider")
	}
	if fileResolver != nil {
		secrets.Register("file", *fileResolver)
	}

	awsClient, awsCfg, err := config.GetClient[secrets.AWSConfig, *secretsmanager.Client](cfg, "aws")
	if err != nil {
		return errors.Wrap(err, "failed to load or create AWS Secrets Manager client")
	}
	if awsClient != nil {
		secrets.Register("aws", secrets.NewAWSSecretLoader(*awsClient, awsCfg.SecretName))
	}
	return nil
}
