package secrets

import (
	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// VaultConfig is the "vault" configuration section.
type VaultConfig struct {
	Address   string `yaml:"address"`
	Token     string `yaml:"token"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace,omitempty"`
}

func (v VaultConfig) Validate() error {
	if v.Address == "" {
		return errors.New("vault address is required")
	}
	if v.Token == "" {
		return errors.New("vault token is required")
	}
	if v.Path == "" {
		return errors.New("vault path is required")
	}
	return nil
}

// CreateClient implements config.ClientFactory[*api.Client].
func (v VaultConfig) CreateClient() (*api.Client, error) {
	cfg := api.DefaultConfig()
	cfg.Address = v.Address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vault client")
	}
	client.SetToken(v.Token)
	if v.Namespace != "" {
		client.SetNamespace(v.Namespace)
	}
	return client, nil
}

type logicalReader interface {
	Read(path string) (*api.Secret, error)
}

// VaultSecretLoader reads keys out of a single Vault secret. KV v1 and v2 engines are
// both supported.
//
//	password: ${vault:db_password}
type VaultSecretLoader struct {
	logical logicalReader
	path    string
}

func NewVaultSecretLoader(client *api.Client, path string) *VaultSecretLoader {
	return &VaultSecretLoader{logical: client.Logical(), path: path}
}

func (v *VaultSecretLoader) Resolve(key string) (string, error) {
	secret, err := v.logical.Read(v.path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from Vault path %q", v.path)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.Errorf("no secret found at Vault path %q", v.path)
	}

	data := secret.Data
	if nested, present := secret.Data["data"]; present && nested != nil {
		// KV v2 wraps the payload
		m, ok := nested.(map[string]any)
		if !ok {
			return "", errors.New("unexpected data format in KV v2 secret")
		}
		data = m
	}

	value, ok := data[key].(string)
	if !ok {
		return "", errors.Errorf("secret %q not found in Vault at path %q", key, v.path)
	}
	log.Debug().Str("secret_name", key).Str("vault_path", v.path).Msg("Resolved secret from Vault")
	return value, nil
}

func (v *VaultSecretLoader) Name() string {
	return "Vault"
}
