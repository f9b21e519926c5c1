package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileSecretConfig is the "file_resolver" configuration section.
type FileSecretConfig struct {
	SecretsDir string `yaml:"secrets_dir"`
}

func (f FileSecretConfig) Validate() error {
	if f.SecretsDir == "" {
		return errors.New("secrets_dir is required for file resolver")
	}
	info, err := os.Stat(f.SecretsDir)
	if os.IsNotExist(err) {
		return errors.Errorf("secrets_dir %q does not exist", f.SecretsDir)
	}
	if err != nil {
		return errors.Wrapf(err, "error accessing secrets_dir %q", f.SecretsDir)
	}
	if !info.IsDir() {
		return errors.Errorf("secrets_dir %q is not a directory", f.SecretsDir)
	}
	return nil
}

// CreateClient implements config.ClientFactory[*FileSecretLoader].
func (f FileSecretConfig) CreateClient() (*FileSecretLoader, error) {
	return NewFileSecretLoader(f.SecretsDir)
}

// FileSecretLoader reads one secret per file from a directory, the layout used by
// Docker and Kubernetes secret mounts. Contents are whitespace-trimmed.
//
//	password: ${file:db_password}  # <secrets_dir>/db_password
type FileSecretLoader struct {
	secretsDir string
}

func NewFileSecretLoader(secretsDir string) (*FileSecretLoader, error) {
	if secretsDir == "" {
		return nil, errors.New("no secrets directory configured")
	}
	abs, err := filepath.Abs(secretsDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve secrets directory")
	}
	return &FileSecretLoader{secretsDir: abs}, nil
}

func (f *FileSecretLoader) Resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("no file specified for file secret")
	}
	if filepath.IsAbs(key) {
		return "", errors.New("invalid secret key: absolute paths not allowed")
	}

	clean := filepath.Clean(key)
	if strings.Contains(clean, "..") {
		return "", errors.New("invalid secret key: path traversal detected")
	}

	path := filepath.Join(f.secretsDir, clean)
	if !strings.HasPrefix(path, f.secretsDir+string(filepath.Separator)) {
		return "", errors.New("invalid secret key: outside secrets directory")
	}

	// #nosec G304 -- path is confined to secretsDir above
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Errorf("secret %q not found", key)
		}
		return "", errors.Wrapf(err, "failed to read secret %q", key)
	}

	log.Debug().Str("file", path).Msg("Resolved secret from file")
	return strings.TrimSpace(string(content)), nil
}

func (f *FileSecretLoader) Name() string {
	return "File"
}
