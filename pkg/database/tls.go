package database

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// TLSConfig is the TLS block shared by the Redis and MongoDB session backends. Its
// presence enables TLS.
type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	CAFile             string `yaml:"ca_file"`
}

func (t TLSConfig) Validate() error {
	if (t.CertFile == "") != (t.KeyFile == "") {
		return errors.New("cert_file and key_file must be set together")
	}
	return nil
}

// Build loads the referenced certificates.
func (t TLSConfig) Build() (*tls.Config, error) {
	// #nosec G402 -- InsecureSkipVerify is an explicit opt-in for dev/test environments
	cfg := &tls.Config{InsecureSkipVerify: t.InsecureSkipVerify}

	if t.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load client certificate")
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if t.CAFile != "" {
		// #nosec G304 -- path comes from configuration
		pem, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read CA certificate")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("failed to parse CA certificate %q", t.CAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
