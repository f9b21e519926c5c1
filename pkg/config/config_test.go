package config_test

import (
	"os"
	"path/filepath"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/config/secrets"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type listenerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

func (c listenerConfig) Validate() error {
	if c.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func (c listenerConfig) CreateClient() (string, error) {
	return c.Host + ":" + c.Secret, nil
}

type mockLoader map[string]string

func (m mockLoader) Resolve(key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func (m mockLoader) Name() string { return "mock" }

var _ = Describe("Config", func() {
	var path string

	BeforeEach(func() {
		secrets.Register("mock", mockLoader{"my-secret": "super-secret-value"})
		DeferCleanup(secrets.Unregister, "mock")

		path = filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte(`
listener:
  host: localhost
  port: 8080
  secret: ${mock:my-secret}
broken:
  host: localhost
settings:
  DB_PROVIDER: PostgreSQL
  ConnectionStrings:
    Database: Host=${mock:my-secret}
`), 0o600)).To(Succeed())
	})

	It("reads modules", func() {
		modules, err := config.ReadModular(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(modules).To(HaveKey("listener"))
		Expect(modules).To(HaveKey("settings"))
	})

	It("fails on unreadable or malformed files", func() {
		_, err := config.NewConfig(filepath.Join(filepath.Dir(path), "missing.yaml"))
		Expect(err).To(HaveOccurred())

		bad := filepath.Join(filepath.Dir(path), "bad.yaml")
		Expect(os.WriteFile(bad, []byte("listener: [unclosed"), 0o600)).To(Succeed())
		_, err = config.NewConfig(bad)
		Expect(err).To(MatchError(ContainSubstring("failed to parse")))
	})

	It("gets, expands and validates a module", func() {
		cfg, err := config.NewConfig(path)
		Expect(err).NotTo(HaveOccurred())

		listener, err := config.Get[listenerConfig](cfg, "listener")
		Expect(err).NotTo(HaveOccurred())
		Expect(listener.Host).To(Equal("localhost"))
		Expect(listener.Port).To(Equal(8080))
		Expect(listener.Secret).To(Equal("super-secret-value"))
	})

	It("returns nil for missing modules", func() {
		cfg, err := config.NewConfig(path)
		Expect(err).NotTo(HaveOccurred())
		listener, err := config.Get[listenerConfig](cfg, "absent")
		Expect(err).NotTo(HaveOccurred())
		Expect(listener).To(BeNil())

		client, partial, err := config.GetClient[listenerConfig, string](cfg, "absent")
		Expect(err).NotTo(HaveOccurred())
		Expect(client).To(BeNil())
		Expect(partial).To(BeNil())
	})

	It("reports invalid modules with their key", func() {
		cfg, err := config.NewConfig(path)
		Expect(err).NotTo(HaveOccurred())
		_, err = config.Get[listenerConfig](cfg, "broken")
		Expect(err).To(MatchError(And(ContainSubstring(`"broken"`), ContainSubstring("port is required"))))
	})

	It("builds clients from modules", func() {
		cfg, err := config.NewConfig(path)
		Expect(err).NotTo(HaveOccurred())
		client, partial, err := config.GetClient[listenerConfig, string](cfg, "listener")
		Expect(err).NotTo(HaveOccurred())
		Expect(*client).To(Equal("localhost:super-secret-value"))
		Expect(partial.Port).To(Equal(8080))
	})

	It("expands free-form settings", func() {
		cfg, err := config.NewConfig(path)
		Expect(err).NotTo(HaveOccurred())
		settings, err := config.Get[config.Settings](cfg, "settings")
		Expect(err).NotTo(HaveOccurred())

		src := config.NewMapSource(*settings)
		Expect(src.Lookup("connectionstrings:database")).To(Equal("Host=super-secret-value"))
		Expect(settings.Keys()).To(Equal([]string{"connectionstrings:database", "db_provider"}))
	})

	It("unmarshals nil raw config to nil", func() {
		out, err := config.Unmarshal[listenerConfig](nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeNil())
	})
})
