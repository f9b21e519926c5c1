package secrets

import (
	"github.com/hashicorp/vault/api"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type fakeLogical struct {
	secret *api.Secret
	err    error
}

func (f fakeLogical) Read(string) (*api.Secret, error) { return f.secret, f.err }

var _ = Describe("Vault", func() {
	Context("VaultConfig", func() {
		It("requires address, token and path", func() {
			Expect(VaultConfig{Token: "t", Path: "p"}.Validate()).To(MatchError(ContainSubstring("address")))
			Expect(VaultConfig{Address: "http://vault:8200", Path: "p"}.Validate()).To(MatchError(ContainSubstring("token")))
			Expect(VaultConfig{Address: "http://vault:8200", Token: "t"}.Validate()).To(MatchError(ContainSubstring("path")))
			Expect(VaultConfig{Address: "http://vault:8200", Token: "t", Path: "p"}.Validate()).To(Succeed())
		})

		It("creates a namespaced client", func() {
			client, err := VaultConfig{Address: "http://vault:8200", Token: "t", Path: "p", Namespace: "ns"}.CreateClient()
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Token()).To(Equal("t"))
			Expect(client.Namespace()).To(Equal("ns"))
		})
	})

	Context("VaultSecretLoader", func() {
		It("reads KV v2 secrets", func() {
			loader := &VaultSecretLoader{path: "secret/data/contacts", logical: fakeLogical{secret: &api.Secret{
				Data: map[string]any{"data": map[string]any{"db_password": "v2"}},
			}}}
			Expect(loader.Resolve("db_password")).To(Equal("v2"))
		})

		It("reads KV v1 secrets", func() {
			loader := &VaultSecretLoader{path: "secret/contacts", logical: fakeLogical{secret: &api.Secret{
				Data: map[string]any{"db_password": "v1"},
			}}}
			Expect(loader.Resolve("db_password")).To(Equal("v1"))
		})

		It("fails on missing keys, empty secrets and read errors", func() {
			loader := &VaultSecretLoader{path: "p", logical: fakeLogical{secret: &api.Secret{Data: map[string]any{}}}}
			_, err := loader.Resolve("x")
			Expect(err).To(MatchError(ContainSubstring(`secret "x" not found`)))

			loader.logical = fakeLogical{}
			_, err = loader.Resolve("x")
			Expect(err).To(MatchError(ContainSubstring("no secret found")))

			loader.logical = fakeLogical{err: errors.New("boom")}
			_, err = loader.Resolve("x")
			Expect(err).To(MatchError(ContainSubstring("boom")))
		})
	})
})
