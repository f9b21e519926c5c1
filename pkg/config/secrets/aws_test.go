package secrets

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type fakeSecretsManager struct {
	value *string
	err   error
}

func (f fakeSecretsManager) GetSecretValue(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

var _ = Describe("AWS Secrets Manager", func() {
	It("validates region and secret name", func() {
		Expect(AWSConfig{SecretName: "s"}.Validate()).To(MatchError(ContainSubstring("region")))
		Expect(AWSConfig{Region: "eu-west-1"}.Validate()).To(MatchError(ContainSubstring("secret name")))
		Expect(AWSConfig{Region: "eu-west-1", SecretName: "s"}.Validate()).To(Succeed())
	})

	It("creates a client with static credentials and a custom endpoint", func() {
		client, err := AWSConfig{
			Region:          "eu-west-1",
			SecretName:      "contacts",
			AccessKeyID:     "id",
			SecretAccessKey: "key",
			Endpoint:        "http://localstack:4566",
		}.CreateClient()
		Expect(err).NotTo(HaveOccurred())
		Expect(client).NotTo(BeNil())
	})

	It("indexes JSON secrets by key", func() {
		loader := &AWSSecretLoader{secretName: "contacts", client: fakeSecretsManager{value: aws.String(`{"db_password":"json"}`)}}
		Expect(loader.Resolve("db_password")).To(Equal("json"))
		_, err := loader.Resolve("other")
		Expect(err).To(MatchError(ContainSubstring(`key "other" not found`)))
	})

	It("returns plain text secrets whole", func() {
		loader := &AWSSecretLoader{secretName: "contacts", client: fakeSecretsManager{value: aws.String("plain")}}
		Expect(loader.Resolve("ignored")).To(Equal("plain"))
	})

	It("propagates errors and binary secrets", func() {
		loader := &AWSSecretLoader{secretName: "contacts", client: fakeSecretsManager{err: errors.New("denied")}}
		_, err := loader.Resolve("k")
		Expect(err).To(MatchError(ContainSubstring("denied")))

		loader.client = fakeSecretsManager{}
		_, err = loader.Resolve("k")
		Expect(err).To(MatchError(ContainSubstring("no string value")))
	})
})
