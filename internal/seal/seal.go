// Package seal provides at-rest envelope encryption for the persisted state
// blob. The engine hands plaintext to the sealed store; the sealer decides
// whether anything stronger than passthrough happens before the bytes reach
// the backend.
package seal

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// Sealer transforms the state blob on its way to and from the backend store.
type Sealer interface {
	Seal(ctx context.Context, plaintext []byte) ([]byte, error)
	Open(ctx context.Context, sealed []byte) ([]byte, error)
}

// NoopSealer passes the blob through unchanged.
type NoopSealer struct{}

// Seal returns the plaintext unchanged.
func (NoopSealer) Seal(_ context.Context, plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

// Open returns the sealed bytes unchanged.
func (NoopSealer) Open(_ context.Context, sealed []byte) ([]byte, error) {
	return sealed, nil
}

// KMSSealer encrypts the blob with an AWS KMS key.
type KMSSealer struct {
	keyID  string
	client *kms.Client
}

// NewKMSSealer creates a sealer bound to the given KMS key. Credentials come
// from the default chain: env vars, shared config, IAM role.
func NewKMSSealer(ctx context.Context, keyID, region string) (*KMSSealer, error) {
	if keyID == "" {
		return nil, fmt.Errorf("KMS key ID is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &KMSSealer{keyID: keyID, client: kms.NewFromConfig(cfg)}, nil
}

// Seal encrypts the blob under the configured key.
func (s *KMSSealer) Seal(ctx context.Context, plaintext []byte) ([]byte, error) {
	output, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(s.keyID),
		Plaintext: plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS encrypt failed: %w", err)
	}
	return output.CiphertextBlob, nil
}

// Open decrypts a previously sealed blob.
func (s *KMSSealer) Open(ctx context.Context, sealed []byte) ([]byte, error) {
	output, err := s.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:          aws.String(s.keyID),
		CiphertextBlob: sealed,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS decrypt failed: %w", err)
	}
	return output.Plaintext, nil
}
