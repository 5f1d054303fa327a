// Package crypto implements the keyring's low-level key material operations:
// secp256k1 key generation and import, EIP-191 personal message signing, raw
// digest signing, and recovery-based verification.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	apperrors "github.com/better-wallet/keyring/pkg/errors"
)

// Secret wraps a secp256k1 private key. The scalar can be wiped with Zero
// once the key is no longer needed; the hex form exists only for the
// persisted state blob.
type Secret struct {
	key *ecdsa.PrivateKey
}

// GenerateSecret draws a fresh private key from the platform CSPRNG and
// derives its address. go-ethereum rejection-samples internally, so the
// returned scalar is always non-zero and within the curve order.
func GenerateSecret() (*Secret, common.Address, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &Secret{key: key}, ethcrypto.PubkeyToAddress(key.PublicKey), nil
}

// SecretFromHex imports a hex-encoded private key (with or without 0x
// prefix). The scalar is validated against the curve order; invalid material
// is rejected, never coerced.
func SecretFromHex(privateKeyHex string) (*Secret, common.Address, error) {
	cleaned := strings.TrimPrefix(privateKeyHex, "0x")
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, common.Address{}, apperrors.InvalidKeyMaterial("private key is not valid hex")
	}
	key, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, common.Address{}, apperrors.InvalidKeyMaterial(err.Error())
	}
	return &Secret{key: key}, ethcrypto.PubkeyToAddress(key.PublicKey), nil
}

// Hex returns the 32-byte scalar hex-encoded without a 0x prefix, the format
// used inside the persisted state blob.
func (s *Secret) Hex() string {
	return hex.EncodeToString(ethcrypto.FromECDSA(s.key))
}

// Address derives the Ethereum address for the secret's public key.
func (s *Secret) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.key.PublicKey)
}

// Zero wipes the private scalar in place. The Secret must not be used after.
func (s *Secret) Zero() {
	if s.key == nil {
		return
	}
	bits := s.key.D.Bits()
	for i := range bits {
		bits[i] = 0
	}
	s.key = nil
}

// SignPersonal signs a plain message using the EIP-191 personal message
// convention: the payload is prefixed, length-tagged and keccak-hashed before
// signing. Returns a 65-byte R||S||V signature with V adjusted to 27/28.
func SignPersonal(secret *Secret, message []byte) ([]byte, error) {
	return SignDigest(secret, accounts.TextHash(message))
}

// SignDigest signs a 32-byte digest directly, without prefixing. Returns a
// 65-byte R||S||V signature with V adjusted to 27/28.
func SignDigest(secret *Secret, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := ethcrypto.Sign(digest, secret.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	// go-ethereum returns the recovery id as 0/1; Ethereum wire format uses 27/28.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// SignTransaction signs a transaction with the signer implied by the chain
// id, so legacy envelopes get EIP-155 replay protection and typed envelopes
// keep their raw recovery id.
func SignTransaction(secret *Secret, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	signer := ethtypes.LatestSignerForChainID(chainID)
	signed, err := ethtypes.SignTx(tx, signer, secret.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// RecoverDigest recovers the signing address from a raw digest signature.
func RecoverDigest(digest, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(signature))
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// RecoverPersonal recovers the signing address from an EIP-191 personal
// message signature. Used as the mandatory self-check after signing.
func RecoverPersonal(message, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(signature))
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
