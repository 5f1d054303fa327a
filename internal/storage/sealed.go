package storage

import (
	"context"
	"fmt"

	"github.com/better-wallet/keyring/internal/seal"
)

// SealedStore wraps a StateStore and applies a Sealer around every blob.
type SealedStore struct {
	inner  StateStore
	sealer seal.Sealer
}

// NewSealedStore wraps a store with a sealer.
func NewSealedStore(inner StateStore, sealer seal.Sealer) *SealedStore {
	return &SealedStore{inner: inner, sealer: sealer}
}

// Load reads and unseals the blob.
func (s *SealedStore) Load(ctx context.Context) ([]byte, error) {
	sealed, err := s.inner.Load(ctx)
	if err != nil || sealed == nil {
		return nil, err
	}
	plaintext, err := s.sealer.Open(ctx, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal state: %w", err)
	}
	return plaintext, nil
}

// Save seals and writes the blob.
func (s *SealedStore) Save(ctx context.Context, blob []byte) error {
	sealed, err := s.sealer.Seal(ctx, blob)
	if err != nil {
		return fmt.Errorf("failed to seal state: %w", err)
	}
	return s.inner.Save(ctx, sealed)
}
