package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// VaultStore persists the state blob in a Vault KV v2 secret. The blob is
// base64-encoded into a single field so Vault treats it as opaque.
type VaultStore struct {
	kv   *vault.KVv2
	path string
}

// VaultConfig carries the connection parameters for a Vault-backed store.
type VaultConfig struct {
	Address string
	Token   string
	KVMount string
	KVPath  string
}

// NewVaultStore creates a store backed by a Vault KV v2 mount.
func NewVaultStore(cfg *VaultConfig) (*VaultStore, error) {
	vcfg := vault.DefaultConfig()
	vcfg.Address = cfg.Address
	client, err := vault.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	return &VaultStore{kv: client.KVv2(cfg.KVMount), path: cfg.KVPath}, nil
}

// Load reads the blob. A missing secret means no state has been persisted yet.
func (v *VaultStore) Load(ctx context.Context) ([]byte, error) {
	secret, err := v.kv.Get(ctx, v.path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state from vault: %w", err)
	}
	encoded, ok := secret.Data["blob"].(string)
	if !ok {
		return nil, fmt.Errorf("vault secret %q has no blob field", v.path)
	}
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode state blob: %w", err)
	}
	return blob, nil
}

// Save replaces the secret with the new blob.
func (v *VaultStore) Save(ctx context.Context, blob []byte) error {
	_, err := v.kv.Put(ctx, v.path, map[string]any{
		"blob": base64.StdEncoding.EncodeToString(blob),
	})
	if err != nil {
		return fmt.Errorf("failed to write state to vault: %w", err)
	}
	return nil
}
