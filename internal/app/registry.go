package app

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/better-wallet/keyring/internal/crypto"
	apperrors "github.com/better-wallet/keyring/pkg/errors"
	"github.com/better-wallet/keyring/pkg/types"
)

// CreateAccountOptions carries the caller-supplied parameters for account
// creation. PrivateKeyHex imports existing key material; when empty a fresh
// key is generated.
type CreateAccountOptions struct {
	Name          string
	PrivateKeyHex string
	Options       map[string]any
}

// ListAccounts returns the public profiles of all accounts. Order follows map
// iteration and is not meaningful.
func (k *Keyring) ListAccounts(_ context.Context) []*types.Account {
	k.mu.Lock()
	defer k.mu.Unlock()

	accounts := make([]*types.Account, 0, len(k.state.Wallets))
	for _, wallet := range k.state.Wallets {
		accounts = append(accounts, wallet.Account.Clone())
	}
	return accounts
}

// GetAccount returns the public profile of one account.
func (k *Keyring) GetAccount(_ context.Context, id uuid.UUID) (*types.Account, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	wallet, ok := k.state.Wallets[id.String()]
	if !ok {
		return nil, apperrors.NotFound("account", id.String())
	}
	return wallet.Account.Clone(), nil
}

// CreateAccount generates or imports key material and registers a new
// account. The address must not collide with an existing wallet, and when
// name uniqueness is enforced the name must be unused. The registry entry and
// the host state are persisted together before the account is returned.
func (k *Keyring) CreateAccount(ctx context.Context, opts CreateAccountOptions) (*types.Account, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	secret, addr, err := importOrGenerate(opts.PrivateKeyHex)
	if err != nil {
		return nil, err
	}
	defer secret.Zero()

	address := strings.ToLower(addr.Hex())
	if k.lookupByAddress(address) != nil {
		return nil, apperrors.DuplicateAddress(address)
	}
	if err := k.checkNameUnique(opts.Name, uuid.Nil); err != nil {
		return nil, err
	}

	account := &types.Account{
		ID:      uuid.New(),
		Name:    opts.Name,
		Address: address,
		Options: opts.Options,
		Methods: types.EOAMethods(),
		Type:    types.AccountTypeEOA,
	}
	account = account.Clone()

	key := account.ID.String()
	k.state.Wallets[key] = &types.Wallet{Account: account, PrivateKey: secret.Hex()}
	if err := k.persist(ctx); err != nil {
		delete(k.state.Wallets, key)
		return nil, err
	}

	k.notifier.AccountCreated(ctx, account)
	return account.Clone(), nil
}

// UpdateAccount merges the mutable fields (name, options) onto the stored
// account. Address, type and supported methods are restored from the existing
// record regardless of what the caller sent, and name uniqueness is
// revalidated against the latest state.
func (k *Keyring) UpdateAccount(ctx context.Context, in *types.Account) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	key := in.ID.String()
	wallet, ok := k.state.Wallets[key]
	if !ok {
		return apperrors.NotFound("account", key)
	}
	if err := k.checkNameUnique(in.Name, in.ID); err != nil {
		return err
	}

	previous := wallet.Account
	merged := previous.Clone()
	merged.Name = in.Name
	merged.Options = nil
	if in.Options != nil {
		merged.Options = make(map[string]any, len(in.Options))
		for key, value := range in.Options {
			merged.Options[key] = value
		}
	}

	wallet.Account = merged
	if err := k.persist(ctx); err != nil {
		wallet.Account = previous
		return err
	}

	k.notifier.AccountUpdated(ctx, merged)
	return nil
}

// DeleteAccount removes the account profile and its key material atomically.
// Deleting an id that does not exist fails with not_found; the operation is
// deliberately not idempotent.
func (k *Keyring) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	key := id.String()
	wallet, ok := k.state.Wallets[key]
	if !ok {
		return apperrors.NotFound("account", key)
	}

	delete(k.state.Wallets, key)
	if err := k.persist(ctx); err != nil {
		k.state.Wallets[key] = wallet
		return err
	}

	k.notifier.AccountDeleted(ctx, id)
	return nil
}

// ExportAccount returns the account's raw private key hex. The RPC boundary
// permission-gates this per origin; the engine itself does not restrict it.
func (k *Keyring) ExportAccount(_ context.Context, id uuid.UUID) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	wallet, ok := k.state.Wallets[id.String()]
	if !ok {
		return "", apperrors.NotFound("account", id.String())
	}
	return wallet.PrivateKey, nil
}

// FindAccountByAddress resolves an account by its Ethereum address,
// case-insensitively.
func (k *Keyring) FindAccountByAddress(_ context.Context, address string) (*types.Account, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	wallet := k.lookupByAddress(address)
	if wallet == nil {
		return nil, apperrors.NotFound("account", strings.ToLower(address))
	}
	return wallet.Account.Clone(), nil
}

// lookupByAddress finds the wallet for an address, case-insensitively.
// Callers hold the mutex. Returns nil when no wallet matches.
func (k *Keyring) lookupByAddress(address string) *types.Wallet {
	needle := strings.ToLower(address)
	for _, wallet := range k.state.Wallets {
		if wallet.Account.Address == needle {
			return wallet
		}
	}
	return nil
}

// checkNameUnique enforces name uniqueness when enabled, skipping the account
// being updated. Unnamed accounts are always allowed.
func (k *Keyring) checkNameUnique(name string, self uuid.UUID) error {
	if !k.uniqueNames || name == "" {
		return nil
	}
	for _, wallet := range k.state.Wallets {
		if wallet.Account.ID != self && wallet.Account.Name == name {
			return apperrors.DuplicateName(name)
		}
	}
	return nil
}

func importOrGenerate(privateKeyHex string) (*crypto.Secret, common.Address, error) {
	if privateKeyHex != "" {
		return crypto.SecretFromHex(privateKeyHex)
	}
	return crypto.GenerateSecret()
}
