package app

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/better-wallet/keyring/internal/storage"
	apperrors "github.com/better-wallet/keyring/pkg/errors"
	"github.com/better-wallet/keyring/pkg/types"
)

var lowerHexAddress = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("generates a fresh account", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})

		account, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "hot"})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, account.ID)
		assert.Equal(t, "hot", account.Name)
		assert.Regexp(t, lowerHexAddress, account.Address)
		assert.Equal(t, types.AccountTypeEOA, account.Type)
		assert.Equal(t, types.EOAMethods(), account.Methods)
	})

	t.Run("imports an existing key", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})

		account, err := keyring.CreateAccount(ctx, CreateAccountOptions{
			PrivateKeyHex: testKeyHex,
			Options:       map[string]any{"label": "imported"},
		})
		require.NoError(t, err)

		assert.Equal(t, testKeyAddr, account.Address)
		assert.Equal(t, "imported", account.Options["label"])

		exported, err := keyring.ExportAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, testKeyHex, exported)
	})

	t.Run("rejects invalid key material", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})

		_, err := keyring.CreateAccount(ctx, CreateAccountOptions{PrivateKeyHex: "zz"})
		assertCode(t, err, apperrors.ErrCodeInvalidKeyMaterial)
	})

	t.Run("rejects duplicate address", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})

		_, err := keyring.CreateAccount(ctx, CreateAccountOptions{PrivateKeyHex: testKeyHex})
		require.NoError(t, err)

		_, err = keyring.CreateAccount(ctx, CreateAccountOptions{PrivateKeyHex: "0x" + testKeyHex})
		assertCode(t, err, apperrors.ErrCodeDuplicateAddress)
	})

	t.Run("rejects duplicate name when uniqueness is enforced", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{UniqueNames: true})

		_, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "savings"})
		require.NoError(t, err)

		_, err = keyring.CreateAccount(ctx, CreateAccountOptions{Name: "savings"})
		assertCode(t, err, apperrors.ErrCodeDuplicateName)
	})

	t.Run("allows duplicate names when uniqueness is off", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{UniqueNames: false})

		_, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "same"})
		require.NoError(t, err)
		_, err = keyring.CreateAccount(ctx, CreateAccountOptions{Name: "same"})
		require.NoError(t, err)
	})

	t.Run("allows multiple unnamed accounts", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{UniqueNames: true})

		_, err := keyring.CreateAccount(ctx, CreateAccountOptions{})
		require.NoError(t, err)
		_, err = keyring.CreateAccount(ctx, CreateAccountOptions{})
		require.NoError(t, err)
	})

	t.Run("rolls back on persist failure", func(t *testing.T) {
		state := types.NewState()
		keyring := New(state, &failingStore{inner: storage.NewMemoryStore(), failAlways: true}, Options{})

		_, err := keyring.CreateAccount(ctx, CreateAccountOptions{})
		assertCode(t, err, apperrors.ErrCodeStateNotPersisted)
		assert.Empty(t, keyring.ListAccounts(ctx))
	})
}

func TestListAndGetAccount(t *testing.T) {
	ctx := context.Background()
	keyring, _ := newTestKeyring(t, Options{})

	created, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "one"})
	require.NoError(t, err)
	_, err = keyring.CreateAccount(ctx, CreateAccountOptions{Name: "two"})
	require.NoError(t, err)

	t.Run("lists all accounts", func(t *testing.T) {
		accounts := keyring.ListAccounts(ctx)
		assert.Len(t, accounts, 2)
	})

	t.Run("gets one account", func(t *testing.T) {
		account, err := keyring.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Address, account.Address)
	})

	t.Run("returned accounts do not alias internal state", func(t *testing.T) {
		account, err := keyring.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		account.Address = "tampered"
		account.Methods[0] = "tampered"

		again, err := keyring.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Address, again.Address)
		assert.Equal(t, types.MethodPersonalSign, again.Methods[0])
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := keyring.GetAccount(ctx, uuid.New())
		assertCode(t, err, apperrors.ErrCodeNotFound)
	})
}

func TestFindAccountByAddress(t *testing.T) {
	ctx := context.Background()
	keyring, _ := newTestKeyring(t, Options{})

	created, err := keyring.CreateAccount(ctx, CreateAccountOptions{PrivateKeyHex: testKeyHex})
	require.NoError(t, err)

	t.Run("matches case-insensitively", func(t *testing.T) {
		for _, addr := range []string{
			testKeyAddr,
			"0x2C7536E3605D9C16a7a3D7b1898e529396a65c23",
		} {
			found, err := keyring.FindAccountByAddress(ctx, addr)
			require.NoError(t, err)
			assert.Equal(t, created.ID, found.ID)
		}
	})

	t.Run("unknown address is not found", func(t *testing.T) {
		_, err := keyring.FindAccountByAddress(ctx,
			"0x0000000000000000000000000000000000000001")
		assertCode(t, err, apperrors.ErrCodeNotFound)
	})
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("updates name and options only", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})
		created, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "before"})
		require.NoError(t, err)

		update := created.Clone()
		update.Name = "after"
		update.Options = map[string]any{"color": "green"}
		update.Address = "0x0000000000000000000000000000000000000000"
		update.Type = "tampered"
		update.Methods = []string{"tampered"}

		require.NoError(t, keyring.UpdateAccount(ctx, update))

		stored, err := keyring.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", stored.Name)
		assert.Equal(t, "green", stored.Options["color"])
		// Immutable fields survive whatever the caller sent.
		assert.Equal(t, created.Address, stored.Address)
		assert.Equal(t, types.AccountTypeEOA, stored.Type)
		assert.Equal(t, types.EOAMethods(), stored.Methods)
	})

	t.Run("clearing options removes them", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})
		created, err := keyring.CreateAccount(ctx, CreateAccountOptions{
			Options: map[string]any{"keep": false},
		})
		require.NoError(t, err)

		update := created.Clone()
		update.Options = nil
		require.NoError(t, keyring.UpdateAccount(ctx, update))

		stored, err := keyring.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Options)
	})

	t.Run("rejects name collisions", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{UniqueNames: true})
		_, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "taken"})
		require.NoError(t, err)
		other, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "free"})
		require.NoError(t, err)

		update := other.Clone()
		update.Name = "taken"
		assertCode(t, keyring.UpdateAccount(ctx, update), apperrors.ErrCodeDuplicateName)
	})

	t.Run("keeping own name is not a collision", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{UniqueNames: true})
		created, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "stable"})
		require.NoError(t, err)

		update := created.Clone()
		update.Options = map[string]any{"touched": true}
		require.NoError(t, keyring.UpdateAccount(ctx, update))
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})
		assertCode(t,
			keyring.UpdateAccount(ctx, &types.Account{ID: uuid.New(), Name: "ghost"}),
			apperrors.ErrCodeNotFound)
	})

	t.Run("rolls back on persist failure", func(t *testing.T) {
		store := &failingStore{inner: storage.NewMemoryStore(), savesLeft: 1}
		keyring := New(types.NewState(), store, Options{})

		created, err := keyring.CreateAccount(ctx, CreateAccountOptions{Name: "stable"})
		require.NoError(t, err)

		update := created.Clone()
		update.Name = "changed"
		assertCode(t, keyring.UpdateAccount(ctx, update), apperrors.ErrCodeStateNotPersisted)

		stored, err := keyring.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "stable", stored.Name)
	})
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("removes account and key material", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})
		created, err := keyring.CreateAccount(ctx, CreateAccountOptions{})
		require.NoError(t, err)

		require.NoError(t, keyring.DeleteAccount(ctx, created.ID))

		_, err = keyring.GetAccount(ctx, created.ID)
		assertCode(t, err, apperrors.ErrCodeNotFound)
		_, err = keyring.ExportAccount(ctx, created.ID)
		assertCode(t, err, apperrors.ErrCodeNotFound)
	})

	t.Run("deleting twice is not idempotent", func(t *testing.T) {
		keyring, _ := newTestKeyring(t, Options{})
		created, err := keyring.CreateAccount(ctx, CreateAccountOptions{})
		require.NoError(t, err)

		require.NoError(t, keyring.DeleteAccount(ctx, created.ID))
		assertCode(t, keyring.DeleteAccount(ctx, created.ID), apperrors.ErrCodeNotFound)
	})

	t.Run("rolls back on persist failure", func(t *testing.T) {
		store := &failingStore{inner: storage.NewMemoryStore(), savesLeft: 1}
		keyring := New(types.NewState(), store, Options{})

		created, err := keyring.CreateAccount(ctx, CreateAccountOptions{})
		require.NoError(t, err)

		assertCode(t, keyring.DeleteAccount(ctx, created.ID), apperrors.ErrCodeStateNotPersisted)

		_, err = keyring.GetAccount(ctx, created.ID)
		require.NoError(t, err)
	})
}

func TestExportAccount(t *testing.T) {
	ctx := context.Background()
	keyring, _ := newTestKeyring(t, Options{})

	t.Run("returns the raw key hex", func(t *testing.T) {
		created, err := keyring.CreateAccount(ctx, CreateAccountOptions{PrivateKeyHex: testKeyHex})
		require.NoError(t, err)

		exported, err := keyring.ExportAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, testKeyHex, exported)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := keyring.ExportAccount(ctx, uuid.New())
		assertCode(t, err, apperrors.ErrCodeNotFound)
	})
}
