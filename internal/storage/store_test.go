package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/better-wallet/keyring/internal/seal"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store loads nil", func(t *testing.T) {
		blob, err := NewMemoryStore().Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, blob)
	})

	t.Run("round-trips a blob", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, []byte(`{"wallets":{}}`)))

		blob, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"wallets":{}}`), blob)
	})

	t.Run("save replaces the previous blob", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, []byte("first")))
		require.NoError(t, store.Save(ctx, []byte("second")))

		blob, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), blob)
	})

	t.Run("loaded blob does not alias the stored one", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, []byte("stable")))

		blob, err := store.Load(ctx)
		require.NoError(t, err)
		blob[0] = 'X'

		again, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("stable"), again)
	})
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file loads nil", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
		blob, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, blob)
	})

	t.Run("round-trips a blob", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		store := NewFileStore(path)

		require.NoError(t, store.Save(ctx, []byte(`{"requests":{}}`)))

		blob, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"requests":{}}`), blob)
	})

	t.Run("repeated saves replace the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		store := NewFileStore(path)

		for i := 0; i < 5; i++ {
			require.NoError(t, store.Save(ctx, []byte(fmt.Sprintf("rev-%d", i))))
		}

		blob, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("rev-4"), blob)
	})

	t.Run("no temp files are left behind", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "state.json"))
		require.NoError(t, store.Save(ctx, []byte("blob")))

		leftovers, err := filepath.Glob(filepath.Join(dir, ".keyring-state-*"))
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})
}

// reversingSealer is a trivially invertible sealer for testing the wrapper.
type reversingSealer struct{}

func (reversingSealer) Seal(_ context.Context, plaintext []byte) ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(plaintext)), nil
}

func (reversingSealer) Open(_ context.Context, sealed []byte) ([]byte, error) {
	return base64.StdEncoding.DecodeString(string(sealed))
}

func TestSealedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("noop sealer passes blobs through", func(t *testing.T) {
		inner := NewMemoryStore()
		store := NewSealedStore(inner, seal.NoopSealer{})

		require.NoError(t, store.Save(ctx, []byte("plain")))

		raw, err := inner.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("plain"), raw)

		blob, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("plain"), blob)
	})

	t.Run("sealer transforms the stored bytes", func(t *testing.T) {
		inner := NewMemoryStore()
		store := NewSealedStore(inner, reversingSealer{})

		require.NoError(t, store.Save(ctx, []byte("secret state")))

		raw, err := inner.Load(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, []byte("secret state"), raw)

		blob, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("secret state"), blob)
	})

	t.Run("empty inner store loads nil without unsealing", func(t *testing.T) {
		store := NewSealedStore(NewMemoryStore(), reversingSealer{})
		blob, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, blob)
	})
}
