package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionTable(t *testing.T) {
	table := NewPermissionTable(DefaultPermissions())

	t.Run("wallet origin lifecycle", func(t *testing.T) {
		assert.True(t, table.Allows("metamask", MethodSubmitRequest))
		assert.True(t, table.Allows("metamask", MethodListAccounts))
		assert.False(t, table.Allows("metamask", MethodExportAccount))
		assert.False(t, table.Allows("metamask", MethodToggleSyncApproval))
	})

	t.Run("dapp origin management surface", func(t *testing.T) {
		for _, origin := range []string{"http://localhost:8000", "https://metamask.github.io"} {
			assert.True(t, table.Allows(origin, MethodExportAccount))
			assert.True(t, table.Allows(origin, MethodApproveRequest))
			assert.False(t, table.Allows(origin, MethodSubmitRequest))
		}
	})

	t.Run("unknown origin gets nothing", func(t *testing.T) {
		assert.False(t, table.Allows("https://evil.example", MethodListAccounts))
		assert.False(t, table.Allows("", MethodListAccounts))
	})

	t.Run("unknown method gets nothing", func(t *testing.T) {
		assert.False(t, table.Allows("metamask", "keyring_selfDestruct"))
	})
}

func TestOriginLimiter(t *testing.T) {
	t.Run("stays within burst", func(t *testing.T) {
		limiter := newOriginLimiter(1, 5)
		for i := 0; i < 5; i++ {
			assert.True(t, limiter.allow("metamask"))
		}
		assert.False(t, limiter.allow("metamask"))
	})

	t.Run("origins have independent budgets", func(t *testing.T) {
		limiter := newOriginLimiter(1, 1)
		assert.True(t, limiter.allow("a"))
		assert.False(t, limiter.allow("a"))
		assert.True(t, limiter.allow("b"))
	})
}
