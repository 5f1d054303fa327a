// Package app implements the keyring engine: the account registry, the
// request ledger with its synchronous/asynchronous approval state machine,
// and the signing dispatch logic behind the RPC boundary.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/better-wallet/keyring/internal/logger"
	"github.com/better-wallet/keyring/internal/storage"
	apperrors "github.com/better-wallet/keyring/pkg/errors"
	"github.com/better-wallet/keyring/pkg/types"
)

// EventNotifier receives account lifecycle notifications after a mutation has
// been persisted. Implementations relay them to an external controller.
type EventNotifier interface {
	AccountCreated(ctx context.Context, account *types.Account)
	AccountUpdated(ctx context.Context, account *types.Account)
	AccountDeleted(ctx context.Context, id uuid.UUID)
}

// LogNotifier logs account events instead of relaying them anywhere. Used
// when no controller is attached.
type LogNotifier struct{}

// AccountCreated logs an account creation event.
func (LogNotifier) AccountCreated(ctx context.Context, account *types.Account) {
	logger.Info(ctx, "account created", "account_id", account.ID, "address", account.Address)
}

// AccountUpdated logs an account update event.
func (LogNotifier) AccountUpdated(ctx context.Context, account *types.Account) {
	logger.Info(ctx, "account updated", "account_id", account.ID)
}

// AccountDeleted logs an account deletion event.
func (LogNotifier) AccountDeleted(ctx context.Context, id uuid.UUID) {
	logger.Info(ctx, "account deleted", "account_id", id)
}

// Options configures engine behavior that is not part of the persisted state.
type Options struct {
	// UniqueNames enforces name uniqueness across named accounts.
	UniqueNames bool
	// Notifier receives account lifecycle events; defaults to LogNotifier.
	Notifier EventNotifier
	// OnPersist observes the size of each successfully persisted blob.
	OnPersist func(bytes int)
}

// Keyring is the engine facade. It owns the in-memory state, serializes all
// operations through one mutex, and persists the complete aggregate state
// before any mutating call returns. A failed persist rolls the in-memory
// change back, so partial writes are never observable.
type Keyring struct {
	mu          sync.Mutex
	state       *types.State
	store       storage.StateStore
	notifier    EventNotifier
	uniqueNames bool
	onPersist   func(int)
}

// LoadState reads the persisted blob from the host store. Absent state loads
// as the zero state.
func LoadState(ctx context.Context, store storage.StateStore) (*types.State, error) {
	blob, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyring state: %w", err)
	}
	state := types.NewState()
	if blob == nil {
		return state, nil
	}
	if err := json.Unmarshal(blob, state); err != nil {
		return nil, fmt.Errorf("failed to decode keyring state: %w", err)
	}
	if state.Wallets == nil {
		state.Wallets = make(map[string]*types.Wallet)
	}
	if state.Requests == nil {
		state.Requests = make(map[string]*types.SigningRequest)
	}
	return state, nil
}

// New creates a keyring engine over the given state and host store.
func New(state *types.State, store storage.StateStore, opts Options) *Keyring {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Keyring{
		state:       state,
		store:       store,
		notifier:    notifier,
		uniqueNames: opts.UniqueNames,
		onPersist:   opts.OnPersist,
	}
}

// SyncApprovals reports whether synchronous approvals are active.
func (k *Keyring) SyncApprovals() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state.UseSynchronousApprovals
}

// ToggleSyncApprovals flips the synchronous/asynchronous approval mode and
// persists the new setting.
func (k *Keyring) ToggleSyncApprovals(ctx context.Context) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.state.UseSynchronousApprovals = !k.state.UseSynchronousApprovals
	if err := k.persist(ctx); err != nil {
		k.state.UseSynchronousApprovals = !k.state.UseSynchronousApprovals
		return false, err
	}
	logger.Info(ctx, "approval mode toggled", "synchronous", k.state.UseSynchronousApprovals)
	return k.state.UseSynchronousApprovals, nil
}

// persist writes the complete aggregate state to the host store. Callers hold
// the mutex and roll their mutation back if this fails.
func (k *Keyring) persist(ctx context.Context) error {
	blob, err := json.Marshal(k.state)
	if err != nil {
		return apperrors.StateNotPersisted(fmt.Sprintf("encode: %v", err))
	}
	if err := k.store.Save(ctx, blob); err != nil {
		return apperrors.StateNotPersisted(err.Error())
	}
	if k.onPersist != nil {
		k.onPersist(len(blob))
	}
	return nil
}
