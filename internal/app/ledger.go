package app

import (
	"context"

	"github.com/better-wallet/keyring/internal/codec"
	"github.com/better-wallet/keyring/internal/logger"
	apperrors "github.com/better-wallet/keyring/pkg/errors"
	"github.com/better-wallet/keyring/pkg/types"
)

// SubmitRequest runs the request's approval state machine entry point.
//
// In synchronous mode the request is dispatched inline and never stored: the
// result comes back in the same call and the ledger is untouched. In
// asynchronous mode the request is stored pending and persisted; it later
// resolves through ApproveRequest or RejectRequest.
func (k *Keyring) SubmitRequest(ctx context.Context, req *types.SigningRequest) (*types.SubmitResult, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if req.ID == "" {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest,
			"Signing request must carry an id", "", 400)
	}
	if req.Scope != "" && !codec.IsEvmScope(req.Scope) {
		return nil, apperrors.NewWithDetail(apperrors.ErrCodeBadRequest,
			"Unsupported request scope", "scope: "+req.Scope, 400)
	}

	wallet, ok := k.state.Wallets[req.Account.String()]
	if !ok {
		return nil, apperrors.NotFound("account", req.Account.String())
	}

	if k.state.UseSynchronousApprovals {
		result, err := k.dispatch(ctx, wallet, req.Request)
		if err != nil {
			return nil, err
		}
		return &types.SubmitResult{Pending: false, Result: result}, nil
	}

	k.state.Requests[req.ID] = req
	if err := k.persist(ctx); err != nil {
		delete(k.state.Requests, req.ID)
		return nil, err
	}
	logger.Info(ctx, "request queued", "request_id", req.ID, "method", req.Request.Method)
	return &types.SubmitResult{Pending: true}, nil
}

// ListRequests returns all pending signing requests.
func (k *Keyring) ListRequests(_ context.Context) []*types.SigningRequest {
	k.mu.Lock()
	defer k.mu.Unlock()

	requests := make([]*types.SigningRequest, 0, len(k.state.Requests))
	for _, req := range k.state.Requests {
		requests = append(requests, req)
	}
	return requests
}

// GetRequest returns one pending signing request by id.
func (k *Keyring) GetRequest(_ context.Context, id string) (*types.SigningRequest, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	req, ok := k.state.Requests[id]
	if !ok {
		return nil, apperrors.NotFound("request", id)
	}
	return req, nil
}

// ApproveRequest resolves a pending request: the signer account is looked up
// against the latest state (it may have been deleted since submission), the
// signing operation runs, and the entry is removed and persisted before the
// result is returned. Fails with mode_conflict while synchronous approvals
// are active, since nothing is ever queued in that mode.
func (k *Keyring) ApproveRequest(ctx context.Context, id string) (any, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.state.UseSynchronousApprovals {
		return nil, apperrors.ModeConflict("approveRequest")
	}
	req, ok := k.state.Requests[id]
	if !ok {
		return nil, apperrors.NotFound("request", id)
	}
	wallet, ok := k.state.Wallets[req.Account.String()]
	if !ok {
		return nil, apperrors.NotFound("account", req.Account.String())
	}

	result, err := k.dispatch(ctx, wallet, req.Request)
	if err != nil {
		return nil, err
	}

	delete(k.state.Requests, id)
	if err := k.persist(ctx); err != nil {
		k.state.Requests[id] = req
		return nil, err
	}
	logger.Info(ctx, "request approved", "request_id", id, "method", req.Request.Method)
	return result, nil
}

// RejectRequest removes a pending request without signing. Same not_found and
// mode_conflict semantics as ApproveRequest.
func (k *Keyring) RejectRequest(ctx context.Context, id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.state.UseSynchronousApprovals {
		return apperrors.ModeConflict("rejectRequest")
	}
	req, ok := k.state.Requests[id]
	if !ok {
		return apperrors.NotFound("request", id)
	}

	delete(k.state.Requests, id)
	if err := k.persist(ctx); err != nil {
		k.state.Requests[id] = req
		return err
	}
	logger.Info(ctx, "request rejected", "request_id", id)
	return nil
}
