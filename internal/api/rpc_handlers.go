package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/better-wallet/keyring/internal/app"
	"github.com/better-wallet/keyring/internal/logger"
	apperrors "github.com/better-wallet/keyring/pkg/errors"
	"github.com/better-wallet/keyring/pkg/types"
)

// JSON-RPC 2.0 error codes used at the boundary.
const (
	rpcCodeParse          = -32700
	rpcCodeInvalidRequest = -32600
	rpcCodeMethodNotFound = -32601
	rpcCodeServerError    = -32000
)

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// idParam is the single-id parameter object shared by several methods.
type idParam struct {
	ID string `json:"id"`
}

// handleRPC serves the single JSON-RPC endpoint. Every call is checked
// against the origin permission table and the per-origin rate limit before
// it reaches the engine.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	origin := r.Header.Get("Origin")

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeRPCError(w, nil, &rpcError{Code: rpcCodeParse, Message: "invalid JSON"})
		return
	}

	ctx := logger.WithCall(r.Context(), origin, req.Method)
	r = r.WithContext(ctx)

	if !s.permissions.Allows(origin, req.Method) {
		appErr := apperrors.PermissionDenied(origin, req.Method)
		s.metrics.RPCRequests.WithLabelValues(req.Method, "denied").Inc()
		logger.Warn(ctx, "permission denied")
		s.writeRPCError(w, req.ID, &rpcError{
			Code:    rpcCodeInvalidRequest,
			Message: appErr.Message,
			Data:    appErr,
		})
		return
	}
	if !s.limiter.allow(origin) {
		s.metrics.RPCRequests.WithLabelValues(req.Method, "rate_limited").Inc()
		s.writeRPCError(w, req.ID, &rpcError{Code: rpcCodeServerError, Message: "rate limit exceeded"})
		return
	}

	result, err := s.dispatch(r, &req)
	if err != nil {
		s.metrics.RPCRequests.WithLabelValues(req.Method, "error").Inc()
		logger.Error(ctx, "rpc call failed", "error", err)
		s.writeRPCError(w, req.ID, toRPCError(err))
		return
	}

	s.metrics.RPCRequests.WithLabelValues(req.Method, "ok").Inc()
	s.writeJSON(w, &rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

// dispatch routes a permitted call to the engine. The method set is closed;
// anything else is a method-not-found error (which, because the permission
// table only names known methods, is unreachable for allowed origins).
func (s *Server) dispatch(r *http.Request, req *rpcRequest) (any, error) {
	ctx := r.Context()

	switch req.Method {
	case MethodListAccounts:
		return s.keyring.ListAccounts(ctx), nil

	case MethodGetAccount:
		id, err := accountIDParam(req.Params)
		if err != nil {
			return nil, err
		}
		return s.keyring.GetAccount(ctx, id)

	case MethodCreateAccount:
		opts, err := createAccountParams(req.Params)
		if err != nil {
			return nil, err
		}
		account, err := s.keyring.CreateAccount(ctx, opts)
		if err != nil {
			return nil, err
		}
		return account, nil

	case MethodUpdateAccount:
		var p struct {
			Account *types.Account `json:"account"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Account == nil {
			return nil, invalidParams("expected {account}", err)
		}
		return nil, s.keyring.UpdateAccount(ctx, p.Account)

	case MethodDeleteAccount:
		id, err := accountIDParam(req.Params)
		if err != nil {
			return nil, err
		}
		return nil, s.keyring.DeleteAccount(ctx, id)

	case MethodExportAccount:
		id, err := accountIDParam(req.Params)
		if err != nil {
			return nil, err
		}
		privateKey, err := s.keyring.ExportAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]string{"privateKey": privateKey}, nil

	case MethodListRequests:
		return s.keyring.ListRequests(ctx), nil

	case MethodGetRequest:
		var p idParam
		if err := json.Unmarshal(req.Params, &p); err != nil || p.ID == "" {
			return nil, invalidParams("expected {id}", err)
		}
		return s.keyring.GetRequest(ctx, p.ID)

	case MethodSubmitRequest:
		var signingReq types.SigningRequest
		if err := json.Unmarshal(req.Params, &signingReq); err != nil {
			return nil, invalidParams("expected a signing request object", err)
		}
		result, err := s.keyring.SubmitRequest(ctx, &signingReq)
		if err != nil {
			return nil, err
		}
		if !result.Pending {
			s.metrics.Signatures.WithLabelValues(signingReq.Request.Method).Inc()
		}
		return result, nil

	case MethodApproveRequest:
		var p idParam
		if err := json.Unmarshal(req.Params, &p); err != nil || p.ID == "" {
			return nil, invalidParams("expected {id}", err)
		}
		result, err := s.keyring.ApproveRequest(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		s.metrics.Signatures.WithLabelValues(MethodApproveRequest).Inc()
		return result, nil

	case MethodRejectRequest:
		var p idParam
		if err := json.Unmarshal(req.Params, &p); err != nil || p.ID == "" {
			return nil, invalidParams("expected {id}", err)
		}
		return nil, s.keyring.RejectRequest(ctx, p.ID)

	case MethodToggleSyncApproval:
		return s.keyring.ToggleSyncApprovals(ctx)

	case MethodGetSyncApproval:
		return s.keyring.SyncApprovals(), nil
	}

	return nil, apperrors.UnsupportedMethod(req.Method)
}

// accountIDParam decodes an {id} parameter holding an account UUID.
func accountIDParam(params json.RawMessage) (uuid.UUID, error) {
	var p idParam
	if err := json.Unmarshal(params, &p); err != nil || p.ID == "" {
		return uuid.Nil, invalidParams("expected {id}", err)
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return uuid.Nil, invalidParams("id must be a UUID", err)
	}
	return id, nil
}

// createAccountParams decodes the createAccount options bag. The name and an
// optional imported private key travel inside the bag; everything else stays
// as opaque account options.
func createAccountParams(params json.RawMessage) (app.CreateAccountOptions, error) {
	opts := app.CreateAccountOptions{}
	if len(params) == 0 {
		return opts, nil
	}
	bag := make(map[string]any)
	if err := json.Unmarshal(params, &bag); err != nil {
		return opts, invalidParams("expected an options object", err)
	}
	if name, ok := bag["name"].(string); ok {
		opts.Name = name
		delete(bag, "name")
	}
	if pk, ok := bag["privateKey"].(string); ok {
		opts.PrivateKeyHex = pk
		delete(bag, "privateKey")
	}
	if len(bag) > 0 {
		opts.Options = bag
	}
	return opts, nil
}

func invalidParams(message string, err error) *apperrors.AppError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, message, detail, http.StatusBadRequest)
}

// toRPCError maps an engine error to a JSON-RPC error object, carrying the
// structured AppError as data so callers see the stable code.
func toRPCError(err error) *rpcError {
	if appErr, ok := apperrors.IsAppError(err); ok {
		code := rpcCodeServerError
		switch appErr.Code {
		case apperrors.ErrCodeUnsupportedMethod:
			code = rpcCodeMethodNotFound
		case apperrors.ErrCodeBadRequest:
			code = rpcCodeInvalidRequest
		}
		return &rpcError{Code: code, Message: appErr.Message, Data: appErr}
	}
	return &rpcError{Code: rpcCodeServerError, Message: err.Error()}
}

func (s *Server) writeJSON(w http.ResponseWriter, resp *rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) writeRPCError(w http.ResponseWriter, id json.RawMessage, rpcErr *rpcError) {
	s.writeJSON(w, &rpcResponse{JSONRPC: "2.0", ID: id, Error: rpcErr})
}
