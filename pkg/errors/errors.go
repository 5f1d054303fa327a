package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an engine-level error with a stable code. Every error
// that crosses the RPC boundary is one of these; the engine never surfaces a
// bare string.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeBadRequest            = "bad_request"
	ErrCodeInternalError         = "internal_error"
	ErrCodeInvalidKeyMaterial    = "invalid_key_material"
	ErrCodeDuplicateAddress      = "duplicate_address"
	ErrCodeDuplicateName         = "duplicate_name"
	ErrCodeNotFound              = "not_found"
	ErrCodeSignatureVerification = "signature_verification_failed"
	ErrCodeModeConflict          = "mode_conflict"
	ErrCodeUnsupportedMethod     = "unsupported_method"
	ErrCodePermissionDenied      = "permission_denied"
	ErrCodeStateNotPersisted     = "state_not_persisted"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewWithDetail creates a new AppError with additional detail
func NewWithDetail(code, message, detail string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Detail:     detail,
		StatusCode: statusCode,
	}
}

// InvalidKeyMaterial reports a supplied private key that fails curve validity.
func InvalidKeyMaterial(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidKeyMaterial,
		Message:    "Invalid private key material",
		Detail:     detail,
		StatusCode: http.StatusBadRequest,
	}
}

// DuplicateAddress reports an address uniqueness violation.
func DuplicateAddress(address string) *AppError {
	return &AppError{
		Code:       ErrCodeDuplicateAddress,
		Message:    "Account address already in use",
		Detail:     fmt.Sprintf("address: %s", address),
		StatusCode: http.StatusConflict,
	}
}

// DuplicateName reports a name uniqueness violation.
func DuplicateName(name string) *AppError {
	return &AppError{
		Code:       ErrCodeDuplicateName,
		Message:    "Account name already in use",
		Detail:     fmt.Sprintf("name: %s", name),
		StatusCode: http.StatusConflict,
	}
}

// NotFound reports a missing account or request, naming the kind and id.
func NotFound(kind, id string) *AppError {
	return &AppError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", kind),
		Detail:     fmt.Sprintf("%s: %s", kind, id),
		StatusCode: http.StatusNotFound,
	}
}

// SignatureVerificationFailed reports a recovery self-check mismatch. The
// signing operation must abort rather than return the unverified signature.
func SignatureVerificationFailed(claimed, recovered string) *AppError {
	return &AppError{
		Code:       ErrCodeSignatureVerification,
		Message:    "Signature verification failed",
		Detail:     fmt.Sprintf("claimed: %s, recovered: %s", claimed, recovered),
		StatusCode: http.StatusInternalServerError,
	}
}

// ModeConflict reports approve/reject called while synchronous approvals are
// active, so nothing is ever queued.
func ModeConflict(op string) *AppError {
	return &AppError{
		Code:       ErrCodeModeConflict,
		Message:    "Operation conflicts with synchronous approval mode",
		Detail:     fmt.Sprintf("operation: %s", op),
		StatusCode: http.StatusConflict,
	}
}

// UnsupportedMethod reports a signing method the dispatcher does not implement.
func UnsupportedMethod(method string) *AppError {
	return &AppError{
		Code:       ErrCodeUnsupportedMethod,
		Message:    "Unsupported signing method",
		Detail:     fmt.Sprintf("method: %s", method),
		StatusCode: http.StatusBadRequest,
	}
}

// PermissionDenied reports an origin that may not call the given method.
func PermissionDenied(origin, method string) *AppError {
	return &AppError{
		Code:       ErrCodePermissionDenied,
		Message:    "Origin is not allowed to call method",
		Detail:     fmt.Sprintf("origin: %s, method: %s", origin, method),
		StatusCode: http.StatusForbidden,
	}
}

// StateNotPersisted reports a failed host persist; the in-memory mutation was
// rolled back and the call failed as a whole.
func StateNotPersisted(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeStateNotPersisted,
		Message:    "Failed to persist keyring state",
		Detail:     detail,
		StatusCode: http.StatusInternalServerError,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
