package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// RPC method names exposed at the boundary.
const (
	MethodListAccounts       = "keyring_listAccounts"
	MethodGetAccount         = "keyring_getAccount"
	MethodCreateAccount      = "keyring_createAccount"
	MethodUpdateAccount      = "keyring_updateAccount"
	MethodDeleteAccount      = "keyring_deleteAccount"
	MethodExportAccount      = "keyring_exportAccount"
	MethodListRequests       = "keyring_listRequests"
	MethodGetRequest         = "keyring_getRequest"
	MethodSubmitRequest      = "keyring_submitRequest"
	MethodApproveRequest     = "keyring_approveRequest"
	MethodRejectRequest      = "keyring_rejectRequest"
	MethodToggleSyncApproval = "keyring_toggleSyncApprovals"
	MethodGetSyncApproval    = "keyring_getSyncApprovals"
)

// DefaultPermissions is the built-in origin -> allowed-methods table. The
// wallet controller origin gets the request lifecycle but not key export;
// the companion dapp origins get the full management surface.
func DefaultPermissions() map[string][]string {
	managementSurface := []string{
		MethodListAccounts,
		MethodGetAccount,
		MethodCreateAccount,
		MethodUpdateAccount,
		MethodDeleteAccount,
		MethodExportAccount,
		MethodListRequests,
		MethodGetRequest,
		MethodApproveRequest,
		MethodRejectRequest,
		MethodToggleSyncApproval,
		MethodGetSyncApproval,
	}
	return map[string][]string{
		"metamask": {
			MethodListAccounts,
			MethodGetAccount,
			MethodCreateAccount,
			MethodUpdateAccount,
			MethodDeleteAccount,
			MethodListRequests,
			MethodGetRequest,
			MethodSubmitRequest,
			MethodApproveRequest,
			MethodRejectRequest,
		},
		"http://localhost:8000":      managementSurface,
		"https://metamask.github.io": managementSurface,
	}
}

// PermissionTable answers whether an origin may call a method. It is a static
// lookup; there is no policy language behind it.
type PermissionTable struct {
	origins map[string]map[string]bool
}

// NewPermissionTable builds a table from an origin -> methods map.
func NewPermissionTable(origins map[string][]string) *PermissionTable {
	table := &PermissionTable{origins: make(map[string]map[string]bool, len(origins))}
	for origin, methods := range origins {
		allowed := make(map[string]bool, len(methods))
		for _, m := range methods {
			allowed[m] = true
		}
		table.origins[origin] = allowed
	}
	return table
}

// Allows reports whether the origin may call the method.
func (t *PermissionTable) Allows(origin, method string) bool {
	return t.origins[origin][method]
}

// originLimiter rate-limits calls per origin.
type originLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newOriginLimiter(perSecond float64, burst int) *originLimiter {
	return &originLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// allow reports whether the origin is within its rate budget.
func (l *originLimiter) allow(origin string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[origin]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[origin] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
