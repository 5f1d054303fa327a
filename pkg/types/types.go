// Package types defines the wire-level data model shared between the keyring
// engine and its RPC boundary.
package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// AccountType constants
const (
	AccountTypeEOA = "eip155:eoa"
)

// Signing methods supported by an eip155:eoa account. The list is fixed per
// account type and never changes through updates.
const (
	MethodPersonalSign    = "personal_sign"
	MethodEthSign         = "eth_sign"
	MethodSignTransaction = "eth_signTransaction"
	MethodSignTypedData   = "eth_signTypedData"
	MethodSignTypedDataV1 = "eth_signTypedData_v1"
	MethodSignTypedDataV3 = "eth_signTypedData_v3"
	MethodSignTypedDataV4 = "eth_signTypedData_v4"
)

// EOAMethods returns the signing methods supported by an externally-owned
// account. Returns a fresh slice so callers cannot mutate the canonical list.
func EOAMethods() []string {
	return []string{
		MethodPersonalSign,
		MethodEthSign,
		MethodSignTransaction,
		MethodSignTypedData,
		MethodSignTypedDataV1,
		MethodSignTypedDataV3,
		MethodSignTypedDataV4,
	}
}

// Account is the public profile of a keyring account. Address, Methods and
// Type are fixed at creation time; only Name and Options are mutable.
type Account struct {
	ID      uuid.UUID      `json:"id"`
	Name    string         `json:"name,omitempty"`
	Address string         `json:"address"`
	Options map[string]any `json:"options,omitempty"`
	Methods []string       `json:"supportedMethods"`
	Type    string         `json:"type"`
}

// Clone returns a deep copy of the account so internal state never aliases
// caller-provided maps.
func (a *Account) Clone() *Account {
	c := *a
	c.Methods = append([]string(nil), a.Methods...)
	if a.Options != nil {
		c.Options = make(map[string]any, len(a.Options))
		for k, v := range a.Options {
			c.Options[k] = v
		}
	}
	return &c
}

// Wallet pairs an account with its private key. It is internal to the engine
// and persisted as part of the host-managed state blob; it is never returned
// through the public API.
type Wallet struct {
	Account    *Account `json:"account"`
	PrivateKey string   `json:"privateKey"`
}

// RequestPayload is the embedded JSON-RPC call describing the desired
// cryptographic operation.
type RequestPayload struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// SigningRequest correlates a caller request id with the account that must
// perform the signing and the chain scope it applies to.
type SigningRequest struct {
	ID      string         `json:"id"`
	Account uuid.UUID      `json:"account"`
	Scope   string         `json:"scope"`
	Request RequestPayload `json:"request"`
}

// SubmitResult is the outcome of submitting a signing request. In synchronous
// mode Pending is false and Result carries the signature; in asynchronous
// mode Pending is true and the request waits in the ledger.
type SubmitResult struct {
	Pending bool `json:"pending"`
	Result  any  `json:"result,omitempty"`
}

// State is the aggregate persisted state blob. Its JSON shape is owned by
// this engine but stored opaquely by the host.
type State struct {
	Wallets                 map[string]*Wallet         `json:"wallets"`
	Requests                map[string]*SigningRequest `json:"requests"`
	UseSynchronousApprovals bool                       `json:"useSynchronousApprovals"`
}

// NewState returns the zero state used when the host has nothing persisted.
// Synchronous approvals default to on, matching the stock keyring behavior.
func NewState() *State {
	return &State{
		Wallets:                 make(map[string]*Wallet),
		Requests:                make(map[string]*SigningRequest),
		UseSynchronousApprovals: true,
	}
}
