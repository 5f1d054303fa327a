package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/better-wallet/keyring/internal/codec"
	"github.com/better-wallet/keyring/internal/crypto"
	apperrors "github.com/better-wallet/keyring/pkg/errors"
	"github.com/better-wallet/keyring/pkg/types"
)

// operation is the closed set of signing operations the dispatcher
// implements. Adding a method means adding a constant here and a case to
// every switch, which the compiler checks.
type operation int

const (
	opPersonalSign operation = iota
	opEthSign
	opSignTransaction
	opSignTypedData
	opSignTypedDataV1
	opSignTypedDataV3
	opSignTypedDataV4
)

// parseOperation maps a JSON-RPC method name to an operation. The boolean is
// false for anything outside the closed set.
func parseOperation(method string) (operation, bool) {
	switch method {
	case types.MethodPersonalSign:
		return opPersonalSign, true
	case types.MethodEthSign:
		return opEthSign, true
	case types.MethodSignTransaction:
		return opSignTransaction, true
	case types.MethodSignTypedData:
		return opSignTypedData, true
	case types.MethodSignTypedDataV1:
		return opSignTypedDataV1, true
	case types.MethodSignTypedDataV3:
		return opSignTypedDataV3, true
	case types.MethodSignTypedDataV4:
		return opSignTypedDataV4, true
	}
	return 0, false
}

// dispatch routes a signing payload to the matching cryptographic operation
// for the given wallet. Callers hold the engine mutex.
func (k *Keyring) dispatch(_ context.Context, wallet *types.Wallet, payload types.RequestPayload) (any, error) {
	op, ok := parseOperation(payload.Method)
	if !ok {
		return nil, apperrors.UnsupportedMethod(payload.Method)
	}

	secret, _, err := crypto.SecretFromHex(wallet.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("stored key for account %s is unusable: %w", wallet.Account.ID, err)
	}
	defer secret.Zero()

	switch op {
	case opPersonalSign:
		return signPersonalMessage(secret, payload.Params)
	case opEthSign:
		return signRawDigest(secret, payload.Params)
	case opSignTransaction:
		return signTransaction(secret, payload.Params)
	case opSignTypedData:
		return signTypedData(wallet, secret, payload.Params, "")
	case opSignTypedDataV1:
		return signTypedData(wallet, secret, payload.Params, string(codec.TypedDataV1))
	case opSignTypedDataV3:
		return signTypedData(wallet, secret, payload.Params, string(codec.TypedDataV3))
	case opSignTypedDataV4:
		return signTypedData(wallet, secret, payload.Params, string(codec.TypedDataV4))
	}
	return nil, apperrors.UnsupportedMethod(payload.Method)
}

// signPersonalMessage handles personal_sign: params are [message, from]. The
// payload is EIP-191 prefixed before signing, and the signature is verified
// by recovery against the claimed signer before it leaves the engine.
func signPersonalMessage(secret *crypto.Secret, params json.RawMessage) (any, error) {
	var p []string
	if err := json.Unmarshal(params, &p); err != nil || len(p) < 2 {
		return nil, badParams("personal_sign expects [message, from]", err)
	}
	message, err := hexutil.Decode(p[0])
	if err != nil {
		return nil, badParams("message must be a 0x hex string", err)
	}
	from := p[1]

	sig, err := crypto.SignPersonal(secret, message)
	if err != nil {
		return nil, err
	}
	recovered, err := crypto.RecoverPersonal(message, sig)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(recovered.Hex(), from) {
		return nil, apperrors.SignatureVerificationFailed(
			strings.ToLower(from), strings.ToLower(recovered.Hex()))
	}
	return hexutil.Encode(sig), nil
}

// signRawDigest handles eth_sign: params are [from, digest]. The 32-byte
// digest is signed directly, without the personal message prefix.
func signRawDigest(secret *crypto.Secret, params json.RawMessage) (any, error) {
	var p []string
	if err := json.Unmarshal(params, &p); err != nil || len(p) < 2 {
		return nil, badParams("eth_sign expects [from, digest]", err)
	}
	from := p[0]
	digest, err := hexutil.Decode(p[1])
	if err != nil {
		return nil, badParams("digest must be a 0x hex string", err)
	}
	if len(digest) != 32 {
		return nil, badParams(fmt.Sprintf("digest must be 32 bytes, got %d", len(digest)), nil)
	}

	sig, err := crypto.SignDigest(secret, digest)
	if err != nil {
		return nil, err
	}
	recovered, err := crypto.RecoverDigest(digest, sig)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(recovered.Hex(), from) {
		return nil, apperrors.SignatureVerificationFailed(
			strings.ToLower(from), strings.ToLower(recovered.Hex()))
	}
	return hexutil.Encode(sig), nil
}

// txParams is the transaction object accepted by eth_signTransaction.
// Quantities are 0x hex per the Ethereum JSON-RPC convention, with decimal
// accepted for compatibility. chainId additionally accepts a JSON number.
type txParams struct {
	From                 string          `json:"from"`
	To                   string          `json:"to"`
	Value                string          `json:"value"`
	Data                 string          `json:"data"`
	Nonce                string          `json:"nonce"`
	Gas                  string          `json:"gas"`
	GasLimit             string          `json:"gasLimit"`
	GasPrice             string          `json:"gasPrice"`
	MaxFeePerGas         string          `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string          `json:"maxPriorityFeePerGas"`
	ChainID              json.RawMessage `json:"chainId"`
}

// signTransaction handles eth_signTransaction: params are [txObject]. The
// envelope follows the fee fields: maxFeePerGas/maxPriorityFeePerGas select
// the dynamic fee envelope, their absence selects legacy. The signed
// transaction is returned as a flat record with no undefined-valued keys.
func signTransaction(secret *crypto.Secret, params json.RawMessage) (any, error) {
	var p []txParams
	if err := json.Unmarshal(params, &p); err != nil || len(p) < 1 {
		return nil, badParams("eth_signTransaction expects [transaction]", err)
	}
	tx := p[0]

	chainID, err := parseChainID(tx.ChainID)
	if err != nil {
		return nil, badParams("invalid chainId", err)
	}
	nonce, err := parseQuantity(tx.Nonce, 0)
	if err != nil {
		return nil, badParams("invalid nonce", err)
	}
	gasLimit, err := parseQuantity(firstNonEmpty(tx.Gas, tx.GasLimit), 21000)
	if err != nil {
		return nil, badParams("invalid gas limit", err)
	}
	value, err := parseBigQuantity(tx.Value)
	if err != nil {
		return nil, badParams("invalid value", err)
	}
	var data []byte
	if tx.Data != "" {
		data, err = hexutil.Decode(tx.Data)
		if err != nil {
			return nil, badParams("data must be a 0x hex string", err)
		}
	}
	var to *common.Address
	if tx.To != "" {
		addr := common.HexToAddress(tx.To)
		to = &addr
	}

	var unsigned *ethtypes.Transaction
	if tx.MaxFeePerGas != "" || tx.MaxPriorityFeePerGas != "" {
		feeCap, err := parseBigQuantity(tx.MaxFeePerGas)
		if err != nil {
			return nil, badParams("invalid maxFeePerGas", err)
		}
		tipCap, err := parseBigQuantity(tx.MaxPriorityFeePerGas)
		if err != nil {
			return nil, badParams("invalid maxPriorityFeePerGas", err)
		}
		unsigned = ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tipCap,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        to,
			Value:     value,
			Data:      data,
		})
	} else {
		gasPrice, err := parseBigQuantity(tx.GasPrice)
		if err != nil {
			return nil, badParams("invalid gasPrice", err)
		}
		unsigned = ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit,
			To:       to,
			Value:    value,
			Data:     data,
		})
	}

	signed, err := crypto.SignTransaction(secret, unsigned, chainID)
	if err != nil {
		return nil, err
	}
	return codec.SerializeSignedTx(signed), nil
}

// typedDataOpts is the optional third parameter of eth_signTypedData.
type typedDataOpts struct {
	Version string `json:"version"`
}

// signTypedData handles the eth_signTypedData family: params are
// [from, typedData] with an optional {version} third element. Version-
// suffixed methods force their version; the bare method reads it from the
// options and falls back to V1 for unrecognized values.
func signTypedData(wallet *types.Wallet, secret *crypto.Secret, params json.RawMessage, forced string) (any, error) {
	var p []json.RawMessage
	if err := json.Unmarshal(params, &p); err != nil || len(p) < 2 {
		return nil, badParams("eth_signTypedData expects [from, typedData]", err)
	}
	var from string
	if err := json.Unmarshal(p[0], &from); err != nil {
		return nil, badParams("from must be an address string", err)
	}
	if !strings.EqualFold(from, wallet.Account.Address) {
		return nil, apperrors.SignatureVerificationFailed(
			strings.ToLower(from), wallet.Account.Address)
	}

	versionStr := forced
	if versionStr == "" && len(p) >= 3 {
		var opts typedDataOpts
		if err := json.Unmarshal(p[2], &opts); err == nil {
			versionStr = opts.Version
		}
	}

	var digest []byte
	var err error
	switch codec.ParseTypedDataVersion(versionStr) {
	case codec.TypedDataV3, codec.TypedDataV4:
		digest, err = codec.HashTypedData(p[1])
	default:
		digest, err = codec.HashTypedDataV1(p[1])
	}
	if err != nil {
		return nil, badParams("invalid typed data", err)
	}

	sig, err := crypto.SignDigest(secret, digest)
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(sig), nil
}

// badParams wraps a parameter decoding failure as a structured bad_request.
func badParams(message string, err error) *apperrors.AppError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, message, detail, 400)
}

// parseChainID accepts a JSON number, a decimal string or a 0x hex string.
func parseChainID(raw json.RawMessage) (*big.Int, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("chainId is required")
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if v, ok := new(big.Int).SetString(num.String(), 10); ok {
			return v, nil
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("chainId must be a number or string")
	}
	normalized, err := codec.NormalizeChainID(s)
	if err != nil {
		return nil, err
	}
	v, _ := new(big.Int).SetString(normalized[2:], 16)
	return v, nil
}

// parseBigQuantity parses a 0x hex quantity, accepting decimal for
// compatibility. Empty input is zero.
func parseBigQuantity(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex value: %s", s)
		}
		return v, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid value (expected 0x hex or decimal): %s", s)
	}
	return v, nil
}

// parseQuantity parses a uint64 quantity with a default for empty input.
func parseQuantity(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	v, err := parseBigQuantity(s)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("value too large for uint64: %s", s)
	}
	return v.Uint64(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
