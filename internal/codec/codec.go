// Package codec holds the pure encode/decode routines of the keyring:
// signed-transaction flattening, chain id normalization, CAIP identifier
// parsing and EIP-55 checksumming.
package codec

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/crypto/sha3"
)

// caip10Pattern matches the three-part CAIP-10 account identifier grammar.
var caip10Pattern = regexp.MustCompile(
	`^([-a-z0-9]{3,8}):([-a-zA-Z0-9]{1,32}):([-.%a-zA-Z0-9]{1,128})$`)

// Caip10 is a parsed CAIP-10 account identifier.
type Caip10 struct {
	Namespace string
	Reference string
	Address   string
}

// ParseCaip10 parses a CAIP-10 account identifier. Returns false on any
// grammar mismatch; malformed input is not an error at this layer.
func ParseCaip10(accountID string) (*Caip10, bool) {
	m := caip10Pattern.FindStringSubmatch(accountID)
	if m == nil {
		return nil, false
	}
	return &Caip10{Namespace: m[1], Reference: m[2], Address: m[3]}, true
}

// IsEvmScope reports whether the CAIP-2 scope identifier names an EVM chain.
func IsEvmScope(scope string) bool {
	return strings.HasPrefix(scope, "eip155:")
}

// NormalizeChainID converts a chain id to its canonical 0x-prefixed hex form.
// Decimal string input is converted; hex input passes through lowercased.
func NormalizeChainID(chainID string) (string, error) {
	s := strings.TrimSpace(chainID)
	if s == "" {
		return "", fmt.Errorf("empty chain id")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return "", fmt.Errorf("invalid hex chain id: %s", chainID)
		}
		return "0x" + v.Text(16), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return "", fmt.Errorf("invalid chain id (expected decimal or 0x hex): %s", chainID)
	}
	return "0x" + v.Text(16), nil
}

// SerializeSignedTx flattens a signed transaction into a JSON-safe record
// with 0x-hex quantities and the integer type tag. Fields that do not apply
// to the transaction's envelope are omitted entirely, never emitted as null.
func SerializeSignedTx(tx *ethtypes.Transaction) map[string]any {
	v, r, s := tx.RawSignatureValues()

	out := map[string]any{
		"type":     int(tx.Type()),
		"nonce":    hexUint64(tx.Nonce()),
		"gasLimit": hexUint64(tx.Gas()),
		"value":    hexBig(tx.Value()),
		"data":     hexBytes(tx.Data()),
		"chainId":  hexBig(tx.ChainId()),
		"v":        hexBig(v),
		"r":        hexBig(r),
		"s":        hexBig(s),
	}

	if to := tx.To(); to != nil {
		out["to"] = strings.ToLower(to.Hex())
	}

	switch tx.Type() {
	case ethtypes.DynamicFeeTxType:
		out["maxFeePerGas"] = hexBig(tx.GasFeeCap())
		out["maxPriorityFeePerGas"] = hexBig(tx.GasTipCap())
		out["accessList"] = accessListRecords(tx.AccessList())
	default:
		out["gasPrice"] = hexBig(tx.GasPrice())
	}

	return out
}

// ChecksumAddress applies EIP-55 mixed-case checksum encoding to a hex
// address (with or without 0x prefix).
func ChecksumAddress(address string) string {
	addr := strings.ToLower(strings.TrimPrefix(address, "0x"))
	hash := keccak256([]byte(addr))
	result := make([]byte, len(addr))
	for i, c := range addr {
		if c >= '0' && c <= '9' {
			result[i] = byte(c)
			continue
		}
		hashByte := hash[i/2]
		var nibble byte
		if i%2 == 0 {
			nibble = hashByte >> 4
		} else {
			nibble = hashByte & 0x0f
		}
		if nibble >= 8 {
			result[i] = byte(c) - 32
		} else {
			result[i] = byte(c)
		}
	}
	return "0x" + string(result)
}

// keccak256 computes the legacy Keccak-256 hash (not NIST SHA3-256).
func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

func accessListRecords(list ethtypes.AccessList) []map[string]any {
	records := make([]map[string]any, len(list))
	for i, tuple := range list {
		keys := make([]string, len(tuple.StorageKeys))
		for j, key := range tuple.StorageKeys {
			keys[j] = strings.ToLower(key.Hex())
		}
		records[i] = map[string]any{
			"address":     strings.ToLower(tuple.Address.Hex()),
			"storageKeys": keys,
		}
	}
	return records
}

func hexUint64(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

func hexBig(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return "0x" + v.Text(16)
}

func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
