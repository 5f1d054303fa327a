package codec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TypedDataVersion selects the typed-data encoding algorithm.
type TypedDataVersion string

// Recognized typed-data versions.
const (
	TypedDataV1 TypedDataVersion = "V1"
	TypedDataV3 TypedDataVersion = "V3"
	TypedDataV4 TypedDataVersion = "V4"
)

// ParseTypedDataVersion maps a caller-supplied version string to a known
// version. Unrecognized values fall back to V1, the oldest encoding, matching
// stock wallet behavior.
func ParseTypedDataVersion(s string) TypedDataVersion {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "V3":
		return TypedDataV3
	case "V4":
		return TypedDataV4
	default:
		return TypedDataV1
	}
}

// HashTypedData computes the EIP-712 signing digest for v3/v4 payloads:
// keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func HashTypedData(raw json.RawMessage) ([]byte, error) {
	var td apitypes.TypedData
	if err := json.Unmarshal(raw, &td); err != nil {
		return nil, fmt.Errorf("failed to parse typed data: %w", err)
	}

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	messageHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	return keccak256([]byte{0x19, 0x01}, domainSeparator, messageHash), nil
}

// typedDataV1Field is one entry of the legacy typed-data array form:
// [{type, name, value}, ...].
type typedDataV1Field struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// HashTypedDataV1 computes the legacy (pre-EIP-712) typed-data signing
// digest: keccak256(keccak256(pack("type name"...)) || keccak256(pack(values))).
func HashTypedDataV1(raw json.RawMessage) ([]byte, error) {
	var fields []typedDataV1Field
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("typed data V1 must be an array of {type, name, value}: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("typed data V1 must be a non-empty array")
	}

	var schema, values []byte
	for _, f := range fields {
		schema = append(schema, []byte(f.Type+" "+f.Name)...)
		packed, err := packSolidityValue(f.Type, f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		values = append(values, packed...)
	}

	return keccak256(keccak256(schema), keccak256(values)), nil
}

// packSolidityValue tightly packs one value in solidity abi.encodePacked
// style, covering the types the legacy signing scheme supports.
func packSolidityValue(typ string, raw json.RawMessage) ([]byte, error) {
	switch {
	case typ == "string":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("expected string value: %w", err)
		}
		return []byte(s), nil

	case typ == "bool":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("expected bool value: %w", err)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case typ == "address":
		b, err := unmarshalHexBytes(raw)
		if err != nil {
			return nil, err
		}
		if len(b) != 20 {
			return nil, fmt.Errorf("address must be 20 bytes, got %d", len(b))
		}
		return b, nil

	case typ == "bytes":
		return unmarshalHexBytes(raw)

	case strings.HasPrefix(typ, "bytes"):
		n, err := strconv.Atoi(typ[len("bytes"):])
		if err != nil || n < 1 || n > 32 {
			return nil, fmt.Errorf("unsupported type %q", typ)
		}
		b, err := unmarshalHexBytes(raw)
		if err != nil {
			return nil, err
		}
		if len(b) != n {
			return nil, fmt.Errorf("%s value must be %d bytes, got %d", typ, n, len(b))
		}
		return b, nil

	case strings.HasPrefix(typ, "uint"), strings.HasPrefix(typ, "int"):
		bits, err := intBits(typ)
		if err != nil {
			return nil, err
		}
		v, err := unmarshalBigInt(raw)
		if err != nil {
			return nil, err
		}
		if v.Sign() < 0 {
			// Two's complement for signed values.
			mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
			v = new(big.Int).Add(v, mod)
		}
		if v.BitLen() > bits {
			return nil, fmt.Errorf("value overflows %s", typ)
		}
		return v.FillBytes(make([]byte, bits/8)), nil

	default:
		return nil, fmt.Errorf("unsupported type %q", typ)
	}
}

func intBits(typ string) (int, error) {
	sizeStr := strings.TrimPrefix(strings.TrimPrefix(typ, "uint"), "int")
	if sizeStr == "" {
		return 256, nil
	}
	bits, err := strconv.Atoi(sizeStr)
	if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
		return 0, fmt.Errorf("unsupported type %q", typ)
	}
	return bits, nil
}

func unmarshalHexBytes(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("expected 0x hex string: %w", err)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex value: %w", err)
	}
	return b, nil
}

func unmarshalBigInt(raw json.RawMessage) (*big.Int, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if v, ok := new(big.Int).SetString(num.String(), 10); ok {
			return v, nil
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("expected integer value")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if v, ok := new(big.Int).SetString(s[2:], 16); ok {
			return v, nil
		}
		return nil, fmt.Errorf("invalid hex integer: %s", s)
	}
	if v, ok := new(big.Int).SetString(s, 10); ok {
		return v, nil
	}
	return nil, fmt.Errorf("invalid integer: %s", s)
}
