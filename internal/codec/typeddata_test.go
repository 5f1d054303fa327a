package codec

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypedDataVersion(t *testing.T) {
	tests := []struct {
		in   string
		want TypedDataVersion
	}{
		{"V3", TypedDataV3},
		{"v3", TypedDataV3},
		{"V4", TypedDataV4},
		{" v4 ", TypedDataV4},
		{"V1", TypedDataV1},
		{"", TypedDataV1},
		{"V2", TypedDataV1},
		{"banana", TypedDataV1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTypedDataVersion(tt.in), "input %q", tt.in)
	}
}

func TestHashTypedDataV1(t *testing.T) {
	t.Run("matches reference vector", func(t *testing.T) {
		// Reference vector from the original legacy signing scheme.
		payload := json.RawMessage(`[{"type":"string","name":"message","value":"Hi, Alice!"}]`)

		digest, err := HashTypedDataV1(payload)
		require.NoError(t, err)
		assert.Equal(t,
			"14b9f24872e28cc49e72dc104d7380d8e0ba84a3fe2e712704bcac66a5702bd5",
			hex.EncodeToString(digest))
	})

	t.Run("is deterministic", func(t *testing.T) {
		payload := json.RawMessage(`[
			{"type":"string","name":"greeting","value":"hello"},
			{"type":"uint32","name":"count","value":42},
			{"type":"bool","name":"flag","value":true},
			{"type":"address","name":"who","value":"0x0c54fccd2e384b4bb6f2e405bf5cbc15a017aafb"},
			{"type":"bytes8","name":"tag","value":"0x0102030405060708"}
		]`)

		d1, err := HashTypedDataV1(payload)
		require.NoError(t, err)
		d2, err := HashTypedDataV1(payload)
		require.NoError(t, err)

		assert.Equal(t, d1, d2)
		assert.Len(t, d1, 32)
	})

	t.Run("field order changes the digest", func(t *testing.T) {
		a := json.RawMessage(`[
			{"type":"string","name":"a","value":"x"},
			{"type":"string","name":"b","value":"y"}
		]`)
		b := json.RawMessage(`[
			{"type":"string","name":"b","value":"y"},
			{"type":"string","name":"a","value":"x"}
		]`)

		da, err := HashTypedDataV1(a)
		require.NoError(t, err)
		db, err := HashTypedDataV1(b)
		require.NoError(t, err)

		assert.NotEqual(t, da, db)
	})

	t.Run("negative int packs as two's complement", func(t *testing.T) {
		digest, err := HashTypedDataV1(json.RawMessage(
			`[{"type":"int8","name":"n","value":-1}]`))
		require.NoError(t, err)
		assert.Len(t, digest, 32)
	})

	t.Run("rejects empty array", func(t *testing.T) {
		_, err := HashTypedDataV1(json.RawMessage(`[]`))
		require.Error(t, err)
	})

	t.Run("rejects non-array payload", func(t *testing.T) {
		_, err := HashTypedDataV1(json.RawMessage(`{"types":{}}`))
		require.Error(t, err)
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		_, err := HashTypedDataV1(json.RawMessage(
			`[{"type":"tuple","name":"x","value":"y"}]`))
		require.Error(t, err)
	})

	t.Run("rejects overflowing uint", func(t *testing.T) {
		_, err := HashTypedDataV1(json.RawMessage(
			`[{"type":"uint8","name":"n","value":256}]`))
		require.Error(t, err)
	})

	t.Run("rejects wrong-width bytesN", func(t *testing.T) {
		_, err := HashTypedDataV1(json.RawMessage(
			`[{"type":"bytes4","name":"tag","value":"0x0102"}]`))
		require.Error(t, err)
	})
}

func TestHashTypedData(t *testing.T) {
	// The EIP-712 reference example.
	mail := json.RawMessage(`{
		"types": {
			"EIP712Domain": [
				{"name": "name", "type": "string"},
				{"name": "version", "type": "string"},
				{"name": "chainId", "type": "uint256"},
				{"name": "verifyingContract", "type": "address"}
			],
			"Person": [
				{"name": "name", "type": "string"},
				{"name": "wallet", "type": "address"}
			],
			"Mail": [
				{"name": "from", "type": "Person"},
				{"name": "to", "type": "Person"},
				{"name": "contents", "type": "string"}
			]
		},
		"primaryType": "Mail",
		"domain": {
			"name": "Ether Mail",
			"version": "1",
			"chainId": 1,
			"verifyingContract": "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"
		},
		"message": {
			"from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
			"to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
			"contents": "Hello, Bob!"
		}
	}`)

	t.Run("matches the reference digest", func(t *testing.T) {
		digest, err := HashTypedData(mail)
		require.NoError(t, err)
		assert.Equal(t,
			"be609aee343fb3c4b28e1df9e632fca64fcfaede20f02e86244efddf30957bd2",
			hex.EncodeToString(digest))
	})

	t.Run("rejects unparseable payload", func(t *testing.T) {
		_, err := HashTypedData(json.RawMessage(`[1,2,3]`))
		require.Error(t, err)
	})

	t.Run("rejects missing primary type", func(t *testing.T) {
		_, err := HashTypedData(json.RawMessage(`{
			"types": {"EIP712Domain": []},
			"primaryType": "Missing",
			"domain": {},
			"message": {}
		}`))
		require.Error(t, err)
	})
}
