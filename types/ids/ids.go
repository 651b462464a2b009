package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// TxHash is a 32-byte ledger transaction hash.
type TxHash [32]byte

// Empty is the zero-value TxHash (all zeros)
var Empty TxHash

// NewTxHash derives a transaction hash by hashing input bytes
func NewTxHash(data []byte) TxHash {
	hash := sha256.Sum256(data)
	return TxHash(hash)
}

// FromHex parses a 0x-prefixed or bare hex string into a TxHash
func FromHex(s string) (TxHash, error) {
	var h TxHash
	s = strings.TrimPrefix(s, "0x")
	bytes, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	copy(h[:], bytes)
	return h, nil
}

// Hex converts a TxHash to its 0x-prefixed hex form
func (h TxHash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h TxHash) IsEmpty() bool {
	return h == Empty
}
