package library

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"
)

func Sha256Sum(data interface{}) Sha256 {
	var b []byte
	switch d := data.(type) {
	case string:
		b = []byte(d)
	case []byte:
		b = d
	default:
		LogCLI("attempted to hash non-string or non-[]byte", 0)
	}
	h := sha256.New()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Keccak256 is the legacy (pre-NIST) Keccak used for typed data and address derivation.
func Keccak256(data ...[]byte) (out [32]byte) {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	copy(out[:], h.Sum(nil))
	return
}

// AddressFromPubKey derives the 20 byte identity controlled by a secp256k1 key.
func AddressFromPubKey(pub *btcec.PublicKey) (a Address) {
	uncompressed := pub.SerializeUncompressed()
	h := Keccak256(uncompressed[1:])
	copy(a[:], h[12:])
	return
}

// MagicOf returns the first 4 bytes of the keccak hash of a function signature.
func MagicOf(signature string) (m Magic) {
	h := Keccak256([]byte(signature))
	copy(m[:], h[:4])
	return
}
