package library

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// SetMaxElements bounds every collateral set, controller set and deferred check set.
const SetMaxElements = 10

// NonceExhausted permanently disables a nonce namespace once stored.
const NonceExhausted uint64 = math.MaxUint64

// ValueAll asks the connector to forward its whole balance.
const ValueAll uint64 = math.MaxUint64

type Sha256 = string

// Address is a 20 byte identity. The first 19 bytes are the owner-group key (Prefix) and the
// last byte is the sub-account index.
type Address [20]byte

// Prefix is the owner-group key shared by 256 sibling accounts.
type Prefix [19]byte

// AccountIndex selects one of the 256 accounts under a Prefix.
type AccountIndex uint8

// Magic is the 4 byte value a collaborator returns to signal that a check passed.
type Magic [4]byte

var ZeroAddress Address

func (a Address) Prefix() (p Prefix) {
	copy(p[:], a[:19])
	return
}

func (a Address) Index() AccountIndex {
	return AccountIndex(a[19])
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// HaveCommonOwner reports whether two addresses share an owner-group key.
func HaveCommonOwner(a, b Address) bool {
	return a.Prefix() == b.Prefix()
}

func ParseAddress(s string) (a Address, err error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return a, err
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("address %s must be %d bytes, got %d", s, len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Account composes the account at index i under this prefix.
func (p Prefix) Account(i AccountIndex) (a Address) {
	copy(a[:19], p[:])
	a[19] = byte(i)
	return
}

func (p Prefix) Hex() string {
	return "0x" + hex.EncodeToString(p[:])
}

func (p Prefix) String() string {
	return p.Hex()
}

func (p Prefix) MarshalText() ([]byte, error) {
	return []byte(p.Hex()), nil
}

func (p *Prefix) UnmarshalText(b []byte) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(string(b), "0x"))
	if err != nil {
		return err
	}
	if len(raw) != len(p) {
		return fmt.Errorf("prefix must be %d bytes, got %d", len(p), len(raw))
	}
	copy(p[:], raw)
	return nil
}

func (m Magic) Hex() string {
	return "0x" + hex.EncodeToString(m[:])
}

// OperatorMask is a 256 bit field, bit i authorizes the operator for AccountIndex i.
type OperatorMask [4]uint64

func (m OperatorMask) Bit(i AccountIndex) bool {
	return m[i/64]&(uint64(1)<<(i%64)) != 0
}

func (m OperatorMask) With(i AccountIndex, set bool) OperatorMask {
	if set {
		m[i/64] |= uint64(1) << (i % 64)
	} else {
		m[i/64] &^= uint64(1) << (i % 64)
	}
	return m
}

func (m OperatorMask) IsZero() bool {
	return m == OperatorMask{}
}

func (m OperatorMask) Hex() string {
	var b [32]byte
	for word := 0; word < 4; word++ {
		for j := 0; j < 8; j++ {
			b[31-word*8-j] = byte(m[word] >> (8 * j))
		}
	}
	return "0x" + hex.EncodeToString(b[:])
}

// MaskOf returns a mask with the given indexes set.
func MaskOf(indexes ...AccountIndex) (m OperatorMask) {
	for _, i := range indexes {
		m = m.With(i, true)
	}
	return
}

type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Address
}
