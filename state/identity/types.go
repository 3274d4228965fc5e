package identity

import (
	"vaultconnector/engine/library"
)

// Mapped is the persisted form of the identity mind.
type Mapped struct {
	Owners    map[library.Prefix]library.Address                          `json:"owners"`
	Operators map[library.Prefix]map[library.Address]library.OperatorMask `json:"operators"`
}
