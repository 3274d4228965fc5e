// Package checks holds the account and vault status checks deferred until the end of a
// top-level dispatch. Both sets are empty at rest.
package checks

import (
	"vaultconnector/engine/library"
)

type SetType int

const (
	Accounts SetType = iota
	Vaults
)

func (t SetType) String() string {
	if t == Vaults {
		return "vaults"
	}
	return "accounts"
}

type Db struct {
	sets [2]*library.Set
}

func NewDb() *Db {
	return &Db{sets: [2]*library.Set{library.NewSet(), library.NewSet()}}
}

// Insert defers a check. Inserting a pending member again is a no-op.
func (s *Db) Insert(t SetType, member library.Address) error {
	_, err := s.sets[t].Insert(member)
	return err
}

func (s *Db) Remove(t SetType, member library.Address) bool {
	return s.sets[t].Remove(member)
}

func (s *Db) Contains(t SetType, member library.Address) bool {
	return s.sets[t].Contains(member)
}

func (s *Db) Members(t SetType) []library.Address {
	return s.sets[t].Elements()
}

func (s *Db) Len(t SetType) int {
	return s.sets[t].Len()
}

// DrainWithCallback visits every pending member once and leaves the set empty. The drain is
// reverted with the rest of the frame if visit fails.
func (s *Db) DrainWithCallback(t SetType, visit func(library.Address) error) error {
	return s.sets[t].ForEachAndClear(visit)
}

// IsEmpty reports whether no check of either kind is pending.
func (s *Db) IsEmpty() bool {
	return s.sets[Accounts].Len() == 0 && s.sets[Vaults].Len() == 0
}

type snapshot [2]*library.Set

func (s *Db) Snapshot() any {
	return snapshot{s.sets[Accounts].Clone(), s.sets[Vaults].Clone()}
}

func (s *Db) Revert(v any) {
	snap := v.(snapshot)
	s.sets = [2]*library.Set{snap[Accounts].Clone(), snap[Vaults].Clone()}
}
