package identity

import (
	"vaultconnector/engine/library"
)

// Db holds owner registrations and operator masks. It is not safe for concurrent use, the
// connector serializes access.
type Db struct {
	owners    map[library.Prefix]library.Address
	operators map[library.Prefix]map[library.Address]library.OperatorMask
}

func NewDb() *Db {
	return &Db{
		owners:    make(map[library.Prefix]library.Address),
		operators: make(map[library.Prefix]map[library.Address]library.OperatorMask),
	}
}

// Owner returns the registered owner of prefix, if any.
func (s *Db) Owner(prefix library.Prefix) (library.Address, bool) {
	owner, ok := s.owners[prefix]
	return owner, ok
}

// RegisterOwnerIfAbsent records claimant as the owner of prefix on first touch. It returns true
// if a registration happened. A different existing owner is an error.
func (s *Db) RegisterOwnerIfAbsent(prefix library.Prefix, claimant library.Address) (bool, error) {
	if claimant.Prefix() != prefix {
		return false, library.Fail(library.NotAuthorized, "%s cannot own prefix %s", claimant, prefix)
	}
	owner, ok := s.owners[prefix]
	if !ok {
		s.owners[prefix] = claimant
		return true, nil
	}
	if owner != claimant {
		return false, library.Fail(library.NotAuthorized, "prefix %s is owned by %s", prefix, owner)
	}
	return false, nil
}

// IsOwner reports whether caller is, or could lazily become, the owner of prefix.
func (s *Db) IsOwner(prefix library.Prefix, caller library.Address) bool {
	if caller.Prefix() != prefix {
		return false
	}
	owner, ok := s.owners[prefix]
	return !ok || owner == caller
}

func (s *Db) OperatorMask(prefix library.Prefix, operator library.Address) library.OperatorMask {
	return s.operators[prefix][operator]
}

// IsOperatorAuthorized reports whether operator holds the bit for account. Without a registered
// owner no operator can have been authorized.
func (s *Db) IsOperatorAuthorized(account, operator library.Address) bool {
	if _, ok := s.owners[account.Prefix()]; !ok {
		return false
	}
	return s.OperatorMask(account.Prefix(), operator).Bit(account.Index())
}

// SetOperatorMask stores mask and reports whether it differed from the previous value.
func (s *Db) SetOperatorMask(prefix library.Prefix, operator library.Address, mask library.OperatorMask) bool {
	if s.OperatorMask(prefix, operator) == mask {
		return false
	}
	m, ok := s.operators[prefix]
	if !ok {
		m = make(map[library.Address]library.OperatorMask)
		s.operators[prefix] = m
	}
	if mask.IsZero() {
		delete(m, operator)
		if len(m) == 0 {
			delete(s.operators, prefix)
		}
		return true
	}
	m[operator] = mask
	return true
}

func (s *Db) Snapshot() any {
	return s.GetMap()
}

func (s *Db) Revert(snapshot any) {
	s.Restore(snapshot.(Mapped))
}

// GetMap returns a deep copy of the current state.
func (s *Db) GetMap() Mapped {
	m := Mapped{
		Owners:    make(map[library.Prefix]library.Address, len(s.owners)),
		Operators: make(map[library.Prefix]map[library.Address]library.OperatorMask, len(s.operators)),
	}
	for prefix, owner := range s.owners {
		m.Owners[prefix] = owner
	}
	for prefix, ops := range s.operators {
		inner := make(map[library.Address]library.OperatorMask, len(ops))
		for operator, mask := range ops {
			inner[operator] = mask
		}
		m.Operators[prefix] = inner
	}
	return m
}

// Restore replaces the current state with a copy of m.
func (s *Db) Restore(m Mapped) {
	s.owners = make(map[library.Prefix]library.Address, len(m.Owners))
	s.operators = make(map[library.Prefix]map[library.Address]library.OperatorMask, len(m.Operators))
	for prefix, owner := range m.Owners {
		s.owners[prefix] = owner
	}
	for prefix, ops := range m.Operators {
		inner := make(map[library.Address]library.OperatorMask, len(ops))
		for operator, mask := range ops {
			inner[operator] = mask
		}
		s.operators[prefix] = inner
	}
}
