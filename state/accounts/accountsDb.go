package accounts

import (
	"vaultconnector/engine/library"
)

// Mapped is the persisted form of the accounts mind.
type Mapped struct {
	Collaterals map[library.Address][]library.Address `json:"collaterals"`
	Controllers map[library.Address][]library.Address `json:"controllers"`
}

// Db tracks the enabled collateral and controller vaults of every account.
type Db struct {
	collaterals map[library.Address]*library.Set
	controllers map[library.Address]*library.Set
}

func NewDb() *Db {
	return &Db{
		collaterals: make(map[library.Address]*library.Set),
		controllers: make(map[library.Address]*library.Set),
	}
}

func (s *Db) Collaterals(account library.Address) []library.Address {
	if set, ok := s.collaterals[account]; ok {
		return set.Elements()
	}
	return nil
}

func (s *Db) Controllers(account library.Address) []library.Address {
	if set, ok := s.controllers[account]; ok {
		return set.Elements()
	}
	return nil
}

func (s *Db) IsCollateralEnabled(account, vault library.Address) bool {
	set, ok := s.collaterals[account]
	return ok && set.Contains(vault)
}

func (s *Db) IsControllerEnabled(account, vault library.Address) bool {
	set, ok := s.controllers[account]
	return ok && set.Contains(vault)
}

func (s *Db) ControllerCount(account library.Address) int {
	if set, ok := s.controllers[account]; ok {
		return set.Len()
	}
	return 0
}

// SingleController returns the only enabled controller of account. Zero or several enabled
// controllers is a ControllerViolation.
func (s *Db) SingleController(account library.Address) (library.Address, error) {
	set, ok := s.controllers[account]
	if !ok || set.Len() != 1 {
		return library.ZeroAddress, library.Fail(library.ControllerViolation, "account %s has %d controllers enabled", account, s.ControllerCount(account))
	}
	return set.At(0), nil
}

func (s *Db) EnableCollateral(account, vault library.Address) (bool, error) {
	return insert(s.collaterals, account, vault)
}

func (s *Db) DisableCollateral(account, vault library.Address) bool {
	return remove(s.collaterals, account, vault)
}

func (s *Db) ReorderCollaterals(account library.Address, index1, index2 int) error {
	set, ok := s.collaterals[account]
	if !ok {
		return library.Fail(library.InvalidIndex, "account %s has no collaterals", account)
	}
	return set.Swap(index1, index2)
}

func (s *Db) EnableController(account, vault library.Address) (bool, error) {
	return insert(s.controllers, account, vault)
}

func (s *Db) DisableController(account, vault library.Address) bool {
	return remove(s.controllers, account, vault)
}

func insert(m map[library.Address]*library.Set, account, vault library.Address) (bool, error) {
	set, ok := m[account]
	if !ok {
		set = library.NewSet()
	}
	inserted, err := set.Insert(vault)
	if err != nil || !inserted {
		return false, err
	}
	m[account] = set
	return true, nil
}

func remove(m map[library.Address]*library.Set, account, vault library.Address) bool {
	set, ok := m[account]
	if !ok || !set.Remove(vault) {
		return false
	}
	if set.Len() == 0 {
		delete(m, account)
	}
	return true
}

func (s *Db) Snapshot() any {
	return s.GetMap()
}

func (s *Db) Revert(snapshot any) {
	s.Restore(snapshot.(Mapped))
}

func (s *Db) GetMap() Mapped {
	m := Mapped{
		Collaterals: make(map[library.Address][]library.Address, len(s.collaterals)),
		Controllers: make(map[library.Address][]library.Address, len(s.controllers)),
	}
	for account, set := range s.collaterals {
		m.Collaterals[account] = set.Elements()
	}
	for account, set := range s.controllers {
		m.Controllers[account] = set.Elements()
	}
	return m
}

func (s *Db) Restore(m Mapped) {
	s.collaterals = make(map[library.Address]*library.Set, len(m.Collaterals))
	s.controllers = make(map[library.Address]*library.Set, len(m.Controllers))
	for account, elements := range m.Collaterals {
		if len(elements) > 0 {
			s.collaterals[account] = library.NewSet(elements...)
		}
	}
	for account, elements := range m.Controllers {
		if len(elements) > 0 {
			s.controllers[account] = library.NewSet(elements...)
		}
	}
}
