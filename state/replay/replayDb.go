package replay

import (
	"vaultconnector/engine/library"
)

// Mapped is the persisted form of the replay mind: prefix -> namespace -> last used nonce.
type Mapped map[library.Prefix]map[uint64]uint64

type Db struct {
	data Mapped
}

func NewDb() *Db {
	return &Db{data: make(Mapped)}
}

func (s *Db) GetNonce(prefix library.Prefix, namespace uint64) uint64 {
	return s.data[prefix][namespace]
}

// SetNonce fast-forwards a namespace. The new nonce must be strictly greater than the stored one.
func (s *Db) SetNonce(prefix library.Prefix, namespace, nonce uint64) (previous uint64, err error) {
	previous = s.GetNonce(prefix, namespace)
	if nonce <= previous {
		return previous, library.Fail(library.InvalidNonce, "nonce %d for namespace %d must be greater than %d", nonce, namespace, previous)
	}
	s.upsert(prefix, namespace, nonce)
	return previous, nil
}

// Valid accepts nonce only if it directly follows the stored one and is not the exhausted sentinel.
func (s *Db) Valid(prefix library.Prefix, namespace, nonce uint64) error {
	current := s.GetNonce(prefix, namespace)
	if current == library.NonceExhausted || nonce == library.NonceExhausted || nonce != current+1 {
		return library.Fail(library.InvalidNonce, "nonce %d is not valid for namespace %d (current %d)", nonce, namespace, current)
	}
	return nil
}

// Consume records nonce as used once Valid accepts it.
func (s *Db) Consume(prefix library.Prefix, namespace, nonce uint64) error {
	if err := s.Valid(prefix, namespace, nonce); err != nil {
		return err
	}
	s.upsert(prefix, namespace, nonce)
	return nil
}

func (s *Db) upsert(prefix library.Prefix, namespace, nonce uint64) {
	m, ok := s.data[prefix]
	if !ok {
		m = make(map[uint64]uint64)
		s.data[prefix] = m
	}
	m[namespace] = nonce
}

func (s *Db) Snapshot() any {
	return s.GetMap()
}

func (s *Db) Revert(snapshot any) {
	s.Restore(snapshot.(Mapped))
}

func (s *Db) GetMap() Mapped {
	m := make(Mapped, len(s.data))
	for prefix, namespaces := range s.data {
		inner := make(map[uint64]uint64, len(namespaces))
		for ns, nonce := range namespaces {
			inner[ns] = nonce
		}
		m[prefix] = inner
	}
	return m
}

func (s *Db) Restore(m Mapped) {
	s.data = make(Mapped, len(m))
	for prefix, namespaces := range m {
		inner := make(map[uint64]uint64, len(namespaces))
		for ns, nonce := range namespaces {
			inner[ns] = nonce
		}
		s.data[prefix] = inner
	}
}
