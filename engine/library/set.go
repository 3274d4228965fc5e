package library

import (
	"golang.org/x/exp/slices"
)

// Set is an insertion-ordered collection of unique addresses bounded to SetMaxElements.
type Set struct {
	elements []Address
}

func NewSet(elements ...Address) *Set {
	s := &Set{}
	for _, e := range elements {
		s.Insert(e)
	}
	return s
}

// Insert adds e. It reports false without error if e was already present.
func (s *Set) Insert(e Address) (bool, error) {
	if s.Contains(e) {
		return false, nil
	}
	if len(s.elements) >= SetMaxElements {
		return false, Fail(TooManyElements, "set already holds %d elements", SetMaxElements)
	}
	s.elements = append(s.elements, e)
	return true, nil
}

// Remove deletes e, preserving the order of the remaining elements.
func (s *Set) Remove(e Address) bool {
	i := slices.Index(s.elements, e)
	if i < 0 {
		return false
	}
	s.elements = slices.Delete(s.elements, i, i+1)
	return true
}

func (s *Set) Contains(e Address) bool {
	return slices.Contains(s.elements, e)
}

// Swap exchanges the elements at i and j. It requires i < j < Len().
func (s *Set) Swap(i, j int) error {
	if i < 0 || i >= j || j >= len(s.elements) {
		return Fail(InvalidIndex, "cannot swap %d and %d in a set of %d", i, j, len(s.elements))
	}
	s.elements[i], s.elements[j] = s.elements[j], s.elements[i]
	return nil
}

func (s *Set) Len() int {
	return len(s.elements)
}

func (s *Set) At(i int) Address {
	return s.elements[i]
}

// Elements returns a copy of the elements in order.
func (s *Set) Elements() []Address {
	return slices.Clone(s.elements)
}

func (s *Set) Clone() *Set {
	return &Set{elements: slices.Clone(s.elements)}
}

// ForEachAndClear empties the set and then visits the removed elements in order.
func (s *Set) ForEachAndClear(visit func(Address) error) error {
	elements := s.elements
	s.elements = nil
	for _, e := range elements {
		if err := visit(e); err != nil {
			return err
		}
	}
	return nil
}
