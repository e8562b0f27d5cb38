package state

import (
	"errors"
	"sort"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix/v2"

	"github.com/ianhorswill/step/term"
)

// ErrUndefined is returned by Get when a state
// element has never been set and has no declared default — spec §7's
// UndefinedVariable error kind.
var ErrUndefined = errors.New("step: state: undefined variable")

// Map is a persistent, structurally-shared mapping from state element to
// value. The zero value is not usable; use Empty.
type Map struct {
	tree *iradix.Tree[term.Value]
}

// Empty is the State with no explicit bindings; every element falls back
// to its declared default, or ErrUndefined if it has none.
var Empty = &Map{tree: iradix.New[term.Value]()}

// Set returns a new Map with element bound to val. The receiver is
// unmodified, so a choice point holding the old Map observes no change —
// this realizes "state changes never survive the failure of the call that
// made them" (spec §3 invariants) for free.
func (m *Map) Set(e *Element, val term.Value) *Map {
	tree, _, _ := m.tree.Insert([]byte(e.Name), val)
	return &Map{tree: tree}
}

// Unset returns a new Map with element's explicit binding removed, falling
// back to its default (or ErrUndefined) on subsequent Get.
func (m *Map) Unset(e *Element) *Map {
	tree, _, _ := m.tree.Delete([]byte(e.Name))
	return &Map{tree: tree}
}

// Get returns element's value: its explicit binding if present, else its
// declared default, else ErrUndefined.
func (m *Map) Get(e *Element) (term.Value, error) {
	if v, ok := m.tree.Get([]byte(e.Name)); ok {
		return v, nil
	}
	if e.HasDefault {
		return e.Default, nil
	}
	return term.Value{}, ErrUndefined
}

// Has reports whether element has an explicit binding in m (ignoring any
// declared default).
func (m *Map) Has(e *Element) bool {
	_, ok := m.tree.Get([]byte(e.Name))
	return ok
}

// Len returns the number of explicitly-bound elements.
func (m *Map) Len() int { return m.tree.Len() }

// Keys returns the names of all explicitly-bound elements, sorted, for
// deterministic serialization (§6).
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.tree.Len())
	iter := m.tree.Root().Iterator()
	for {
		k, _, ok := iter.Next()
		if !ok {
			break
		}
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Serialize renders m in the persistent state file format from spec §6:
// {State k1=v1 k2=v2 ...}, values rendered by each element's registered
// serializer, keys in sorted order for determinism.
func (m *Map) Serialize() string {
	var b strings.Builder
	b.WriteString("{State")
	for _, k := range m.Keys() {
		e := Intern(k)
		v, _ := m.Get(e)
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(e.Serialize(v))
	}
	b.WriteString("}")
	return b.String()
}

// Equal reports whether m and other bind exactly the same elements to
// structurally-equal values — the round-trip property from spec §8.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, k := range m.Keys() {
		e := Intern(k)
		a, _ := m.Get(e)
		b, errB := other.Get(e)
		if errB != nil || !term.Equal(a, b) {
			return false
		}
	}
	return true
}
