// Package state implements the persistent State map described by spec §3:
// a persistent immutable map from state element to value, with structural
// sharing across branches, so that restoring a choice point's state is
// exactly "remember the old *Map reference" (spec §9 "Persistent map").
//
// Rather than hand-roll a hash-array-mapped trie, Map wraps
// github.com/hashicorp/go-immutable-radix/v2, the same structurally-shared
// trie hashicorp's own tools (including nomad, in the wider example corpus)
// use for in-memory indexes that need cheap snapshotting.
package state

import (
	"sync"

	"github.com/ianhorswill/step/term"
)

// Element is an interned key into the State map: a name, an optional
// default value, and an optional serializer used by the persistent state
// file format (§6). Elements are interned process-wide, like task and
// feature names (§9).
type Element struct {
	Name       string
	Default    term.Value
	HasDefault bool
	Serialize  func(term.Value) string
}

var (
	elementMu    sync.Mutex
	elementTable = map[string]*Element{}
)

// Intern returns the canonical Element for name, creating an element with
// no default and the standard serializer on first use.
func Intern(name string) *Element {
	elementMu.Lock()
	defer elementMu.Unlock()
	if e, ok := elementTable[name]; ok {
		return e
	}
	e := &Element{Name: name, Serialize: defaultSerialize}
	elementTable[name] = e
	return e
}

// Declare interns name and sets its default value and/or serializer. It is
// idempotent-by-name: calling it twice for the same name updates the
// existing interned Element in place so every existing Map reference that
// falls back to the default observes the new one immediately.
func Declare(name string, def term.Value, hasDefault bool, serialize func(term.Value) string) *Element {
	e := Intern(name)
	e.Default = def
	e.HasDefault = hasDefault
	if serialize != nil {
		e.Serialize = serialize
	}
	return e
}

