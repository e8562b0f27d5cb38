// Copyright (c) 2014, Kevin Walsh.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package term implements the Step value model, logic variables, and the
// unification/resolution engine that the runtime's step chain interpreter
// builds on.
//
// Two values unify when they dereference to the same non-variable value
// under structural equality, or when at least one dereferences to an
// unbound variable, in which case the older variable is bound to the other.
// "Older" is determined by the depth of the call frame that created the
// variable: the interpreter creates frames at increasing depth, so age
// comparison is just an integer comparison. This mirrors how the datalog
// teacher distinguishes variables by identity (pointer equality, embedded
// DistinctVar) rather than by textual name, except here we also need an
// ordering over variables for the trail to pick a canonical binding
// direction.
package term

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindSymbol
	KindTuple
	KindPair
	KindFeature
	KindHashtable
	KindOpaque
	KindVar
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindSymbol:
		return "symbol"
	case KindTuple:
		return "tuple"
	case KindPair:
		return "pair"
	case KindFeature:
		return "feature-structure"
	case KindHashtable:
		return "hashtable"
	case KindOpaque:
		return "opaque"
	case KindVar:
		return "var"
	case KindTask:
		return "task"
	default:
		return "?"
	}
}

// Null is the distinguished null value.
var Null = Value{kind: KindNull}

// Value is the tagged union described by spec §3: integer, float, string,
// boolean, symbol, tuple, pair, feature-structure, hashtable, opaque host
// object, logic-variable reference, task reference, and null.
type Value struct {
	kind Kind

	i    int32
	f    float32
	s    string
	b    bool
	sym  Symbol
	tup  []Value
	pair *Pair
	feat *Feature
	hash *Hashtable
	opq  interface{}
	v    *Var
	task interface{} // *runtime.Task, stored opaquely to avoid an import cycle
}

// Symbol is an interned identifier.
type Symbol struct{ name string }

func (s Symbol) String() string { return s.name }

var symbolTable = map[string]Symbol{}

// Intern returns the canonical Symbol for name, creating it on first use.
// Symbol interning is process-wide per spec §9 ("symbol tables for task
// names, feature names, and state-element names are process-wide").
func Intern(name string) Symbol {
	if s, ok := symbolTable[name]; ok {
		return s
	}
	s := Symbol{name: name}
	symbolTable[name] = s
	return s
}

// Pair is a LISP-style cons cell. Tail may be a Var, enabling difference
// lists (an unbound tail that later unification extends).
type Pair struct {
	Head Value
	Tail Value
}

// Feature is an open-world feature structure: a record of named fields plus
// a "next" variable that unification can bind to a tail structure holding
// fields absent from this one. See Unify for the algorithm.
type Feature struct {
	Fields map[Symbol]Value
	Next   Value // always a Var, unbound until extended
}

// NewFeature creates an empty feature structure with a fresh open tail.
func NewFeature() *Feature {
	return &Feature{Fields: map[Symbol]Value{}, Next: VarRef(NewVar("_next"))}
}

// hEntry pairs a Hashtable key's original Value (for Keys) with its bound
// value. Values are not comparable in general (tuples and feature
// structures embed slices/maps), so Hashtable indexes by each key's
// resolved string form rather than by Value directly — the same trick the
// teacher uses for Literal.lID(), a string "identity tag" standing in for
// structural identity.
type hEntry struct {
	key Value
	val Value
}

// Hashtable is an opaque mutable key/value store reachable as a term.
type Hashtable struct {
	m map[string]hEntry
}

func NewHashtable() *Hashtable { return &Hashtable{m: map[string]hEntry{}} }

func (h *Hashtable) Get(k Value) (Value, bool) {
	e, ok := h.m[k.String()]
	return e.val, ok
}
func (h *Hashtable) Set(k, v Value) { h.m[k.String()] = hEntry{key: k, val: v} }
func (h *Hashtable) Delete(k Value) { delete(h.m, k.String()) }
func (h *Hashtable) Len() int       { return len(h.m) }

// Keys returns every key currently present, in unspecified order.
func (h *Hashtable) Keys() []Value {
	keys := make([]Value, 0, len(h.m))
	for _, e := range h.m {
		keys = append(keys, e.key)
	}
	return keys
}

// Clone returns a shallow copy, so callers can mutate the copy without
// affecting a Hashtable that may be reachable from an ancestor choice
// point's State or bindings.
func (h *Hashtable) Clone() *Hashtable {
	out := NewHashtable()
	for k, e := range h.m {
		out.m[k] = e
	}
	return out
}

// Var is a logic variable: a display name plus the stack depth of the call
// frame that created it. Depth determines binding age during unification —
// the shallower (older) variable is always the one written into the trail,
// so resolve() never has to chase through a younger-to-older cycle.
type Var struct {
	Name  string
	Depth int
	id    uuid.UUID
}

// NewVar allocates a fresh logic variable. Depth defaults to 0; callers
// that track call-frame depth should set it via NewVarAt. The id is a
// random uuid rather than a monotonic counter so two variables printed
// from different module loads (or different runs against the same source)
// never collide on display name — a process-lifetime counter would repeat
// across reloads in a long-lived host.
func NewVar(name string) *Var {
	return &Var{Name: name, id: uuid.New()}
}

// NewVarAt allocates a fresh logic variable stamped with the frame depth it
// was created in, used by age-based unification (§4.1).
func NewVarAt(name string, depth int) *Var {
	v := NewVar(name)
	v.Depth = depth
	return v
}

func (v *Var) String() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("_G%s", v.id.String()[:8])
}

// ID returns a value distinguishing this variable from all others, usable
// as a map key independent of Name (several distinct variables may share a
// display name).
func (v *Var) ID() uuid.UUID { return v.id }

// Constructors.

func Int(i int32) Value        { return Value{kind: KindInt, i: i} }
func Float(f float32) Value    { return Value{kind: KindFloat, f: f} }
func Str(s string) Value       { return Value{kind: KindString, s: s} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Sym(s Symbol) Value       { return Value{kind: KindSymbol, sym: s} }
func SymName(name string) Value { return Value{kind: KindSymbol, sym: Intern(name)} }
func Tuple(elems ...Value) Value { return Value{kind: KindTuple, tup: elems} }
func Cons(head, tail Value) Value { return Value{kind: KindPair, pair: &Pair{Head: head, Tail: tail}} }
func FeatureVal(f *Feature) Value { return Value{kind: KindFeature, feat: f} }
func HashVal(h *Hashtable) Value   { return Value{kind: KindHashtable, hash: h} }
func Opaque(o interface{}) Value   { return Value{kind: KindOpaque, opq: o} }
func VarRef(v *Var) Value          { return Value{kind: KindVar, v: v} }
func TaskRef(t interface{}) Value  { return Value{kind: KindTask, task: t} }

// List builds a proper (nil-terminated) pair-chain list from elems.
func List(elems ...Value) Value {
	result := Null
	for i := len(elems) - 1; i >= 0; i-- {
		result = Cons(elems[i], result)
	}
	return result
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsVar() bool  { return v.kind == KindVar }

func (v Value) AsInt() (int32, bool)       { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float32, bool)   { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsSymbol() (Symbol, bool)   { return v.sym, v.kind == KindSymbol }
func (v Value) AsTuple() ([]Value, bool)   { return v.tup, v.kind == KindTuple }
func (v Value) AsPair() (*Pair, bool)      { return v.pair, v.kind == KindPair }
func (v Value) AsFeature() (*Feature, bool) { return v.feat, v.kind == KindFeature }
func (v Value) AsHashtable() (*Hashtable, bool) { return v.hash, v.kind == KindHashtable }
func (v Value) AsOpaque() (interface{}, bool) { return v.opq, v.kind == KindOpaque }
func (v Value) AsVar() (*Var, bool)        { return v.v, v.kind == KindVar }
func (v Value) AsTask() (interface{}, bool) { return v.task, v.kind == KindTask }

// String renders v for diagnostics and for Emit steps that stringify
// non-token arguments (e.g. inside set expressions). It does not perform
// the output formatter's capitalization/spacing pass — see package output.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.Itoa(int(v.i))
	case KindFloat:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	case KindString:
		return v.s
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindSymbol:
		return v.sym.name
	case KindTuple:
		s := "["
		for i, e := range v.tup {
			if i > 0 {
				s += " "
			}
			s += e.String()
		}
		return s + "]"
	case KindPair:
		s := "("
		cur := v
		first := true
		for {
			p, ok := cur.AsPair()
			if !ok {
				break
			}
			if !first {
				s += " "
			}
			first = false
			s += p.Head.String()
			cur = p.Tail
		}
		if !cur.IsNull() {
			s += " . " + cur.String()
		}
		return s + ")"
	case KindFeature:
		return "{feature}"
	case KindHashtable:
		return "{hashtable}"
	case KindOpaque:
		return fmt.Sprintf("%v", v.opq)
	case KindVar:
		return v.v.String()
	case KindTask:
		return fmt.Sprintf("<task %v>", v.task)
	default:
		return "?"
	}
}

// equalConst reports whether two non-variable values are structurally
// equal, per §4.1: integers by value, floats by bit-exact equality after
// narrowing, strings exact, tuples element-wise, pairs first-and-rest. It
// never recurses into unbound sub-variables (that's Unify's job) — this is
// used only once both sides are already fully dereferenced constants.
func equalConst(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return math.Float32bits(a.f) == math.Float32bits(b.f)
	case KindString:
		return a.s == b.s
	case KindBool:
		return a.b == b.b
	case KindSymbol:
		return a.sym == b.sym
	case KindOpaque:
		return a.opq == b.opq
	case KindTask:
		return a.task == b.task
	default:
		return false
	}
}
