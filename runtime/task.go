package runtime

import (
	"sync"

	"github.com/ianhorswill/step/term"
)

// Flags collects the per-task boolean annotations from spec §3: fallible,
// generator, predicate, function, fluent, main, randomly, remembered,
// suffix. Stored as individual bools (rather than a bitmask) so each flag
// is read and set by name.
type Flags struct {
	Fallible   bool // may fail without raising CallFailed
	Generator  bool // expected to have multiple solutions via backtracking
	Predicate  bool // must not emit text
	Function   bool // last argument is bound to exactly one result
	Fluent     bool // extension lives in a state-element-backed set
	Main       bool // exempt from the "defined but never called" lint
	Randomly   bool // methods tried in a weighted-random permutation
	Remembered bool // first successful method is cached per argument tuple
	Suffix     bool // call's output glues onto preceding text with no space (runtime.GlueStep)
}

// PrimitiveFunc is a host-implemented task body: given the (already
// dereferenced-by-caller) arguments and the ambient Env, try all of its
// solutions against k, the success continuation, returning true iff some
// invocation of k returned true. Primitives participate in backtracking
// exactly like compound tasks — a primitive with multiple solutions calls k
// once per solution until k says yes or the primitive is out of solutions.
type PrimitiveFunc func(args []term.Value, out *Output, env *Env, k Cont) bool

// Task is either primitive (Primitive != nil) or compound (Methods != nil).
type Task struct {
	Name      string
	Arity     int // -1 if variable arity (e.g. primitives that accept any number of args)
	Flags     Flags
	Primitive PrimitiveFunc
	Methods   []*Method

	rememberMu sync.Mutex
	remembered map[string]*Method
}

// NewPrimitive builds a primitive Task. arity -1 means variable arity.
func NewPrimitive(name string, arity int, flags Flags, fn PrimitiveFunc) *Task {
	return &Task{Name: name, Arity: arity, Flags: flags, Primitive: fn}
}

// NewCompound builds a compound Task from its methods, source order
// preserved as the default try order (spec §4.2 "method try-order matches
// source order unless the task's randomly flag is set").
func NewCompound(name string, flags Flags, methods ...*Method) *Task {
	return &Task{Name: name, Arity: -1, Flags: flags, Methods: methods}
}

// AddMethod appends method to t's try order, preserving source order (spec
// §4.8: a task definition may be split across multiple `.step` files loaded
// into the same module; later files' methods are simply later clauses).
func (t *Task) AddMethod(m *Method) {
	t.Methods = append(t.Methods, m)
}

// IsPrimitive reports whether t is host-implemented.
func (t *Task) IsPrimitive() bool { return t.Primitive != nil }

// rememberedMethod returns the method cached for key, if any.
func (t *Task) rememberedMethod(key string) (*Method, bool) {
	t.rememberMu.Lock()
	defer t.rememberMu.Unlock()
	m, ok := t.remembered[key]
	return m, ok
}

// remember caches method as the winner for key.
func (t *Task) remember(key string, method *Method) {
	t.rememberMu.Lock()
	defer t.rememberMu.Unlock()
	if t.remembered == nil {
		t.remembered = map[string]*Method{}
	}
	t.remembered[key] = method
}
