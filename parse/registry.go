package parse

import (
	"sync"

	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// Registry is the task/state-element interning table a module builds
// against as source files compile into it (spec §9: "the token interning
// tables for feature names, state-element names, and task names are
// process-wide... and must be safe against re-entry during parsing").
// Package module embeds one Registry per loaded module and uses it both
// as the runtime.TaskLookup path-calls need and as introspect's static
// Registry.
type Registry struct {
	mu      sync.Mutex
	tasks   map[string]*runtime.Task
	fluents map[string]*state.Element
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: map[string]*runtime.Task{}}
}

// Task looks up a task by name without creating one — implements
// runtime.TaskLookup for path-call dispatch.
func (r *Registry) Task(name string) (*runtime.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[name]
	return t, ok
}

// EnsureTask returns the task named name, creating an empty compound task
// (no methods yet) on first mention. This is what lets one file call a
// task that a later-loaded file defines: `load_directory` compiles files
// in directory order, and a forward reference must resolve to the same
// *runtime.Task regardless (spec §6).
func (r *Registry) EnsureTask(name string) *runtime.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[name]; ok {
		return t
	}
	t := runtime.NewCompound(name, runtime.Flags{})
	r.tasks[name] = t
	return t
}

// Register installs an already-built task, used for host primitives
// (package prim constructs these directly rather than the parser
// discovering them by name).
func (r *Registry) Register(t *runtime.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.Name] = t
}

// Tasks returns every registered task — implements introspect.Registry.
func (r *Registry) Tasks() []*runtime.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*runtime.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}

// StateElement interns name as a state element and registers the
// symbol<->element mapping runtime.resolveStateRefs/VarExpr need for
// capitalized-identifier head-pattern dispatch (spec §4.8; see spec §8
// scenario 1, `Test X: hit` dispatching on X's current value).
func (r *Registry) StateElement(name string) *state.Element {
	e := state.Intern(name)
	runtime.RegisterStateSymbol(term.Intern(name), e)
	return e
}

// FluentElement returns the state element backing fluent predicate name
// (spec §4.5: "a fluent predicate is represented as a state element holding
// a set/map"), registering a primitive task of the same name on first
// mention so an ordinary call to the predicate (as opposed to `now [P …]`,
// which the compiler turns directly into a FluentUpdateStep) dispatches to
// FluentHoldsStep rather than falling through compound-method lookup.
func (r *Registry) FluentElement(name string) *state.Element {
	r.mu.Lock()
	if r.fluents == nil {
		r.fluents = map[string]*state.Element{}
	}
	e, ok := r.fluents[name]
	if !ok {
		e = state.Intern("fluent:" + name)
		r.fluents[name] = e
	}
	r.mu.Unlock()

	if _, exists := r.Task(name); !exists {
		elem := e
		task := runtime.NewPrimitive(name, -1, runtime.Flags{Fluent: true, Fallible: true, Generator: true},
			func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
				return runtime.Try(runtime.FluentHoldsStep(elem, term.Tuple(args...)), out, env, k)
			})
		r.Register(task)
	}
	return e
}

var seqCounter uint64
var seqCounterMu sync.Mutex

// freshStateName mints a unique synthetic state-element name for the
// counters `sequence`/`cool` need but that no source-level identifier
// names (their backing cell is purely an implementation detail of one
// call site, not a user-visible state element).
func freshStateName(kind, path string, line int) string {
	seqCounterMu.Lock()
	seqCounter++
	n := seqCounter
	seqCounterMu.Unlock()
	return "__" + kind + "_" + path + "_" + itoa(line) + "_" + itoa(int(n))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
