package runtime

import (
	"github.com/ianhorswill/step/output"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// Output is the runtime's name for the append-only token buffer (spec
// §4.7); it is exactly output.Buffer, aliased so runtime code doesn't need
// to import two "buffer-ish" names.
type Output = output.Buffer

// Frame is the dynamic call-frame record from spec §3: caller pointer,
// task, matched method, fresh logic variables, binding list at entry, and
// caller's source location. It forms the dynamic call stack consulted by
// reflection primitives (CallerChainAncestor, GoalChainAncestor) and by
// Max/Min scope tracking.
type Frame struct {
	Caller     *Frame
	Task       *Task
	Method     *Method // nil for primitive calls
	Vars       []*term.Var
	EntryTrail *term.Trail
	Args       []term.Value
	Depth      int
	SourcePath string // matched method's definition site, for trace rendering
	SourceLine int
}

// String renders one frame for error-trace rendering (Error.Trace).
func (f *Frame) String() string {
	name := "?"
	if f.Task != nil {
		name = f.Task.Name
	}
	return name
}

// Env packages (module, caller frame, current frame, bindings, state) per
// spec §4.2's try(step, output, env, k) signature. Module is carried as an
// interface to avoid an import cycle with package module; it only needs to
// resolve task names during dynamic calls constructed by path-call syntax.
type Env struct {
	Module      TaskLookup
	Caller      *Frame
	Frame       *Frame
	Trail       *term.Trail
	State       *state.Map
	SearchLimit *int64 // decremented once per task call (primitive or compound), not per method tried; nil disables the limit
	DepthLimit  int    // max call-frame depth (spec §7 StackOverflow); 0 disables the limit
	Rand        Source
	Trace       TraceHook // optional; see spec §6 trace/debugging hooks
}

// TaskLookup resolves a task by name; implemented by package module's
// Module type, kept as an interface here to avoid runtime -> module ->
// runtime import cycles.
type TaskLookup interface {
	Task(name string) (*Task, bool)
}

// WithFrame returns a copy of env with Frame (and Caller set to the
// previous Frame) replacing the current one — used when pushing a new call
// frame, never mutating the parent Env in place so that a choice point
// still holding the old Env is unaffected.
func (e *Env) WithFrame(f *Frame) *Env {
	cp := *e
	cp.Caller = e.Frame
	cp.Frame = f
	return &cp
}

// WithTrail returns a copy of env with Trail replaced.
func (e *Env) WithTrail(t *term.Trail) *Env {
	cp := *e
	cp.Trail = t
	return &cp
}

// WithState returns a copy of env with State replaced.
func (e *Env) WithState(s *state.Map) *Env {
	cp := *e
	cp.State = s
	return &cp
}

// Cont is the success continuation from spec §4.2: given the (possibly
// updated) output, bindings, state, and the frame active when success was
// reported, it returns true iff the overall call should report success.
// Returning false asks the producer of this success to look for its next
// solution (k's "refusal" in spec §4.3 step 4).
type Cont func(out *Output, trail *term.Trail, st *state.Map, frame *Frame) bool
