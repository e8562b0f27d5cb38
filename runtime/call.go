package runtime

import (
	"fmt"
	"sync/atomic"

	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// Raise panics with a runtime *Error. Spec §7 classes "error" (exceptional,
// unwinds with a stack trace) separately from recoverable call failure (a
// plain bool false); Go's panic/recover is the natural way to implement an
// unconditional unwind through an arbitrary depth of Cont closures without
// threading an error return through every step — the CPS bool return stays
// reserved for ordinary backtracking failure, exactly as spec §9
// "Backtracking without exceptions" asks.
func Raise(kind Kind, frame *Frame, format string, args ...interface{}) {
	panic(newError(kind, frame, format, args...))
}

// Recover turns a panic carrying a *Error into a returned error, for use at
// the outermost call boundary (package module's Call/CallPredicate/
// CallFunction). Panics of any other kind are re-raised — only Step's own
// exceptional conditions are caught here.
func Recover(errOut *error) {
	if r := recover(); r != nil {
		if e, ok := r.(*Error); ok {
			*errOut = e
			return
		}
		panic(r)
	}
}

func tryCall(step *Step, out *Output, env *Env, k Cont) bool {
	args := make([]term.Value, len(step.CallArgs))
	for i, a := range step.CallArgs {
		args[i] = term.Deref(a, env.Trail)
	}
	return Call(step.CallTask, args, out, env, k)
}

// Call implements spec §4.3's task dispatch and method selection.
func Call(task *Task, args []term.Value, out *Output, env *Env, k Cont) bool {
	if env.SearchLimit != nil {
		// Loaded/stored atomically: a Config.MethodTimeout timer (package
		// module) may flip this sentinel to 0 from another goroutine to
		// cancel a call in flight, same mechanism spec §5's background
		// evaluator cancellation describes.
		if atomic.LoadInt64(env.SearchLimit) <= 0 {
			Raise(KindStepTaskTimeout, env.Frame, "search limit exhausted calling %s", task.Name)
		}
		atomic.AddInt64(env.SearchLimit, -1)
	}
	if task.IsPrimitive() {
		watermark := out.Len()
		ok := task.Primitive(args, out, env, k)
		if task.Flags.Predicate && out.Len() != watermark {
			// Predicates must not emit text (spec §4.3); enforced by
			// watermark equality rather than by trusting the primitive author.
			Raise(KindArgumentType, env.Frame, "predicate task %s emitted text", task.Name)
		}
		if !ok {
			fireTrace(env, EventCallFail, env.Frame, args, out)
			if !task.Flags.Fallible {
				Raise(KindCallFailed, env.Frame, "call to %s failed", task.Name)
			}
		}
		return ok
	}

	methods := task.Methods
	firstOnly := false
	if task.Flags.Remembered {
		if key := rememberKey(args); key != "" {
			if m, ok := task.rememberedMethod(key); ok {
				methods = []*Method{m}
			}
		}
	} else if task.Flags.Randomly {
		methods = shuffleWeighted(methods, env.Rand)
	} else if task.Flags.Function && len(methods) > 1 && resultUnbound(args, env.Trail) {
		// Spec §4.3: a function method must bind its last argument to
		// exactly one value. If that argument is unbound at call time,
		// only the first matching method is ever tried — no backtracking
		// into the rest, even if the first one fails.
		firstOnly = true
	}

	watermark := out.Len()
	for _, m := range methods {
		if tryMethod(task, m, args, out, env, k) {
			if task.Flags.Remembered {
				if key := rememberKey(args); key != "" {
					task.remember(key, m)
				}
			}
			return true
		}
		out.Truncate(watermark)
		if firstOnly {
			head := m.instantiateHead(m.substitution(m.freshVars(0)))
			matched := len(head) == len(args)
			for i, tr := 0, env.Trail; matched && i < len(head); i++ {
				tr, matched = term.Unify(resolveStateRefs(head[i], env.State), args[i], tr)
			}
			if matched {
				break // the first method whose head matched has had its one try
			}
		}
	}
	fireTrace(env, EventCallFail, env.Frame, args, out)
	if !task.Flags.Fallible {
		Raise(KindCallFailed, env.Frame, "call to %s failed", task.Name)
	}
	return false
}

// tryMethod allocates fresh locals, unifies the head against args, and if
// that succeeds pushes a call frame and runs the method body (spec §4.3
// steps 2-3). The frame is discarded (simply goes out of scope; Go's GC
// does the rest) on failure of either the body or k.
func tryMethod(task *Task, m *Method, args []term.Value, out *Output, env *Env, k Cont) bool {
	depth := env.Frame.depthOrZero() + 1
	if limit := env.DepthLimit; limit > 0 && depth > limit {
		Raise(KindStackOverflow, env.Frame, "call depth exceeds limit of %d calling %s", limit, task.Name)
	}
	fresh := m.freshVars(depth)
	sub := m.substitution(fresh)
	head := m.instantiateHead(sub)
	if len(head) != len(args) {
		return false
	}
	for i, h := range head {
		head[i] = resolveStateRefs(h, env.State)
	}
	trail := env.Trail
	ok := true
	for i := range head {
		trail, ok = term.Unify(head[i], args[i], trail)
		if !ok {
			return false
		}
	}
	frame := &Frame{
		Caller: env.Frame, Task: task, Method: m, Vars: fresh,
		EntryTrail: trail, Args: args, Depth: depth,
		SourcePath: m.SourcePath, SourceLine: m.SourceLine,
	}
	bodyEnv := env.WithFrame(frame).WithTrail(trail)
	fireTrace(bodyEnv, EventEnter, frame, args, out)
	body := InstantiateBody(m.Body, sub)
	ok = Try(body, out, bodyEnv, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
		fireTrace(bodyEnv, EventSucceed, frame, args, o)
		return k(o, t, s, env.Frame)
	})
	if !ok {
		fireTrace(bodyEnv, EventMethodFail, frame, args, out)
	}
	return ok
}

func (f *Frame) depthOrZero() int {
	if f == nil {
		return 0
	}
	return f.Depth
}

// resultUnbound reports whether a function task's result argument (its
// last argument) is unbound at call time. Like rememberKey, it trusts that
// callers (tryCall derefs CallArgs against env.Trail before invoking Call)
// have already resolved args as far as the trail allows.
func resultUnbound(args []term.Value, trail *term.Trail) bool {
	if len(args) == 0 {
		return false
	}
	return term.Deref(args[len(args)-1], trail).IsVar()
}

// rememberKey renders args to a string usable as the cache key for a
// remembered task's method selection; empty if any argument is unbound
// (an unbound argument can't be used to pick a cached method deterministically).
func rememberKey(args []term.Value) string {
	s := ""
	for _, a := range args {
		if a.IsVar() {
			return ""
		}
		s += fmt.Sprintf("%v\x00", a)
	}
	return s
}
