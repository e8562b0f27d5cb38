package prim

import (
	"github.com/ianhorswill/step/introspect"
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/term"
)

// CalledFromTask implements `[CalledFrom TaskName]`: succeeds iff the
// calling frame's caller-chain includes a frame for the named task (spec
// §4.9's CallerChainAncestor, exposed as a predicate primitive).
var CalledFromTask = runtime.NewPrimitive("CalledFrom", 1, runtime.Flags{Predicate: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	nameV := term.Deref(args[0], env.Trail)
	sym, ok := nameV.AsSymbol()
	if !ok {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "CalledFrom: argument must be a task name symbol")
	}
	for _, f := range introspect.CallerChainAncestor(env.Frame) {
		if f.Task != nil && f.Task.Name == sym.String() {
			return k(out, env.Trail, env.State, env.Frame)
		}
	}
	return false
})

// PreviousCallTask implements `[PreviousCall TaskName Frame]`: binds Frame
// (opaquely, for further reflection calls) to the nearest enclosing frame
// whose task matches TaskName.
var PreviousCallTask = runtime.NewPrimitive("PreviousCall", 2, runtime.Flags{Predicate: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	nameV := term.Deref(args[0], env.Trail)
	sym, ok := nameV.AsSymbol()
	if !ok {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "PreviousCall: argument must be a task name symbol")
	}
	frame, found := introspect.PreviousCall(env.Frame, func(t *runtime.Task) bool { return t.Name == sym.String() })
	if !found {
		return false
	}
	trail, unifyOK := term.Unify(args[1], term.Opaque(frame), env.Trail)
	if !unifyOK {
		return false
	}
	return k(out, trail, env.State, env.Frame)
})
