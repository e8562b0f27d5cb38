package runtime

import (
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// FluentUpdateStep implements `now [P args]` (spec §4.5): asserts or
// retracts a fact for a fluent predicate backed by a state element,
// transactionally under backtracking (state.FluentAssert/FluentRetract
// already return a fresh Map rather than mutating in place).
func FluentUpdateStep(elem *state.Element, args term.Value, assert bool) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		resolved := term.Resolve(args, env.Trail, true)
		var newState *state.Map
		if assert {
			newState = state.FluentAssert(env.State, elem, resolved)
		} else {
			newState = state.FluentRetract(env.State, elem, resolved)
		}
		return k(out, env.Trail, newState, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return FluentUpdateStep(elem, SubstituteVars(args, sub), assert)
	}
	return step
}

// FluentHoldsStep implements calling a fluent predicate itself (the task
// whose extension `now` updates): succeeds iff args is currently asserted.
func FluentHoldsStep(elem *state.Element, args term.Value) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		resolved := term.Resolve(args, env.Trail, true)
		if !state.FluentHolds(env.State, elem, resolved) {
			return false
		}
		return k(out, env.Trail, env.State, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return FluentHoldsStep(elem, SubstituteVars(args, sub))
	}
	return step
}
