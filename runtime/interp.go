package runtime

import (
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// Try executes step and everything chained after it via Next, calling k
// once the whole chain succeeds. This is spec §4.2's
// `try(step, output, env, k) -> bool`: a step returns true if some
// continuation ultimately reported success, false if every alternative it
// tried failed (prompting the caller to try the next alternative, if any).
//
// Sequencing (Next) is implemented by wrapping k: trying step's Next chain
// becomes step's own success continuation, so "And/Begin" (spec §4.4) falls
// out for free as ordinary step-chain concatenation rather than a distinct
// primitive.
func Try(step *Step, out *Output, env *Env, k Cont) bool {
	if step == nil {
		return k(out, env.Trail, env.State, env.Frame)
	}
	rest := func(out *Output, trail *term.Trail, st *state.Map, frame *Frame) bool {
		nextEnv := env.WithTrail(trail).WithState(st)
		nextEnv.Frame = frame
		return Try(step.Next, out, nextEnv, k)
	}
	switch step.Kind {
	case StepEmit:
		return tryEmit(step, out, env, rest)
	case StepCall:
		return tryCall(step, out, env, rest)
	case StepAssign:
		return tryAssign(step, out, env, rest)
	case StepChoice:
		return tryChoice(step, out, env, rest)
	case StepCool:
		return tryCool(step, out, env, rest)
	case StepNative:
		return step.Native(out, env, rest)
	default:
		return false
	}
}

func tryEmit(step *Step, out *Output, env *Env, k Cont) bool {
	for _, tok := range step.Tokens {
		if tok.IsValue {
			resolved := term.Resolve(tok.Value, env.Trail, true)
			out.Emit(resolved.String())
		} else {
			out.Emit(tok.Literal)
		}
	}
	return k(out, env.Trail, env.State, env.Frame)
}

func tryAssign(step *Step, out *Output, env *Env, k Cont) bool {
	elem, _ := step.AssignElement.(*state.Element)
	val, err := step.AssignExpr.Eval(env)
	if err != nil {
		if e, ok := err.(*Error); ok {
			panic(e)
		}
		return false
	}
	newState := env.State.Set(elem, val)
	return k(out, env.Trail, newState, env.Frame)
}

// tryChoice implements firstOf/case-style branch selection (spec §4.4): try
// each branch in order against the same output watermark and trail,
// committing to the first that succeeds; on backtrack into a later
// alternative, resume from the next branch with output and state restored
// to the pre-branch snapshot.
func tryChoice(step *Step, out *Output, env *Env, k Cont) bool {
	watermark := out.Len()
	for _, branch := range step.Branches {
		if Try(branch, out, env, k) {
			return true
		}
		out.Truncate(watermark)
	}
	return false
}

// tryCool implements `cool N` (spec §4.4, §GLOSSARY): like tryChoice, but
// the branch order is rotated by a counter held in a state element, and the
// counter is advanced by N on each entry so a later call prefers a
// different branch than the previous call did.
func tryCool(step *Step, out *Output, env *Env, k Cont) bool {
	elem := step.CoolKey.(*state.Element)
	n := len(step.Branches)
	if n == 0 {
		return false
	}
	cur, err := env.State.Get(elem)
	offset := 0
	if err == nil {
		if i, ok := cur.AsInt(); ok {
			offset = int(i) % n
		}
	}
	newState := env.State.Set(elem, term.Int(int32((offset+step.CoolN)%n)))
	cEnv := env.WithState(newState)

	watermark := out.Len()
	for i := 0; i < n; i++ {
		branch := step.Branches[(offset+i)%n]
		if Try(branch, out, cEnv, k) {
			return true
		}
		out.Truncate(watermark)
	}
	return false
}
