package runtime

import (
	"github.com/ianhorswill/step/output"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// This file builds the composite control-flow primitives of spec §4.4 out
// of Step/Try/Call. Each constructor returns a *Step (via NativeStep) that
// the method compiler wires into a step chain wherever the corresponding
// surface syntax appears; none of them introduce a new StepKind, matching
// how the teacher's dlengine composes SLD resolution steps from a small
// fixed vocabulary of primitive continuations.

// OrStep implements `Or`: try each alternative in order against the same
// watermark, committing to the first that succeeds but still offering later
// alternatives on backtrack (spec §4.4 table, row Or). Equivalent to
// tryChoice but exposed at the Step-constructor level for the parser.
func OrStep(alternatives ...*Step) *Step {
	return &Step{Kind: StepChoice, Branches: alternatives}
}

// tryBranches is tryChoice's logic without a Step wrapper (OrStep itself
// goes through tryChoice in interp.go); it is used by RandomlyStep, which
// needs to reorder branches per call before trying them in order.
func tryBranches(branches []*Step, out *Output, env *Env, k Cont) bool {
	watermark := out.Len()
	for _, b := range branches {
		if Try(b, out, env, k) {
			return true
		}
		out.Truncate(watermark)
	}
	return false
}

// shuffleBranches returns a freshly-ordered copy of branches via Fisher-Yates
// driven by rnd (nil means "no shuffling," used in tests without a Source).
func shuffleBranches(branches []*Step, rnd Source) []*Step {
	out := append([]*Step(nil), branches...)
	if rnd == nil {
		return out
	}
	for i := len(out) - 1; i > 0; i-- {
		j := int(rnd.Float64() * float64(i+1))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// RandomlyStep implements `randomly … or … end` (spec §4.4): permute
// branches randomly, then behave as firstOf — a fresh permutation is drawn
// on every entry, so backtracking into a later alternative still visits
// every branch exactly once per call, just not in source order.
func RandomlyStep(alternatives ...*Step) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		return tryBranches(shuffleBranches(alternatives, env.Rand), out, env, k)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		substituted := make([]*Step, len(alternatives))
		for i, a := range alternatives {
			substituted[i] = InstantiateBody(a, sub)
		}
		return RandomlyStep(substituted...)
	}
	return step
}

// CoolStep implements `cool N … or … end` (spec §4.4, §GLOSSARY): a choice
// point whose branch order rotates by n on every entry, tracked by a
// counter held in elem, so a later call prefers a different branch than the
// one before it instead of always retrying the first. No Template is
// needed: InstantiateBody already rebuilds StepCool nodes structurally.
func CoolStep(n int, elem *state.Element, branches ...*Step) *Step {
	return &Step{Kind: StepCool, Branches: branches, CoolN: n, CoolKey: elem}
}

// NotStep implements `Not`/`NotAny`: succeeds iff inner fails, and never
// leaks bindings or output produced while inner was tried (spec §4.4).
// The compiler builds both `Not` and `NotAny` with this same step, so
// neither checks that its argument is ground.
func NotStep(inner *Step) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		watermark := out.Len()
		innerSucceeded := Try(inner, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			return true // any solution is enough to falsify Not
		})
		out.Truncate(watermark)
		if innerSucceeded {
			return false
		}
		return k(out, env.Trail, env.State, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return NotStep(InstantiateBody(inner, sub))
	}
	return step
}

// OnceStep implements `Once`: commit to inner's first solution; on later
// backtrack into this point, fail straight to Once's caller rather than
// asking inner for a second solution.
func OnceStep(inner *Step) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		done := false
		return Try(inner, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			if done {
				return false
			}
			done = true
			return k(o, t, s, f)
		})
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return OnceStep(InstantiateBody(inner, sub))
	}
	return step
}

// ExactlyOnceStep implements `ExactlyOnce`: like Once, but raises CallFailed
// if inner has no solution at all.
func ExactlyOnceStep(inner *Step) *Step {
	once := OnceStep(inner)
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		found := false
		if Try(once, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			found = true
			return k(o, t, s, f)
		}) {
			return true
		}
		if !found {
			Raise(KindCallFailed, env.Frame, "ExactlyOnce: inner call had no solutions")
		}
		return false
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return ExactlyOnceStep(InstantiateBody(inner, sub))
	}
	return step
}

// FailStep implements `Fail`: never succeeds.
func FailStep() *Step {
	return NativeStep(func(out *Output, env *Env, k Cont) bool { return false })
}

// ThrowStep implements `Throw`: raises a UserThrow with the rendered
// message produced by running messageBody and collecting its output.
func ThrowStep(messageBody *Step) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		scratch := NewOutput()
		Try(messageBody, scratch, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool { return true })
		Raise(KindUserThrow, env.Frame, "%s", scratch.Render())
		return false
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return ThrowStep(InstantiateBody(messageBody, sub))
	}
	return step
}

// NewOutput returns a fresh, empty Output — a thin re-export so callers in
// this package don't need to import package output directly just to make a
// scratch buffer (used by SaveText, Throw, Parse).
func NewOutput() *Output { return &Output{} }

// CountAttemptsStep implements `CountAttempts`: binds target to 0, 1, 2, …
// on successive retries into this choice point, never running out (the
// compiler is responsible for wrapping it in something that eventually
// stops retrying, e.g. a bounding And with a numeric test).
func CountAttemptsStep(target term.Value) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		for i := int32(0); ; i++ {
			trail, ok := term.Unify(target, term.Int(i), env.Trail)
			if ok && k(out, trail, env.State, env.Frame) {
				return true
			}
		}
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return CountAttemptsStep(SubstituteVars(target, sub))
	}
	return step
}

// ForEachStep implements `ForEach`/`DoAll`: enumerate every solution of
// generator, running body for each. Per spec §4.4, text and state changes
// survive across iterations but bindings do not — each iteration runs
// against a throwaway trail extension that is discarded before the next.
func ForEachStep(generator *Step, body *Step) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		st := env.State
		watermark := out.Len()
		var kept []output.Token // each iteration's text, kept past the generator's backtracking
		Try(generator, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			genLen := o.Len()
			iterEnv := env.WithTrail(t).WithState(st)
			Try(body, o, iterEnv, func(o2 *Output, t2 *term.Trail, s2 *state.Map, f2 *Frame) bool {
				st = s2 // state changes survive; bindings (t2) are dropped
				kept = append(kept, o2.Slice(watermark)...)
				return true
			})
			o.Truncate(genLen)
			return false // ask generator for its next solution
		})
		out.Truncate(watermark)
		out.EmitTokens(kept...)
		return k(out, env.Trail, st, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return ForEachStep(InstantiateBody(generator, sub), InstantiateBody(body, sub))
	}
	return step
}

// ImpliesStep implements `Implies`: like ForEach, but fails overall if any
// iteration's body fails.
func ImpliesStep(generator *Step, body *Step) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		st := env.State
		allOK := true
		watermark := out.Len()
		var kept []output.Token
		Try(generator, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			genLen := o.Len()
			iterEnv := env.WithTrail(t).WithState(st)
			ok := Try(body, o, iterEnv, func(o2 *Output, t2 *term.Trail, s2 *state.Map, f2 *Frame) bool {
				st = s2
				kept = append(kept, o2.Slice(watermark)...)
				return true
			})
			o.Truncate(genLen)
			if !ok {
				allOK = false
				return true // stop enumerating generator solutions
			}
			return false
		})
		out.Truncate(watermark)
		if !allOK {
			return false
		}
		out.EmitTokens(kept...)
		return k(out, env.Trail, st, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return ImpliesStep(InstantiateBody(generator, sub), InstantiateBody(body, sub))
	}
	return step
}

// FindAllStep implements `FindAll`: collect witness's resolved value across
// every solution of generator into a tuple, binding result to it. Final
// variables created inside generator are left unbound except for result
// itself (spec §4.4) — guaranteed here because bindings made while
// enumerating generator are never threaded into the outer trail.
func FindAllStep(witness term.Value, generator *Step, result term.Value) *Step {
	return findAllLike(witness, generator, result, nil, -1)
}

// FindUniqueStep implements `FindUnique`: as FindAll, filtered to distinct
// witnesses (by structural equality, spec §4.4).
func FindUniqueStep(witness term.Value, generator *Step, result term.Value) *Step {
	return findAllLike(witness, generator, result, uniqueFilter(), -1)
}

// FindFirstNUniqueStep stops after collecting n distinct witnesses.
func FindFirstNUniqueStep(witness term.Value, generator *Step, result term.Value, n int) *Step {
	return findAllLike(witness, generator, result, uniqueFilter(), n)
}

// FindAtMostNUniqueStep is an alias for FindFirstNUniqueStep: spec §4.4
// lists them as the same contract ("as above with duplicate filtering"),
// and the compiler parses the count argument of both the same way.
func FindAtMostNUniqueStep(witness term.Value, generator *Step, result term.Value, n int) *Step {
	return FindFirstNUniqueStep(witness, generator, result, n)
}

func uniqueFilter() func([]term.Value, term.Value) bool {
	return func(seen []term.Value, v term.Value) bool {
		for _, s := range seen {
			if term.Equal(s, v) {
				return false
			}
		}
		return true
	}
}

func findAllLike(witness term.Value, generator *Step, result term.Value, accept func([]term.Value, term.Value) bool, limit int) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		var collected []term.Value
		Try(generator, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			v := term.Resolve(witness, t, true)
			if accept == nil || accept(collected, v) {
				collected = append(collected, v)
			}
			if limit >= 0 && len(collected) >= limit {
				return true // stop enumerating
			}
			return false
		})
		trail, ok := term.Unify(result, term.Tuple(collected...), env.Trail)
		if !ok {
			return false
		}
		return k(out, trail, env.State, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return findAllLike(SubstituteVars(witness, sub), InstantiateBody(generator, sub), SubstituteVars(result, sub), accept, limit)
	}
	return step
}

// extremumStep drives both Max and Min (spec §4.4): run generator to
// exhaustion, retaining the bindings/output/state of whichever iteration
// maximizes (or minimizes) the resolved score.
func extremumStep(score term.Value, generator *Step, maximize bool) *Step {
	step := buildExtremumStep(score, generator, maximize)
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return extremumStep(SubstituteVars(score, sub), InstantiateBody(generator, sub), maximize)
	}
	return step
}

func buildExtremumStep(score term.Value, generator *Step, maximize bool) *Step {
	return NativeStep(func(out *Output, env *Env, k Cont) bool {
		var bestTrail *term.Trail
		var bestState *state.Map
		var bestOutputTail []output.Token
		haveBest := false
		var bestScore float64

		baseWatermark := out.Len()
		Try(generator, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			resolved := term.Resolve(score, t, true)
			var sv float64
			if i, ok := resolved.AsInt(); ok {
				sv = float64(i)
			} else if fl, ok := resolved.AsFloat(); ok {
				sv = float64(fl)
			}
			better := !haveBest || (maximize && sv > bestScore) || (!maximize && sv < bestScore)
			if better {
				haveBest = true
				bestScore = sv
				bestTrail = t
				bestState = s
				tail := o.Slice(baseWatermark)
				bestOutputTail = append([]output.Token(nil), tail...)
			}
			o.Truncate(baseWatermark)
			return false // keep enumerating to find the true extremum
		})
		if !haveBest {
			return false
		}
		out.EmitTokens(bestOutputTail...)
		return k(out, bestTrail, bestState, env.Frame)
	})
}

func MaxStep(score term.Value, generator *Step) *Step { return extremumStep(score, generator, true) }
func MinStep(score term.Value, generator *Step) *Step { return extremumStep(score, generator, false) }

// SequenceStep implements `sequence … then … end`: on each external call,
// advance one step in the sequence, tracked by an integer counter held in a
// state element (the same pattern `cool` uses, minus the wraparound).
func SequenceStep(stages []*Step, counter *state.Element) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		idx := 0
		if cur, err := env.State.Get(counter); err == nil {
			if i, ok := cur.AsInt(); ok {
				idx = int(i)
			}
		}
		if idx >= len(stages) {
			idx = len(stages) - 1
		}
		next := idx + 1
		if next > len(stages) {
			next = len(stages)
		}
		newState := env.State.Set(counter, term.Int(int32(next)))
		stageEnv := env.WithState(newState)
		return Try(stages[idx], out, stageEnv, k)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		substituted := make([]*Step, len(stages))
		for i, s := range stages {
			substituted[i] = InstantiateBody(s, sub)
		}
		return SequenceStep(substituted, counter)
	}
	return step
}

// ParseStep implements `Parse CALL TEXT`: run call but consume tokens from
// text instead of appending them, succeeding iff call's output exactly
// matches text (spec §4.4; the HTML-tag ambiguity noted in spec §9 is
// resolved here by requiring literal tag tokens in the input).
func ParseStep(call *Step, text []string) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		scratch := NewOutput()
		ok := Try(call, scratch, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			return tokensEqual(o.Texts(), text)
		})
		if !ok {
			return false
		}
		return k(out, env.Trail, env.State, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return ParseStep(InstantiateBody(call, sub), text)
	}
	return step
}

func tokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SaveTextStep implements `SaveText CALL VAR`: run call, capture its
// rendered output as a string bound to var, discarding any bindings or
// state changes call made (spec §4.4).
func SaveTextStep(call *Step, target term.Value) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		scratch := NewOutput()
		ok := Try(call, scratch, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool { return true })
		if !ok {
			return false
		}
		trail, unifyOK := term.Unify(target, term.Str(scratch.Render()), env.Trail)
		if !unifyOK {
			return false
		}
		return k(out, trail, env.State, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return SaveTextStep(InstantiateBody(call, sub), SubstituteVars(target, sub))
	}
	return step
}

// CallDiscardingStateChangesStep implements `CallDiscardingStateChanges`:
// as Call, but restores the pre-call state on success (bindings and output
// are kept, only state is rolled back).
func CallDiscardingStateChangesStep(call *Step) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		preState := env.State
		return Try(call, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			return k(o, t, preState, f)
		})
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return CallDiscardingStateChangesStep(InstantiateBody(call, sub))
	}
	return step
}

// CaseStep implements `case V …`: dispatch on V by trying each branch's
// guard (a predicate Step that either unifies/tests V or always succeeds
// for a default arm), committing to the first whose guard succeeds.
type CaseBranch struct {
	Guard *Step
	Body  *Step
}

func CaseStep(branches []CaseBranch) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		for _, b := range branches {
			matched := false
			var matchedTrail *term.Trail
			var matchedState *state.Map
			Try(b.Guard, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
				matched = true
				matchedTrail = t
				matchedState = s
				return true
			})
			if matched {
				caseEnv := env.WithTrail(matchedTrail).WithState(matchedState)
				return Try(b.Body, out, caseEnv, k)
			}
		}
		return false
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		substituted := make([]CaseBranch, len(branches))
		for i, b := range branches {
			substituted[i] = CaseBranch{Guard: InstantiateBody(b.Guard, sub), Body: InstantiateBody(b.Body, sub)}
		}
		return CaseStep(substituted)
	}
	return step
}
