package runtime

import (
	"testing"

	"github.com/ianhorswill/step/output"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

func freshEnv() *Env {
	return &Env{Trail: term.Empty, State: state.Empty}
}

// TestMethodDispatchByUnification mirrors spec §8 scenario 1: `Test X: hit`
// and `Test ?x: miss`, with state X=1; call("Test", 1) -> "Hit".
func TestMethodDispatchByUnification(t *testing.T) {
	x := state.Declare("X_dispatch_test", term.Int(0), true, nil)
	xSym := term.Intern("X_dispatch_test")
	RegisterStateSymbol(xSym, x)

	task := &Task{Name: "Test"}
	m1 := NewMethod(task, []term.Value{term.Sym(xSym)}, nil, nil, EmitStep(Lit("hit")), "test.step", 1)
	m2Var := term.NewVar("x")
	m2 := NewMethod(task, []term.Value{term.VarRef(m2Var)}, []*term.Var{m2Var}, []Local{{Name: "x", Slot: 0}}, EmitStep(Lit("miss")), "test.step", 2)
	task.Methods = []*Method{m1, m2}

	env := freshEnv()
	env.State = env.State.Set(x, term.Int(1))
	out := output.New()
	ok := Call(task, []term.Value{term.Int(1)}, out, env, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool {
		return true
	})
	if !ok || out.Render() != "Hit" {
		t.Fatalf("expected success rendering Hit, got ok=%v text=%q", ok, out.Render())
	}
}

// TestOrBacktracking checks that Or offers alternatives on backtrack.
func TestOrBacktracking(t *testing.T) {
	step := OrStep(EmitStep(Lit("a")), EmitStep(Lit("b")), EmitStep(Lit("c")))
	env := freshEnv()
	var results []string
	Try(step, output.New(), env, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool {
		results = append(results, o.Render())
		return false // ask for more
	})
	if len(results) != 3 || results[0] != "A" || results[1] != "B" || results[2] != "C" {
		t.Fatalf("expected 3 alternatives in order, got %v", results)
	}
}

// TestOnceCommitsToFirst checks that Once only ever yields its first
// solution even though its caller keeps asking for more.
func TestOnceCommitsToFirst(t *testing.T) {
	inner := OrStep(EmitStep(Lit("a")), EmitStep(Lit("b")))
	step := OnceStep(inner)
	env := freshEnv()
	count := 0
	Try(step, output.New(), env, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("expected exactly one solution through Once, got %d", count)
	}
}

// TestNotNeverLeaksOutput checks Not discards output from its inner call
// even when inner fails the outer k.
func TestNotNeverLeaksOutput(t *testing.T) {
	inner := EmitStep(Lit("hidden"))
	step := NotStep(inner)
	env := freshEnv()
	out := output.New()
	ok := Try(step, out, env, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool { return true })
	if ok {
		t.Fatal("Not should fail when inner succeeds")
	}
	if out.Len() != 0 {
		t.Fatal("Not must not leak inner's output")
	}
}

// TestFindAllCollectsInOrder mirrors spec §8's FindAll property.
func TestFindAllCollectsInOrder(t *testing.T) {
	x := term.NewVar("x")
	generator := OrStep(
		assignLocal(x, term.Int(1)),
		assignLocal(x, term.Int(2)),
		assignLocal(x, term.Int(3)),
	)
	result := term.NewVar("result")
	step := FindAllStep(term.VarRef(x), generator, term.VarRef(result))
	env := freshEnv()
	var got term.Value
	ok := Try(step, output.New(), env, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool {
		got = term.Resolve(term.VarRef(result), tr, true)
		return true
	})
	if !ok {
		t.Fatal("FindAll should succeed")
	}
	elems, _ := got.AsTuple()
	if len(elems) != 3 {
		t.Fatalf("expected 3 collected elements, got %v", got)
	}
	for i, want := range []int32{1, 2, 3} {
		if n, _ := elems[i].AsInt(); n != want {
			t.Fatalf("element %d: got %v, want %d", i, elems[i], want)
		}
	}
}

// TestMaxRetainsExtremum mirrors spec §8 scenario 7.
func TestMaxRetainsExtremum(t *testing.T) {
	x := term.NewVar("x")
	score := term.NewVar("score")
	generator := OrStep(
		assignPair(x, term.SymName("a"), score, term.Int(1)),
		assignPair(x, term.SymName("b"), score, term.Int(2)),
		assignPair(x, term.SymName("c"), score, term.Int(1)),
	)
	step := MaxStep(term.VarRef(score), generator)
	env := freshEnv()
	var gotX, gotScore term.Value
	ok := Try(step, output.New(), env, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool {
		gotX = term.Resolve(term.VarRef(x), tr, true)
		gotScore = term.Resolve(term.VarRef(score), tr, true)
		return true
	})
	if !ok {
		t.Fatal("Max should succeed")
	}
	if sym, _ := gotX.AsSymbol(); sym.String() != "b" {
		t.Fatalf("expected x=b, got %v", gotX)
	}
	if n, _ := gotScore.AsInt(); n != 2 {
		t.Fatalf("expected score=2, got %v", gotScore)
	}
}

// TestCoolAlternates checks that cool rotates which branch is preferred.
func TestCoolAlternates(t *testing.T) {
	counter := state.Intern("cool_counter_test")
	step := &Step{Kind: StepCool, Branches: []*Step{EmitStep(Lit("a")), EmitStep(Lit("b"))}, CoolN: 1, CoolKey: counter}
	env := freshEnv()

	out1 := output.New()
	var st1 *state.Map
	Try(step, out1, env, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool {
		st1 = s
		return true
	})
	env2 := env.WithState(st1)
	out2 := output.New()
	Try(step, out2, env2, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool { return true })

	if out1.Render() == out2.Render() {
		t.Fatalf("expected cool to alternate branches, got %q twice", out1.Render())
	}
}

// TestFluentAssertRetractThroughSteps exercises FluentUpdateStep/HoldsStep.
func TestFluentAssertRetractThroughSteps(t *testing.T) {
	elem := state.Intern("likes_fluent_test")
	args := term.Tuple(term.SymName("alice"), term.SymName("bob"))
	assertStep := FluentUpdateStep(elem, args, true)
	holdsStep := FluentHoldsStep(elem, args)

	env := freshEnv()
	var afterAssert *state.Map
	Try(assertStep, output.New(), env, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool {
		afterAssert = s
		return true
	})
	env2 := env.WithState(afterAssert)
	ok := Try(holdsStep, output.New(), env2, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool { return true })
	if !ok {
		t.Fatal("expected fluent to hold after assert")
	}
	var afterRetract *state.Map
	Try(FluentUpdateStep(elem, args, false), output.New(), env2, func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool {
		afterRetract = s
		return true
	})
	if Try(holdsStep, output.New(), env.WithState(afterRetract), func(o *Output, tr *term.Trail, s *state.Map, f *Frame) bool { return true }) {
		t.Fatal("expected fluent not to hold after retract")
	}
}

// assignLocal builds a step that unifies v with val and succeeds once.
func assignLocal(v *term.Var, val term.Value) *Step {
	return NativeStep(func(out *Output, env *Env, k Cont) bool {
		trail, ok := term.Unify(term.VarRef(v), val, env.Trail)
		if !ok {
			return false
		}
		return k(out, trail, env.State, env.Frame)
	})
}

func assignPair(a *term.Var, av term.Value, b *term.Var, bv term.Value) *Step {
	return NativeStep(func(out *Output, env *Env, k Cont) bool {
		trail, ok := term.Unify(term.VarRef(a), av, env.Trail)
		if !ok {
			return false
		}
		trail, ok = term.Unify(term.VarRef(b), bv, trail)
		if !ok {
			return false
		}
		return k(out, trail, env.State, env.Frame)
	})
}
