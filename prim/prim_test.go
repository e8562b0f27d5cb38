package prim

import (
	"testing"

	"github.com/ianhorswill/step/output"
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

func freshEnv() *runtime.Env {
	return &runtime.Env{Trail: term.Empty, State: state.Empty}
}

func TestEqualsUnifies(t *testing.T) {
	x := term.NewVar("x")
	env := freshEnv()
	ok := runtime.Call(EqualsTask, []term.Value{term.VarRef(x), term.Int(5)}, output.New(), env, func(o *runtime.Output, tr *term.Trail, s *state.Map, f *runtime.Frame) bool {
		v := term.Resolve(term.VarRef(x), tr, true)
		n, _ := v.AsInt()
		return n == 5
	})
	if !ok {
		t.Fatal("expected = to unify and succeed")
	}
}

func TestArithmeticIntPromotion(t *testing.T) {
	// spec §8 scenario 4: [set X = 2] [set Y = X + 1] [= ?x Y] -> 3
	result := term.NewVar("result")
	env := freshEnv()
	ok := runtime.Call(PlusTask, []term.Value{term.Int(2), term.Int(1), term.VarRef(result)}, output.New(), env, func(o *runtime.Output, tr *term.Trail, s *state.Map, f *runtime.Frame) bool {
		v := term.Resolve(term.VarRef(result), tr, true)
		n, isInt := v.AsInt()
		return isInt && n == 3
	})
	if !ok {
		t.Fatal("expected 2+1 to promote to int 3")
	}
}

func TestDivisionPromotesToFloatWhenInexact(t *testing.T) {
	result := term.NewVar("result")
	env := freshEnv()
	ok := runtime.Call(DivTask, []term.Value{term.Int(1), term.Int(3), term.VarRef(result)}, output.New(), env, func(o *runtime.Output, tr *term.Trail, s *state.Map, f *runtime.Frame) bool {
		v := term.Resolve(term.VarRef(result), tr, true)
		_, isFloat := v.AsFloat()
		return isFloat
	})
	if !ok {
		t.Fatal("expected 1/3 to promote to float")
	}
}

func TestDivisionStaysIntWhenExact(t *testing.T) {
	result := term.NewVar("result")
	env := freshEnv()
	ok := runtime.Call(DivTask, []term.Value{term.Int(6), term.Int(3), term.VarRef(result)}, output.New(), env, func(o *runtime.Output, tr *term.Trail, s *state.Map, f *runtime.Frame) bool {
		v := term.Resolve(term.VarRef(result), tr, true)
		n, isInt := v.AsInt()
		return isInt && n == 2
	})
	if !ok {
		t.Fatal("expected 6/3 to stay int 2")
	}
}

func TestMemberGeneratesEachElement(t *testing.T) {
	lst := term.List(term.Int(1), term.Int(2), term.Int(3))
	x := term.NewVar("x")
	env := freshEnv()
	var got []int32
	runtime.Call(MemberTask, []term.Value{term.VarRef(x), lst}, output.New(), env, func(o *runtime.Output, tr *term.Trail, s *state.Map, f *runtime.Frame) bool {
		v := term.Resolve(term.VarRef(x), tr, true)
		n, _ := v.AsInt()
		got = append(got, n)
		return false
	})
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
}

func TestExclusionLogicScenario(t *testing.T) {
	// spec §8 scenario 5: after /a, /a/b, /c!d, /c!e, sorted contents are
	// ["/a/b", "/c!e"].
	elem := state.Intern("elkb_test_root")
	env := freshEnv()
	st := env.State
	for _, path := range []string{"/a", "/a/b", "/c!d", "/c!e"} {
		runtime.Try(ElStoreStep(elem, path), output.New(), env.WithState(st), func(o *runtime.Output, tr *term.Trail, s *state.Map, f *runtime.Frame) bool {
			st = s
			return true
		})
	}
	result := term.NewVar("result")
	var got term.Value
	ok := runtime.Call(ElPathsTask(elem), []term.Value{term.VarRef(result)}, output.New(), env.WithState(st), func(o *runtime.Output, tr *term.Trail, s *state.Map, f *runtime.Frame) bool {
		got = term.Resolve(term.VarRef(result), tr, true)
		return true
	})
	if !ok {
		t.Fatal("expected ElPaths to succeed")
	}
	elems, _ := got.AsTuple()
	if len(elems) != 2 {
		t.Fatalf("expected 2 paths, got %v", got)
	}
	first, _ := elems[0].AsString()
	second, _ := elems[1].AsString()
	if first != "/a/b" || second != "/c!e" {
		t.Fatalf("expected [/a/b /c!e], got [%s %s]", first, second)
	}
}
