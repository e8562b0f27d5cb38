package parse

import (
	"testing"

	"github.com/ianhorswill/step/output"
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

func mustCompile(t *testing.T, reg *Registry, source string) {
	t.Helper()
	if err := NewCompiler(reg, "test.step").Compile(source); err != nil {
		t.Fatalf("compile error: %v", err)
	}
}

func TestSuffixAnnotationSetsFlag(t *testing.T) {
	reg := NewRegistry()
	mustCompile(t, reg, "[suffix] s: s\n")

	task, ok := reg.Task("s")
	if !ok {
		t.Fatal("task s was not registered")
	}
	if !task.Flags.Suffix {
		t.Fatal("expected [suffix] to set Flags.Suffix")
	}
}

func TestFunctionAnnotationSetsFlag(t *testing.T) {
	reg := NewRegistry()
	mustCompile(t, reg, "[function] double ?x ?y: set ?y = ?x + ?x\n")

	task, ok := reg.Task("double")
	if !ok {
		t.Fatal("task double was not registered")
	}
	if !task.Flags.Function {
		t.Fatal("expected [function] to set Flags.Function")
	}
}

// TestSuffixGlueRendersConjugation compiles spec §8 scenario 6 end to end:
// a suffix task whose output depends on ambient state glues onto the word
// immediately before it with no inserted space. Both call sites are written
// `eat[s true]`; the first emits "s" while Number is true, and after
// `set Number = false` the second matches the empty method and emits
// nothing.
func TestSuffixGlueRendersConjugation(t *testing.T) {
	reg := NewRegistry()
	mustCompile(t, reg, `[suffix] s Number: s

[suffix] s ?other:

Greet: He eat[s true], set Number = false they eat[s true].
`)

	numberElem := reg.StateElement("Number")
	task, ok := reg.Task("Greet")
	if !ok {
		t.Fatal("task Greet was not registered")
	}

	env := &runtime.Env{
		Trail:  term.Empty,
		State:  state.Empty.Set(numberElem, term.SymName("true")),
		Module: reg,
	}
	out := output.New()
	ok = runtime.Call(task, nil, out, env, func(o *runtime.Output, tr *term.Trail, st *state.Map, f *runtime.Frame) bool {
		return true
	})
	if !ok {
		t.Fatal("expected Greet to succeed")
	}
	if got, want := out.Render(), "He eats, they eat."; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
