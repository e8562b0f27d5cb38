package runtime

import (
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// StepKind tags the variant held by a Step node (spec §3's step chain).
type StepKind int

const (
	StepEmit StepKind = iota
	StepCall
	StepAssign
	StepChoice
	StepCool
	StepNative // an arbitrary Go closure step, used to implement composite
	// surface primitives (sequence/case/Not/...) in terms of the same
	// Step/Try machinery without growing a StepKind per primitive.
)

// Step is one node of a compiled method body, a linked list threaded
// through Next (spec §3 "Step: nodes of a linked list representing a
// compiled body").
type Step struct {
	Kind StepKind
	Next *Step

	// StepEmit
	Tokens []Token

	// StepCall
	CallTask *Task
	CallArgs []term.Value

	// StepAssign
	AssignElement interface{} // *state.Element, stored as interface{} to avoid import cycle worries; cast in assign.go
	AssignExpr    Expr

	// StepChoice: try each branch in order (firstOf/case); StepCool additionally
	// cycles which branch is preferred using a state-tracked counter.
	Branches []*Step
	CoolN    int
	CoolKey  interface{} // *state.Element holding the cycle counter

	// StepNative
	Native func(out *Output, env *Env, k Cont) bool

	// Template rebuilds this StepNative node with every local variable
	// reference substituted per sub (see InstantiateBody in method.go).
	// Populated by the composite control-flow constructors in control.go,
	// fluent.go, assign.go and prim's path-call step, each of which closes
	// over term.Value/Expr/*Step arguments that InstantiateBody cannot see
	// through a bare Native closure. Nil for StepNative nodes that close
	// over nothing substitutable (e.g. Fail).
	Template func(sub map[*term.Var]*term.Var) *Step
}

// Token is one literal piece of an Emit step: either a literal string, or a
// term.Value to be resolved and stringified when the step runs (spec §4.8
// "literal tokens become Emit steps"; variable interpolation inside a body
// resolves at run time, not compile time).
type Token struct {
	Literal string
	Value   term.Value
	IsValue bool
}

func Lit(s string) Token        { return Token{Literal: s} }
func ValueToken(v term.Value) Token { return Token{Value: v, IsValue: true} }

// Expr is a compiled functional expression for `set X = E` (spec §4.5):
// constants, variable references, and unary/binary arithmetic with numeric
// promotion.
type Expr interface {
	Eval(env *Env) (term.Value, error)
	Substitute(sub map[*term.Var]*term.Var) Expr
}

// Seq chains steps a then b, returning a (with its tail linked to b) — used
// by the compiler to splice sub-chains together.
func Seq(a, b *Step) *Step {
	if a == nil {
		return b
	}
	cur := a
	for cur.Next != nil {
		cur = cur.Next
	}
	cur.Next = b
	return a
}

// EmitStep builds a single-node Emit step.
func EmitStep(tokens ...Token) *Step {
	return &Step{Kind: StepEmit, Tokens: tokens}
}

// CallStep builds a single-node Call step.
func CallStep(task *Task, args ...term.Value) *Step {
	return &Step{Kind: StepCall, CallTask: task, CallArgs: args}
}

// GlueStep wraps inner so that the first token it emits is glued to
// whatever precedes it in Output — no separating space, regardless of
// Format's usual spacing rules (spec §8 scenario 6: `eat[s]` renders
// "eats", not "eat s", because the call bracket was written with no space
// before it). The parser applies this wrapper at compile time, either
// because the call site had no space before its opening `[` or because the
// called task is itself `[suffix]`-flagged.
func GlueStep(inner *Step) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		watermark := out.Len()
		return Try(inner, out, env, func(o *Output, t *term.Trail, s *state.Map, f *Frame) bool {
			o.GlueFirst(watermark)
			return k(o, t, s, f)
		})
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return GlueStep(InstantiateBody(inner, sub))
	}
	return step
}

// NativeStep wraps an arbitrary closure as a Step, the mechanism composite
// control-flow primitives use to drop into custom Try logic (e.g. Not's
// "run inner in a throwaway Env, negate the result").
func NativeStep(fn func(out *Output, env *Env, k Cont) bool) *Step {
	return &Step{Kind: StepNative, Native: fn}
}
