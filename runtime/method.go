package runtime

import "github.com/ianhorswill/step/term"

// Local is a compile-time local-variable descriptor: a name plus slot
// index, distinct from the runtime logic variable a given invocation
// allocates for that slot (spec §3 "local variable name").
type Local struct {
	Name string
	Slot int
}

// Method is one clause of a task: a head pattern (argument terms, which may
// reference Local slots via term.VarRef of a placeholder *term.Var held in
// HeadVars), the method's locals, its compiled body, an optional
// random-selection weight, and source location for diagnostics (spec §3).
type Method struct {
	Task       *Task
	Head       []term.Value // pattern terms; local placeholders are term.VarRef(HeadVars[i])
	HeadVars   []*term.Var  // the placeholder variables appearing in Head, parallel to Locals by index
	Locals     []Local
	Body       *Step
	Weight     int
	SourcePath string
	SourceLine int

	// Group names the declaration group active when this method was
	// compiled (spec §4.8/§9: empty unless a `[group ...]` declaration line
	// preceded it). Resolution — matching the group's pattern and rewriting
	// Head via DeclarationExpansion — happens later, at module finalization,
	// never at compile time (spec §9 "must resolve lazily").
	Group string
}

// NewMethod allocates a Method with weight defaulted to 1 (spec §4.8
// "Weight annotations [integer] multiply the method's random-selection
// weight" — the multiplicative identity when absent).
func NewMethod(task *Task, head []term.Value, headVars []*term.Var, locals []Local, body *Step, path string, line int) *Method {
	return &Method{
		Task: task, Head: head, HeadVars: headVars, Locals: locals, Body: body,
		Weight: 1, SourcePath: path, SourceLine: line,
	}
}

// freshVars allocates one fresh logic variable per local, stamped with
// depth so age-based unification prefers them correctly relative to the
// caller's variables (spec §4.1).
func (m *Method) freshVars(depth int) []*term.Var {
	vars := make([]*term.Var, len(m.Locals))
	for i, l := range m.Locals {
		vars[i] = term.NewVarAt(l.Name, depth)
	}
	return vars
}

// substitution builds the HeadVars[i] -> fresh[i] map used to instantiate
// both Head and Body for one call (see InstantiateBody) — every reference
// to a method's locals, wherever it appears in the compiled method, must
// go through the same substitution so the head pattern and the body agree
// on which runtime variable a given local names for this particular call.
func (m *Method) substitution(fresh []*term.Var) map[*term.Var]*term.Var {
	sub := make(map[*term.Var]*term.Var, len(m.HeadVars))
	for i, hv := range m.HeadVars {
		sub[hv] = fresh[i]
	}
	return sub
}

// instantiateHead substitutes each HeadVars[i] placeholder with fresh[i] in
// Head, producing the pattern to unify against call arguments for this
// invocation. Placeholders are matched by pointer identity.
func (m *Method) instantiateHead(sub map[*term.Var]*term.Var) []term.Value {
	out := make([]term.Value, len(m.Head))
	for i, t := range m.Head {
		out[i] = SubstituteVars(t, sub)
	}
	return out
}

// SubstituteVars replaces every Var appearing in sub's keys with its mapped
// value, recursively through tuples and pairs (pointer-identity matched).
// Exported because every part of the compiled body — not just the head —
// needs the same per-call substitution: control.go's composite primitives,
// assign.go's expressions, and prim's Step-level primitives all call this
// to build the "Template" a method body instantiates fresh on each call
// (see InstantiateBody).
func SubstituteVars(v term.Value, sub map[*term.Var]*term.Var) term.Value {
	if pv, ok := v.AsVar(); ok {
		if nv, found := sub[pv]; found {
			return term.VarRef(nv)
		}
		return v
	}
	switch v.Kind() {
	case term.KindTuple:
		elems, _ := v.AsTuple()
		out := make([]term.Value, len(elems))
		for i, e := range elems {
			out[i] = SubstituteVars(e, sub)
		}
		return term.Tuple(out...)
	case term.KindPair:
		p, _ := v.AsPair()
		return term.Cons(SubstituteVars(p.Head, sub), SubstituteVars(p.Tail, sub))
	case term.KindFeature:
		f, _ := v.AsFeature()
		fields := make(map[term.Symbol]term.Value, len(f.Fields))
		for k, fv := range f.Fields {
			fields[k] = SubstituteVars(fv, sub)
		}
		return term.FeatureVal(&term.Feature{Fields: fields, Next: SubstituteVars(f.Next, sub)})
	default:
		return v
	}
}

// InstantiateBody rebuilds step (and its Next chain) with every local
// variable reference replaced per sub, producing the fresh copy of a
// method's compiled body that a single call executes against. This is
// the body-side counterpart to instantiateHead — without it, a method's
// body would still reference the shared compile-time placeholder
// variables, which breaks as soon as the method recurses (an inner call
// would see the outer call's binding for what looks like "its own" local).
//
// StepEmit/StepCall/StepAssign/StepChoice/StepCool are rebuilt directly
// since their variable-bearing fields are structurally visible. StepNative
// steps (every composite control-flow primitive in control.go, plus
// fluent/path-call primitives) carry their own Template closure, populated
// by their constructor, that reruns the same constructor with substituted
// arguments — the mechanism that lets substitution reach into a Go closure
// rather than needing to.
func InstantiateBody(step *Step, sub map[*term.Var]*term.Var) *Step {
	if step == nil {
		return nil
	}
	var out *Step
	switch step.Kind {
	case StepEmit:
		toks := make([]Token, len(step.Tokens))
		for i, t := range step.Tokens {
			toks[i] = t
			if t.IsValue {
				toks[i].Value = SubstituteVars(t.Value, sub)
			}
		}
		out = &Step{Kind: StepEmit, Tokens: toks}
	case StepCall:
		args := make([]term.Value, len(step.CallArgs))
		for i, a := range step.CallArgs {
			args[i] = SubstituteVars(a, sub)
		}
		out = &Step{Kind: StepCall, CallTask: step.CallTask, CallArgs: args}
	case StepAssign:
		out = &Step{Kind: StepAssign, AssignElement: step.AssignElement, AssignExpr: step.AssignExpr.Substitute(sub)}
	case StepChoice:
		branches := make([]*Step, len(step.Branches))
		for i, b := range step.Branches {
			branches[i] = InstantiateBody(b, sub)
		}
		out = &Step{Kind: StepChoice, Branches: branches}
	case StepCool:
		branches := make([]*Step, len(step.Branches))
		for i, b := range step.Branches {
			branches[i] = InstantiateBody(b, sub)
		}
		out = &Step{Kind: StepCool, Branches: branches, CoolN: step.CoolN, CoolKey: step.CoolKey}
	case StepNative:
		if step.Template != nil {
			out = step.Template(sub)
		} else {
			out = step
		}
	default:
		out = step
	}
	out.Next = InstantiateBody(step.Next, sub)
	return out
}
