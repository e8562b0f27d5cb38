package runtime

import (
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// This file implements the functional-expression language evaluated by
// `set X = E` (spec §4.5): constants, variable references, and
// unary/binary arithmetic with numeric promotion (int+int -> int unless
// the division is not exact, in which case both operands promote to
// float).

// ConstExpr evaluates to a fixed Value.
type ConstExpr struct{ Value term.Value }

func (c ConstExpr) Eval(env *Env) (term.Value, error) {
	return c.Value, nil
}

func (c ConstExpr) Substitute(sub map[*term.Var]*term.Var) Expr {
	return ConstExpr{Value: SubstituteVars(c.Value, sub)}
}

// VarExpr resolves a term (typically a local variable or state-element
// reference compiled into a term.Value) against the current trail/state.
type VarExpr struct{ Term term.Value }

func (v VarExpr) Eval(env *Env) (term.Value, error) {
	resolved := term.Deref(v.Term, env.Trail)
	if sym, ok := resolved.AsSymbol(); ok {
		if elem := lookupStateSymbol(sym); elem != nil {
			return env.State.Get(elem)
		}
	}
	return term.Resolve(resolved, env.Trail, true), nil
}

func (v VarExpr) Substitute(sub map[*term.Var]*term.Var) Expr {
	return VarExpr{Term: SubstituteVars(v.Term, sub)}
}

// stateSymbolElements maps a capitalized identifier's interned symbol back
// to the state.Element it names, populated by the parser as it compiles
// `Capitalized` references inside expressions (spec §4.8: "capitalized
// identifier denotes a state element, shared across methods"). Kept as a
// package-level registry (rather than threading it through Env) because
// the mapping is a property of the source, fixed once parsing completes,
// exactly like term.Symbol's own interning table.
var stateSymbolElements = map[term.Symbol]*state.Element{}

func RegisterStateSymbol(sym term.Symbol, elem *state.Element) {
	stateSymbolElements[sym] = elem
}

func lookupStateSymbol(sym term.Symbol) *state.Element {
	return stateSymbolElements[sym]
}

// resolveStateRefs substitutes any Symbol naming a registered state element
// with that element's current value in st, recursively through tuples and
// pairs. Used when instantiating a method head (spec §4.8: "capitalized
// identifier denotes a state element, shared across methods") so
// `Test X: hit` dispatches on X's current value rather than literally
// matching the symbol X.
func resolveStateRefs(v term.Value, st *state.Map) term.Value {
	if sym, ok := v.AsSymbol(); ok {
		if elem := lookupStateSymbol(sym); elem != nil {
			if val, err := st.Get(elem); err == nil {
				return val
			}
		}
		return v
	}
	switch v.Kind() {
	case term.KindTuple:
		elems, _ := v.AsTuple()
		out := make([]term.Value, len(elems))
		for i, e := range elems {
			out[i] = resolveStateRefs(e, st)
		}
		return term.Tuple(out...)
	case term.KindPair:
		p, _ := v.AsPair()
		return term.Cons(resolveStateRefs(p.Head, st), resolveStateRefs(p.Tail, st))
	case term.KindFeature:
		f, _ := v.AsFeature()
		fields := make(map[term.Symbol]term.Value, len(f.Fields))
		for k, fv := range f.Fields {
			fields[k] = resolveStateRefs(fv, st)
		}
		return term.FeatureVal(&term.Feature{Fields: fields, Next: resolveStateRefs(f.Next, st)})
	default:
		return v
	}
}

// BinOp names a binary arithmetic operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
)

// BinExpr evaluates Left op Right with spec §4.5's numeric promotion: if
// both operands are int and (op != Div or the division is exact), the
// result is int; otherwise both operands promote to float.
type BinExpr struct {
	Op          BinOp
	Left, Right Expr
}

func (b BinExpr) Eval(env *Env) (term.Value, error) {
	lv, err := b.Left.Eval(env)
	if err != nil {
		return term.Value{}, err
	}
	rv, err := b.Right.Eval(env)
	if err != nil {
		return term.Value{}, err
	}
	li, lIsInt := lv.AsInt()
	ri, rIsInt := rv.AsInt()
	if lIsInt && rIsInt {
		if b.Op == OpDiv {
			if ri == 0 {
				return term.Value{}, newError(KindArgumentType, env.Frame, "division by zero")
			}
			if li%ri == 0 {
				return term.Int(li / ri), nil
			}
			return term.Float(float32(li) / float32(ri)), nil
		}
		switch b.Op {
		case OpAdd:
			return term.Int(li + ri), nil
		case OpSub:
			return term.Int(li - ri), nil
		case OpMul:
			return term.Int(li * ri), nil
		}
	}
	lf, ok1 := asFloat(lv)
	rf, ok2 := asFloat(rv)
	if !ok1 || !ok2 {
		return term.Value{}, newError(KindArgumentType, env.Frame, "arithmetic on non-numeric value")
	}
	switch b.Op {
	case OpAdd:
		return term.Float(lf + rf), nil
	case OpSub:
		return term.Float(lf - rf), nil
	case OpMul:
		return term.Float(lf * rf), nil
	case OpDiv:
		if rf == 0 {
			return term.Value{}, newError(KindArgumentType, env.Frame, "division by zero")
		}
		return term.Float(lf / rf), nil
	}
	return term.Value{}, newError(KindArgumentType, env.Frame, "unknown operator")
}

func (b BinExpr) Substitute(sub map[*term.Var]*term.Var) Expr {
	return BinExpr{Op: b.Op, Left: b.Left.Substitute(sub), Right: b.Right.Substitute(sub)}
}

func asFloat(v term.Value) (float32, bool) {
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	if i, ok := v.AsInt(); ok {
		return float32(i), true
	}
	return 0, false
}

// NegExpr implements unary negation.
type NegExpr struct{ Inner Expr }

func (n NegExpr) Eval(env *Env) (term.Value, error) {
	v, err := n.Inner.Eval(env)
	if err != nil {
		return term.Value{}, err
	}
	if i, ok := v.AsInt(); ok {
		return term.Int(-i), nil
	}
	if f, ok := v.AsFloat(); ok {
		return term.Float(-f), nil
	}
	return term.Value{}, newError(KindArgumentType, env.Frame, "negation of non-numeric value")
}

func (n NegExpr) Substitute(sub map[*term.Var]*term.Var) Expr {
	return NegExpr{Inner: n.Inner.Substitute(sub)}
}

// AssignStep builds a StepAssign node.
func AssignStep(elem *state.Element, expr Expr) *Step {
	return &Step{Kind: StepAssign, AssignElement: elem, AssignExpr: expr}
}

// LocalAssignStep implements `set ?local = E` (spec §4.5: "assignments to
// local variables first require the local to be unbound, otherwise
// unification semantics apply"). When the local is already bound, this
// degrades to an ordinary (fallible, not exceptional) unification against
// E's value rather than rebinding it — there is no state.Element involved,
// so the compiler emits this whenever an assignment's left-hand side is a
// local rather than a capitalized state-element name.
func LocalAssignStep(local term.Value, expr Expr) *Step {
	step := NativeStep(func(out *Output, env *Env, k Cont) bool {
		val, err := expr.Eval(env)
		if err != nil {
			if e, ok := err.(*Error); ok {
				panic(e)
			}
			return false
		}
		trail, ok := term.Unify(local, val, env.Trail)
		if !ok {
			return false
		}
		return k(out, trail, env.State, env.Frame)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *Step {
		return LocalAssignStep(SubstituteVars(local, sub), expr.Substitute(sub))
	}
	return step
}
