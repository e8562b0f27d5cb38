package prim

import (
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/term"
)

// arithFn builds a ternary function-style primitive: `[Op A B Result]`
// binds Result to A Op B, applying spec §4.5's int/float promotion rule
// (int+int -> int unless the division is not exact).
func arithFn(name string, op runtime.BinOp) *runtime.Task {
	return runtime.NewPrimitive(name, 3, runtime.Flags{Function: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		a := term.Resolve(args[0], env.Trail, true)
		b := term.Resolve(args[1], env.Trail, true)
		expr := runtime.BinExpr{Op: op, Left: runtime.ConstExpr{Value: a}, Right: runtime.ConstExpr{Value: b}}
		result, err := expr.Eval(env)
		if err != nil {
			if e, ok := err.(*runtime.Error); ok {
				panic(e)
			}
			return false
		}
		trail, ok := term.Unify(args[2], result, env.Trail)
		if !ok {
			return false
		}
		return k(out, trail, env.State, env.Frame)
	})
}

var (
	PlusTask  = arithFn("+", runtime.OpAdd)
	MinusTask = arithFn("-", runtime.OpSub)
	TimesTask = arithFn("*", runtime.OpMul)
	DivTask   = arithFn("/", runtime.OpDiv)
)

// NegTask implements unary negation as a function-style primitive
// `[Neg A Result]`.
var NegTask = runtime.NewPrimitive("Neg", 2, runtime.Flags{Function: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	a := term.Resolve(args[0], env.Trail, true)
	expr := runtime.NegExpr{Inner: runtime.ConstExpr{Value: a}}
	result, err := expr.Eval(env)
	if err != nil {
		if e, ok := err.(*runtime.Error); ok {
			panic(e)
		}
		return false
	}
	trail, ok := term.Unify(args[1], result, env.Trail)
	if !ok {
		return false
	}
	return k(out, trail, env.State, env.Frame)
})
