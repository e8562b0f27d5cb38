// Package prim implements Step's built-in host tasks (spec §4.4 primitive
// row plus §2's "Primitives" component): comparison, arithmetic,
// higher-order call variants, I/O, list/feature-structure operations,
// exclusion-logic KB access, and reflection-backed queries.
//
// Each primitive is registered the way the teacher registers a custom
// datalog predicate (dlprim.Equals): a small struct or closure wrapping the
// generic PrimitiveFunc contract, bundled into a *runtime.Task via
// runtime.NewPrimitive, with no user-visible distinction from a
// compound task apart from how its Methods field is populated.
package prim

import (
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/term"
)

// requireGround raises ArgumentInstantiation (spec §7) unless every
// (already-resolved) comparison operand is ground — comparison primitives
// require groundness.
func requireGround(args []term.Value, env *runtime.Env, name string) {
	for _, a := range args {
		if a.IsVar() {
			runtime.Raise(runtime.KindArgumentInstantiation, env.Frame, "%s: argument not sufficiently instantiated", name)
		}
	}
}

// EqualsTask implements the `=` primitive: unify the two arguments (the
// teacher's Equals predicate generalized from constant-only comparison to
// full structural unification, since Step's `=` may bind variables).
var EqualsTask = runtime.NewPrimitive("=", 2, runtime.Flags{Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	trail, ok := term.Unify(args[0], args[1], env.Trail)
	if !ok {
		return false
	}
	return k(out, trail, env.State, env.Frame)
})

// NotEqualsTask implements `\=`: succeeds iff the two arguments do not
// unify, without leaving any binding behind (mirrors runtime.NotStep's
// "try then discard" shape).
var NotEqualsTask = runtime.NewPrimitive("\\=", 2, runtime.Flags{Predicate: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	_, ok := term.Unify(args[0], args[1], env.Trail)
	if ok {
		return false
	}
	return k(out, env.Trail, env.State, env.Frame)
})

func numCompare(name string, cmp func(a, b float64) bool) *runtime.Task {
	return runtime.NewPrimitive(name, 2, runtime.Flags{Predicate: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		a := term.Resolve(args[0], env.Trail, true)
		b := term.Resolve(args[1], env.Trail, true)
		requireGround([]term.Value{a, b}, env, name)
		af, aok := asFloat(a)
		bf, bok := asFloat(b)
		if !aok || !bok {
			runtime.Raise(runtime.KindArgumentType, env.Frame, "%s: non-numeric argument", name)
		}
		if !cmp(af, bf) {
			return false
		}
		return k(out, env.Trail, env.State, env.Frame)
	})
}

var (
	LessThanTask         = numCompare("<", func(a, b float64) bool { return a < b })
	GreaterThanTask      = numCompare(">", func(a, b float64) bool { return a > b })
	LessOrEqualTask      = numCompare("<=", func(a, b float64) bool { return a <= b })
	GreaterOrEqualTask   = numCompare(">=", func(a, b float64) bool { return a >= b })
)

func asFloat(v term.Value) (float64, bool) {
	if i, ok := v.AsInt(); ok {
		return float64(i), true
	}
	if f, ok := v.AsFloat(); ok {
		return float64(f), true
	}
	return 0, false
}
