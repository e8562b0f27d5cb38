package prim

import (
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// CallTask implements the higher-order `[Call T arg…]` form: T is a
// term.TaskRef (as produced by a `?var/Task` path reference, spec §4.8)
// whose args are this call's remaining arguments. Variable arity, so it is
// registered directly rather than through a fixed-arity helper.
var CallTask = runtime.NewPrimitive("Call", -1, runtime.Flags{Fallible: true, Generator: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	if len(args) == 0 {
		runtime.Raise(runtime.KindArgumentCount, env.Frame, "Call: missing task argument")
	}
	target := term.Deref(args[0], env.Trail)
	t, ok := target.AsTask()
	if !ok {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "Call: first argument is not a task reference")
	}
	task, ok := t.(*runtime.Task)
	if !ok {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "Call: opaque task reference of wrong type")
	}
	return runtime.Call(task, args[1:], out, env, k)
})

// PathCallStep implements `?var/Task/Task2 …` (spec §4.8): a chain of
// single-argument function calls — every task but the last is called as a
// 2-ary function (input, fresh output variable) and feeds its result to
// the next link; the last task in the chain is invoked directly on the
// accumulated value and its own success/output/bindings/state become this
// step's, exactly as spec §8 scenario 2 requires
// (`?x/Map/Write` with Map a function and Write a plain emitting task).
func PathCallStep(lookup runtime.TaskLookup, source term.Value, chain []string) *runtime.Step {
	step := runtime.NativeStep(func(out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		if len(chain) == 0 {
			return k(out, env.Trail, env.State, env.Frame)
		}
		cur := term.Deref(source, env.Trail)
		trail := env.Trail
		st := env.State
		for _, name := range chain[:len(chain)-1] {
			task, ok := lookup.Task(name)
			if !ok {
				runtime.Raise(runtime.KindArgumentType, env.Frame, "undefined task in path call: %s", name)
			}
			outVar := term.NewVar("_pathresult")
			callEnv := env.WithTrail(trail).WithState(st)
			succeeded := runtime.Call(task, []term.Value{cur, term.VarRef(outVar)}, out, callEnv, func(o *runtime.Output, t *term.Trail, s *state.Map, f *runtime.Frame) bool {
				trail = t
				st = s
				return true
			})
			if !succeeded {
				return false
			}
			cur = term.Deref(term.VarRef(outVar), trail)
		}
		last, ok := lookup.Task(chain[len(chain)-1])
		if !ok {
			runtime.Raise(runtime.KindArgumentType, env.Frame, "undefined task in path call: %s", chain[len(chain)-1])
		}
		finalEnv := env.WithTrail(trail).WithState(st)
		return runtime.Call(last, []term.Value{cur}, out, finalEnv, k)
	})
	step.Template = func(sub map[*term.Var]*term.Var) *runtime.Step {
		return PathCallStep(lookup, runtime.SubstituteVars(source, sub), chain)
	}
	return step
}
