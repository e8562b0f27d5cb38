package module

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ianhorswill/step/output"
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// armTimeout starts the Config.MethodTimeout countdown for one call, if
// configured: once it elapses, it flips env's search-limit sentinel to 0
// so the next runtime.Call raises KindStepTaskTimeout,
// same cancellation path a host-driven search-limit exhaustion takes
// (spec §5 "background evaluator... abort it by flipping the search-limit
// sentinel"). The returned func must be called once the call returns, to
// stop the timer so it doesn't fire against a later, unrelated call.
func (m *Module) armTimeout(env *runtime.Env) func() {
	if m.config.MethodTimeout <= 0 || env.SearchLimit == nil {
		return func() {}
	}
	t := time.AfterFunc(m.config.MethodTimeout, func() {
		atomic.StoreInt64(env.SearchLimit, 0)
	})
	return func() { t.Stop() }
}

// invoke is the shared evaluation core behind Call/CallWithState/
// CallPredicate/CallFunction (spec §6's "Evaluation API"). It runs
// taskName(args…) against st, returning the rendered output text, the
// state reached by the accepted solution (st itself if the call failed),
// whether a solution was found, and any *runtime.Error recovered from the
// first raised exceptional condition (spec §7 "all errors unwind to the
// outermost call").
//
// Only one evaluation runs at a time per Module (spec §5 "at most one
// background evaluator may be active"): the mutex here is that boundary,
// not a performance optimization.
func (m *Module) invoke(taskName string, args []term.Value, st *state.Map) (rendered string, newState *state.Map, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer runtime.Recover(&err)

	task, found := m.Task(taskName)
	if !found {
		return "", st, false, fmt.Errorf("step: module: undefined task %q", taskName)
	}

	out := output.New()
	env := m.newEnv(st)
	defer m.armTimeout(env)()
	newState = st
	succeeded := runtime.Call(task, args, out, env, func(o *output.Buffer, t *term.Trail, s *state.Map, f *runtime.Frame) bool {
		newState = s
		return true
	})
	return out.Render(), newState, succeeded, nil
}

// Call implements `call(task_name, args…) -> generated text or null` (spec
// §6): runs the task against the module's own persistent state, committing
// any state changes the accepted solution made, and returns ("", false,
// nil) rather than an error when the call simply has no solution (a
// fallible task returning false is not an error).
func (m *Module) Call(taskName string, args ...term.Value) (string, bool, error) {
	text, newState, ok, err := m.invoke(taskName, args, m.state)
	if err != nil {
		return "", false, err
	}
	if ok {
		m.state = newState
	}
	return text, ok, nil
}

// CallWithState implements `call(state, task_name, args…) -> (text,
// new_state)` (spec §6): runs against an explicit state snapshot instead of
// the module's own, returning the resulting state rather than committing
// it, so a caller can explore branches without mutating m.
func (m *Module) CallWithState(st *state.Map, taskName string, args ...term.Value) (string, *state.Map, bool, error) {
	return m.invoke(taskName, args, st)
}

// CallPredicate implements `call_predicate -> bool` (spec §6): runs the
// task purely for its success/failure, discarding any text it emits (a
// [predicate]-flagged task emits none, but CallPredicate doesn't require
// the flag — it simply ignores output either way) and committing state
// changes exactly like Call.
func (m *Module) CallPredicate(taskName string, args ...term.Value) (bool, error) {
	_, newState, ok, err := m.invoke(taskName, args, m.state)
	if err != nil {
		return false, err
	}
	if ok {
		m.state = newState
	}
	return ok, nil
}

// CallFunction implements `call_function<T> -> T` (spec §6): calls a
// [function]-flagged task with a fresh result variable appended as its
// last argument, and extracts it into T via convert once the call
// succeeds. Returns an error if the call fails, raises, or the bound
// result doesn't convert to T.
func CallFunction[T any](m *Module, taskName string, convert func(term.Value) (T, bool), args ...term.Value) (T, error) {
	var zero T
	resultVar := term.NewVar("_result")
	callArgs := make([]term.Value, 0, len(args)+1)
	callArgs = append(callArgs, args...)
	callArgs = append(callArgs, term.VarRef(resultVar))

	var result term.Value
	var resultTrail *term.Trail
	var err error
	m.mu.Lock()
	func() {
		defer m.mu.Unlock()
		defer runtime.Recover(&err)
		t, ok2 := m.Task(taskName)
		if !ok2 {
			err = fmt.Errorf("step: module: undefined task %q", taskName)
			return
		}
		out := output.New()
		env := m.newEnv(m.state)
		defer m.armTimeout(env)()
		succeeded := runtime.Call(t, callArgs, out, env, func(o *output.Buffer, tr *term.Trail, s *state.Map, f *runtime.Frame) bool {
			resultTrail = tr
			m.state = s
			return true
		})
		if !succeeded {
			err = fmt.Errorf("step: module: call to %s produced no result", taskName)
		}
	}()
	if err != nil {
		return zero, err
	}
	result = term.Resolve(term.VarRef(resultVar), resultTrail, true)
	v, ok := convert(result)
	if !ok {
		return zero, fmt.Errorf("step: module: result of %s did not convert to the requested type", taskName)
	}
	return v, nil
}
