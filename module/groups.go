package module

import (
	"github.com/ianhorswill/step/output"
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// ResolveDeclarationGroups runs spec §4.8/§9's declaration-group rewrite as a
// finalization pass over everything currently loaded: every method compiled
// under a `[group Name]` line (runtime.Method.Group) has its head checked
// against the optional DeclarationGroup task and, if DeclarationExpansion is
// defined, rewritten through it. This must happen lazily, after loading, not
// at compile time (spec §9 "must resolve lazily... not bound at compile
// time") — DeclarationGroup/DeclarationExpansion are themselves ordinary
// tasks and may be defined anywhere, including after the methods that use
// them.
//
// A group whose DeclarationExpansion is never defined is left untouched:
// the Group tag alone has no effect on dispatch, only on this rewrite.
//
// allowedGroups, if non-empty, restricts the rewrite to those named groups
// (a host's config file allow-list) — every other group is left tagged but
// unresolved, same as if DeclarationExpansion didn't exist for it.
func (m *Module) ResolveDeclarationGroups(allowedGroups ...string) error {
	expansion, hasExpansion := m.Task("DeclarationExpansion")
	if !hasExpansion {
		return nil
	}
	guard, hasGuard := m.Task("DeclarationGroup")

	var allowed map[string]bool
	if len(allowedGroups) > 0 {
		allowed = make(map[string]bool, len(allowedGroups))
		for _, g := range allowedGroups {
			allowed[g] = true
		}
	}

	var firstErr error
	for _, task := range m.Tasks() {
		for _, meth := range task.Methods {
			if meth.Group == "" {
				continue
			}
			if allowed != nil && !allowed[meth.Group] {
				continue
			}
			if err := m.resolveMethodGroup(meth, guard, hasGuard, expansion); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Module) resolveMethodGroup(meth *runtime.Method, guard *runtime.Task, hasGuard bool, expansion *runtime.Task) (err error) {
	defer runtime.Recover(&err)

	headTuple := term.Tuple(meth.Head...)
	env := m.newEnv(m.state)

	if hasGuard {
		matched := runtime.Call(guard, []term.Value{term.SymName(meth.Group), headTuple}, output.New(), env,
			func(o *output.Buffer, t *term.Trail, s *state.Map, f *runtime.Frame) bool { return true })
		if !matched {
			return nil
		}
	}

	resultVar := term.NewVar("_expanded")
	var resultTrail *term.Trail
	ok := runtime.Call(expansion, []term.Value{term.SymName(meth.Group), headTuple, term.VarRef(resultVar)}, output.New(), env,
		func(o *output.Buffer, t *term.Trail, s *state.Map, f *runtime.Frame) bool {
			resultTrail = t
			return true
		})
	if !ok {
		return nil
	}
	expanded := term.Resolve(term.VarRef(resultVar), resultTrail, true)
	if elems, isTuple := expanded.AsTuple(); isTuple {
		meth.Head = elems
	}
	return nil
}
