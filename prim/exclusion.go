package prim

import (
	"sort"

	"github.com/ianhorswill/step/elkb"
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// ParsePath parses the traditional /a/b, /c!e exclusion-logic path syntax
// (spec §4.6, §8 scenario 5) into elkb segments.
func ParsePath(s string) []elkb.Segment {
	var segs []elkb.Segment
	i := 0
	for i < len(s) {
		exclusive := s[i] == '!'
		if s[i] != '/' && s[i] != '!' {
			break
		}
		i++
		start := i
		for i < len(s) && s[i] != '/' && s[i] != '!' {
			i++
		}
		segs = append(segs, elkb.Segment{Key: s[start:i], Exclusive: exclusive})
	}
	return segs
}

func elkbRoot(m *state.Map, elem *state.Element) *elkb.Node {
	v, err := m.Get(elem)
	if err != nil {
		return nil
	}
	opq, ok := v.AsOpaque()
	if !ok {
		return nil
	}
	root, _ := opq.(*elkb.Node)
	return root
}

// ElStoreStep implements `ElStore path` against the knowledge base held by
// elem, returning a new Step that updates state transactionally.
func ElStoreStep(elem *state.Element, path string) *runtime.Step {
	return runtime.NativeStep(func(out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		root := elkbRoot(env.State, elem)
		newRoot := elkb.Store(root, ParsePath(path))
		newState := env.State.Set(elem, term.Opaque(newRoot))
		return k(out, env.Trail, newState, env.Frame)
	})
}

// ElDeleteStep implements `ElDelete path`.
func ElDeleteStep(elem *state.Element, path string) *runtime.Step {
	return runtime.NativeStep(func(out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		root := elkbRoot(env.State, elem)
		newRoot := elkb.Delete(root, ParsePath(path))
		newState := env.State.Set(elem, term.Opaque(newRoot))
		return k(out, env.Trail, newState, env.Frame)
	})
}

// ElHasStep implements a predicate check for whether path is currently
// stored in elem's knowledge base.
func ElHasStep(elem *state.Element, path string) *runtime.Step {
	return runtime.NativeStep(func(out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		root := elkbRoot(env.State, elem)
		if !elkb.Has(root, ParsePath(path)) {
			return false
		}
		return k(out, env.Trail, env.State, env.Frame)
	})
}

func pathArg(v term.Value, trail *term.Trail) []elkb.Segment {
	resolved := term.Resolve(v, trail, true)
	s, _ := resolved.AsString()
	return ParsePath(s)
}

// ElStoreTask implements `[ElStore path]` against the knowledge base held
// by elem: always succeeds, writing path into the KB transactionally.
func ElStoreTask(elem *state.Element) *runtime.Task {
	return runtime.NewPrimitive("ElStore", 1, runtime.Flags{}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		root := elkbRoot(env.State, elem)
		newRoot := elkb.Store(root, pathArg(args[0], env.Trail))
		newState := env.State.Set(elem, term.Opaque(newRoot))
		return k(out, env.Trail, newState, env.Frame)
	})
}

// ElDeleteTask implements `[ElDelete path]` against the knowledge base held
// by elem: always succeeds, pruning path's subtree transactionally.
func ElDeleteTask(elem *state.Element) *runtime.Task {
	return runtime.NewPrimitive("ElDelete", 1, runtime.Flags{}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		root := elkbRoot(env.State, elem)
		newRoot := elkb.Delete(root, pathArg(args[0], env.Trail))
		newState := env.State.Set(elem, term.Opaque(newRoot))
		return k(out, env.Trail, newState, env.Frame)
	})
}

// ElHasTask implements `[ElHas path]`: a fallible predicate checking
// whether path is currently stored in elem's knowledge base.
func ElHasTask(elem *state.Element) *runtime.Task {
	return runtime.NewPrimitive("ElHas", 1, runtime.Flags{Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		root := elkbRoot(env.State, elem)
		if !elkb.Has(root, pathArg(args[0], env.Trail)) {
			return false
		}
		return k(out, env.Trail, env.State, env.Frame)
	})
}

// ElPathsTask implements `[ElPaths Result]`: binds Result to the
// sorted tuple of every path currently stored, for introspection and for
// the spec §8 scenario 5 test ("the sorted contents are […]").
func ElPathsTask(elem *state.Element) *runtime.Task {
	return runtime.NewPrimitive("ElPaths", 1, runtime.Flags{Function: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
		root := elkbRoot(env.State, elem)
		paths := elkb.Paths(root)
		sort.Strings(paths)
		elems := make([]term.Value, len(paths))
		for i, p := range paths {
			elems[i] = term.Str(p)
		}
		trail, ok := term.Unify(args[0], term.Tuple(elems...), env.Trail)
		if !ok {
			return false
		}
		return k(out, trail, env.State, env.Frame)
	})
}
