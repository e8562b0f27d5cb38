// Package introspect implements spec §4.9: static queries over a loaded
// module's tasks/methods/calls, dynamic queries over the live call-frame
// chain, and the undefined-task/unused-task lint run at module finalization.
// Grounded on the teacher's own pattern of walking an EDB/IDB registry
// (dlengine.Engine keeps predicate tables it walks for Safe()/stratify-style
// checks) generalized from clause safety checking to Step's task graph.
package introspect

import (
	"fmt"
	"sort"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"

	"github.com/ianhorswill/step/runtime"
)

// Registry is the subset of package module's Module needed for static
// introspection, kept as an interface to avoid introspect <-> module
// import cycles (module depends on introspect for its Lint method, not the
// other way around).
type Registry interface {
	Tasks() []*runtime.Task
}

// Tasks returns every task name defined in reg, sorted for determinism.
func Tasks(reg Registry) []string {
	names := make([]string, 0, len(reg.Tasks()))
	for _, t := range reg.Tasks() {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Methods returns every method belonging to task.
func Methods(task *runtime.Task) []*runtime.Method {
	return task.Methods
}

// Calls walks task's methods' step chains, collecting the task names
// referenced by Call steps (spec §4.9 "enumerate calls inside a
// task"). A name may be referenced more than once; Calls reports it once
// per occurrence in source order within each method, across methods in
// method order. Only Next and Branches links are followed, so calls held
// inside StepNative composites (the inner call of Not, DoAll, FindAll and
// the like) are not reported.
func Calls(task *runtime.Task) []string {
	var out []string
	for _, m := range task.Methods {
		walkSteps(m.Body, func(s *runtime.Step) {
			if s.Kind == runtime.StepCall && s.CallTask != nil {
				out = append(out, s.CallTask.Name)
			}
		})
	}
	return out
}

func walkSteps(step *runtime.Step, visit func(*runtime.Step)) {
	for s := step; s != nil; s = s.Next {
		visit(s)
		for _, b := range s.Branches {
			walkSteps(b, visit)
		}
	}
}

// CallerChainAncestor returns the chain of callers starting at frame's
// immediate caller and walking outward to the top-level call (spec §4.9).
func CallerChainAncestor(frame *runtime.Frame) []*runtime.Frame {
	var out []*runtime.Frame
	for f := frame.Caller; f != nil; f = f.Caller {
		out = append(out, f)
	}
	return out
}

// GoalChainAncestor returns every successfully-entered frame on the path
// from the top-level call to frame, inclusive, outermost first — the
// "goal chain" spec §4.9 distinguishes from the caller chain by including
// frame itself and ordering outermost-first.
func GoalChainAncestor(frame *runtime.Frame) []*runtime.Frame {
	var chain []*runtime.Frame
	for f := frame; f != nil; f = f.Caller {
		chain = append(chain, f)
	}
	// reverse to outermost-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// PreviousCall iterates back through frame's goal chain looking for a
// frame whose task matches pred, returning the first (nearest) match.
func PreviousCall(frame *runtime.Frame, pred func(*runtime.Task) bool) (*runtime.Frame, bool) {
	for f := frame.Caller; f != nil; f = f.Caller {
		if f.Task != nil && pred(f.Task) {
			return f, true
		}
	}
	return nil, false
}

// LintWarning is one finding from Lint.
type LintWarning struct {
	Kind string // "undefined-task" or "unused-task"
	Task string
	Ref  string // the undefined name referenced, for "undefined-task"
}

func (w LintWarning) String() string {
	if w.Kind == "undefined-task" {
		return fmt.Sprintf("%s: calls undefined task %s", w.Task, w.Ref)
	}
	return fmt.Sprintf("%s: defined but never called (mark [main] to suppress)", w.Task)
}

// Lint runs spec §4.9's module-finalization checks: warn on calls to
// undefined tasks, and on tasks defined but never called unless
// [main]-annotated. Uses go-set to track the called/defined sets (the same
// de-duplication job nomad's scheduler uses go-set for when diffing desired
// vs. placed allocations) and go-multierror to accumulate every warning
// instead of stopping at the first, matching the parser's own
// accumulate-many-diagnostics behavior (spec §7 "parsing errors are
// collected so a module can report many at once").
func Lint(reg Registry, logger hclog.Logger) ([]LintWarning, error) {
	tasks := reg.Tasks()
	// A compound task with no methods is only a stub the registry created
	// when the name was first mentioned; it does not count as defined.
	defined := set.New[string](len(tasks))
	for _, t := range tasks {
		if t.IsPrimitive() || len(t.Methods) > 0 {
			defined.Insert(t.Name)
		}
	}
	called := set.New[string](len(tasks))

	var warnings []LintWarning
	var errs *multierror.Error
	for _, t := range tasks {
		for _, name := range Calls(t) {
			called.Insert(name)
			if !defined.Contains(name) {
				w := LintWarning{Kind: "undefined-task", Task: t.Name, Ref: name}
				warnings = append(warnings, w)
				errs = multierror.Append(errs, fmt.Errorf("%s", w.String()))
			}
		}
	}
	for _, t := range tasks {
		if t.Flags.Main || t.IsPrimitive() {
			continue
		}
		if !called.Contains(t.Name) {
			warnings = append(warnings, LintWarning{Kind: "unused-task", Task: t.Name})
		}
	}
	if logger != nil {
		for _, w := range warnings {
			logger.Warn(w.String())
		}
	}
	return warnings, errs.ErrorOrNil()
}
