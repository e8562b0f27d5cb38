package module

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/ianhorswill/step/elkb"
	"github.com/ianhorswill/step/output"
	"github.com/ianhorswill/step/parse"
	"github.com/ianhorswill/step/prim"
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// Module is one loaded program: an interning Registry plus the persistent
// State it currently carries. It implements runtime.TaskLookup (via the
// embedded *parse.Registry) and introspect.Registry, so path-calls and lint
// can resolve through it directly — mirroring the way the teacher's
// dlengine.Engine owns both the Term/Predicate interning tables and the
// evaluation entry points in one value.
type Module struct {
	*parse.Registry

	config *Config
	rand   *rand.Rand
	excl   *state.Element

	mu    sync.Mutex // serializes Call/CallPredicate/CallFunction: spec §5 "at most one evaluator may be active"
	state *state.Map
}

// New builds an empty Module, registering every host primitive (package
// prim's fixed list plus the exclusion-logic KB primitives bound to this
// module's own knowledge-base element) against a fresh Registry.
func New(opts ...Option) *Module {
	cfg := defaultConfig()
	cfg.apply(opts)

	m := &Module{
		Registry: parse.NewRegistry(),
		config:   cfg,
		rand:     rand.New(rand.NewSource(1)),
		state:    state.Empty,
	}
	m.excl = state.Intern("__exclusion_kb")
	for _, t := range prim.All() {
		m.Register(t)
	}
	m.Register(prim.ElStoreTask(m.excl))
	m.Register(prim.ElDeleteTask(m.excl))
	m.Register(prim.ElHasTask(m.excl))
	m.Register(prim.ElPathsTask(m.excl))
	return m
}

// SeedRandom reseeds the module's own random source (spec §9
// "Deterministic seeding must be possible for tests").
func (m *Module) SeedRandom(seed int64) {
	m.rand = rand.New(rand.NewSource(seed))
}

// SetTrace installs (or clears, with nil) the trace/debugging hook spec §6
// describes.
func (m *Module) SetTrace(hook runtime.TraceHook) {
	m.config.trace = hook
}

// State returns the module's current persistent state.
func (m *Module) State() *state.Map { return m.state }

// SetState replaces the module's persistent state wholesale — used when
// restoring from a saved state file.
func (m *Module) SetState(s *state.Map) { m.state = s }

// SerializeState renders the module's current state in the persistent
// state file format (spec §6).
func (m *Module) SerializeState() string { return m.state.Serialize() }

// LoadStateFile replaces the module's state by parsing data in the
// persistent state file format (spec §6).
func (m *Module) LoadStateFile(data string) error {
	s, err := state.ParseState(data)
	if err != nil {
		return err
	}
	m.state = s
	return nil
}

// HandleOption implements spec §6's "process-wide hook dispatches named
// option strings with argument tuples; the core handles only searchLimit
// and defaultSearchLimit". Unrecognized names are a no-op, since a module
// consumer may register its own dispatcher for names this core doesn't
// know about (this method only ever sees what the core itself handles).
func (m *Module) HandleOption(name string, args ...term.Value) error {
	switch name {
	case "defaultSearchLimit":
		if len(args) != 1 {
			return fmt.Errorf("step: module: defaultSearchLimit takes exactly one argument")
		}
		n, ok := args[0].AsInt()
		if !ok {
			return fmt.Errorf("step: module: defaultSearchLimit argument must be an integer")
		}
		m.config.DefaultSearchLimit = int64(n)
		return nil
	case "searchLimit":
		// Per-call override; nothing to persist at the module level beyond
		// recording it as the new default for calls that don't specify one.
		return m.HandleOption("defaultSearchLimit", args...)
	default:
		return nil
	}
}

func (m *Module) newEnv(st *state.Map) *runtime.Env {
	env := &runtime.Env{
		Module:     m,
		Trail:      term.Empty,
		State:      st,
		Rand:       m.rand,
		Trace:      m.config.trace,
		DepthLimit: m.config.MaxCallDepth,
	}
	if m.config.DefaultSearchLimit > 0 {
		limit := m.config.DefaultSearchLimit
		env.SearchLimit = &limit
	} else if m.config.MethodTimeout > 0 {
		// No attempt-count budget was requested, but a wall-clock one was:
		// arm the same sentinel with an effectively unbounded count so
		// armTimeout (module/call.go) has something to flip to 0.
		limit := int64(math.MaxInt64)
		env.SearchLimit = &limit
	}
	return env
}

// ExclusionPaths lists every path currently stored in the module's
// exclusion-logic knowledge base (spec §4.6), for reflection and testing —
// the same data `[ElPaths Result]` binds Result to from inside a call.
func (m *Module) ExclusionPaths() []string {
	v, err := m.state.Get(m.excl)
	if err != nil {
		return nil
	}
	opq, _ := v.AsOpaque()
	root, _ := opq.(*elkb.Node)
	return elkb.Paths(root)
}
