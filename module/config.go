// Package module implements spec §6's external interfaces: a Module loads
// `.step`/`.csv`/`.tsv` source into a parse.Registry, exposes the
// call/call_predicate/call_function evaluation API, serializes and restores
// persistent State, and wires trace hooks and the environment-options hook.
// Grounded on the teacher's dlengine.Engine constructor/load/query shape
// (NewEngine, Process/Batch, Assert/Retract/Query), generalized from one
// hand-rolled Datalog source format to Step's three (`.step`, `.csv`,
// `.tsv`) and from map-of-string-to-Term interning to parse.Registry.
package module

import (
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/ianhorswill/step/runtime"
)

// Config holds the small set of knobs spec §6 calls out: which file
// extensions the loader recognizes, the default search limit new calls
// start with, and the logger every Module component shares. Built via
// functional options, the pattern nomad's command packages use for their
// own Config structs rather than a constructor with a long positional
// argument list.
type Config struct {
	Logger            hclog.Logger
	StepExtensions    []string
	TableExtensions   []string
	DefaultSearchLimit int64 // 0 disables the limit
	MaxCallDepth       int   // 0 disables the limit; spec §7 StackOverflow
	MethodTimeout      time.Duration
	trace              runtime.TraceHook
}

// Option configures a Config.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Logger:          hclog.NewNullLogger(),
		StepExtensions:  []string{".step"},
		TableExtensions: []string{".csv", ".tsv"},
	}
}

// WithLogger sets the hclog.Logger every Module component logs through.
func WithLogger(l hclog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithDefaultSearchLimit sets the task-call budget (spec §6
// "defaultSearchLimit") every top-level call starts with; 0 disables the
// limit (the default).
func WithDefaultSearchLimit(n int64) Option {
	return func(c *Config) { c.DefaultSearchLimit = n }
}

// WithMaxCallDepth bounds call-frame nesting (spec §7 "StackOverflow: depth
// exceeds a configurable limit"); 0 disables the limit (the default), in
// which case unbounded recursion recurses the Go call stack instead.
func WithMaxCallDepth(n int) Option {
	return func(c *Config) { c.MaxCallDepth = n }
}

// WithStepExtensions overrides which file extensions load_directory treats
// as `.step` source (default: ".step").
func WithStepExtensions(exts ...string) Option {
	return func(c *Config) { c.StepExtensions = exts }
}

// WithTableExtensions overrides which file extensions load_directory treats
// as CSV/TSV fact tables (default: ".csv", ".tsv"); a ".tsv" entry is parsed
// tab-delimited and every other listed extension comma-delimited, matching
// tableDelimiter's convention.
func WithTableExtensions(exts ...string) Option {
	return func(c *Config) { c.TableExtensions = exts }
}

// WithMethodTimeout bounds how long a single top-level Call/CallPredicate/
// CallFunction may run before the background evaluator is asked to cancel
// it (spec §5's "background evaluator... abort it by flipping the
// search-limit sentinel"); 0 disables the timeout.
func WithMethodTimeout(d time.Duration) Option {
	return func(c *Config) { c.MethodTimeout = d }
}

// WithTrace installs the trace/debugging hook spec §6 describes, wired
// through to every Call/CallPredicate/CallFunction this Module runs.
func WithTrace(hook runtime.TraceHook) Option {
	return func(c *Config) { c.trace = hook }
}

func (c *Config) apply(opts []Option) {
	for _, o := range opts {
		o(c)
	}
}

func tableDelimiter(ext string) rune {
	if ext == ".tsv" {
		return '\t'
	}
	return ','
}
