package prim

import (
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/term"
)

// WriteTask implements `[Write V]`: emits V's resolved, stringified value
// as a single token (spec §8 scenario 2's sink task).
var WriteTask = runtime.NewPrimitive("Write", 1, runtime.Flags{}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	v := term.Resolve(args[0], env.Trail, true)
	out.Emit(v.String())
	return k(out, env.Trail, env.State, env.Frame)
})

// ParagraphTask implements `[Paragraph]`: emits a blank-line break (spec §8
// scenario 3: `[DoAll [Generate]]` with `[Paragraph]` between solutions
// renders as `"A\n\nB\n\nC\n\n"`) — two newline tokens, since the output
// formatter's capitalize-after-newline rule (spec §4.7) treats a lone "\n"
// as an ordinary line break rather than a paragraph gap.
var ParagraphTask = runtime.NewPrimitive("Paragraph", 0, runtime.Flags{}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	out.Emit("\n", "\n")
	return k(out, env.Trail, env.State, env.Frame)
})

// WriteVerbatimTask implements an HTML-tag-passthrough emit, `[WriteRaw S]`:
// emits S's string value as a single token without going through
// term.Value.String()'s generic rendering, for callers that already hold
// exactly the literal text to emit (e.g. SaveText round-trips).
var WriteVerbatimTask = runtime.NewPrimitive("WriteRaw", 1, runtime.Flags{}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	v := term.Resolve(args[0], env.Trail, true)
	s, ok := v.AsString()
	if !ok {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "WriteRaw: argument is not a string")
	}
	out.Emit(s)
	return k(out, env.Trail, env.State, env.Frame)
})
