package runtime

import "github.com/ianhorswill/step/term"

// TraceEvent tags one of the four event kinds spec §6's trace/debugging
// hook reports.
type TraceEvent int

const (
	EventEnter TraceEvent = iota
	EventSucceed
	EventCallFail
	EventMethodFail
)

func (e TraceEvent) String() string {
	switch e {
	case EventEnter:
		return "Enter"
	case EventSucceed:
		return "Succeed"
	case EventCallFail:
		return "CallFail"
	case EventMethodFail:
		return "MethodFail"
	default:
		return "?"
	}
}

// TraceHook receives each dispatch event (spec §6: "an optional handler
// receives (event, method, args, output snapshot, env) for each of
// Enter/Succeed/CallFail/MethodFail"). frame carries the method (frame.Method,
// nil for a primitive) and env; it may block — the interpreter is
// single-threaded with suspension points only at method entry (spec §5), so
// blocking inside a hook is exactly how a controlling thread single-steps it.
type TraceHook func(event TraceEvent, frame *Frame, args []term.Value, out *Output)

func fireTrace(env *Env, event TraceEvent, frame *Frame, args []term.Value, out *Output) {
	if env.Trace != nil {
		env.Trace(event, frame, args, out)
	}
}
