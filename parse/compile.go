package parse

import (
	"fmt"
	"strings"

	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/term"
)

// Compiler turns grouped `.step` source into Method definitions registered
// directly onto a Registry — spec §4.8's "method compiler" stage, the last
// of the three layered producers (tokenizer -> expression grouper ->
// method compiler). There is no separate AST: each method definition is
// compiled straight into the *runtime.Task/*runtime.Method/*runtime.Step
// values the interpreter runs, the same single-pass discipline the
// teacher's own loader uses to build Clause/Literal values directly off
// the token stream rather than through an intermediate tree.
type Compiler struct {
	Reg  *Registry
	Path string

	// Warn receives singleton-variable and other non-fatal diagnostics
	// (spec §4.8 "singleton variable warnings"); nil discards them.
	Warn func(path string, line int, format string, args ...interface{})

	// activeGroup, if non-empty, is the name of the declaration group
	// whose expansion predicate should rewrite subsequently-compiled
	// method heads, until the next `[group ...]` line changes or clears
	// it (spec §4.8 "declaration group"). Resolution itself is deferred to
	// package module's finalization pass (spec §9: declaration groups
	// "must be resolved lazily... not bound at compile time") — the
	// compiler only tags each method with the group active when it was
	// read.
	activeGroup string
}

// NewCompiler builds a Compiler writing into reg.
func NewCompiler(reg *Registry, path string) *Compiler {
	return &Compiler{Reg: reg, Path: path}
}

func (c *Compiler) warn(line int, format string, args ...interface{}) {
	if c.Warn != nil {
		c.Warn(c.Path, line, format, args...)
	}
}

// Compile tokenizes, groups, and compiles source, registering every method
// definition it contains.
func (c *Compiler) Compile(source string) error {
	toks, err := NewLexer(source).Tokenize()
	if err != nil {
		return c.syntaxError(0, "%v", err)
	}
	nodes, err := Group(toks)
	if err != nil {
		return c.syntaxError(0, "%v", err)
	}
	lines := splitLines(nodes)
	i := 0
	for i < len(lines) {
		if len(lines[i]) == 0 {
			i++
			continue
		}
		if name, ok := fluentDeclaration(lines[i]); ok {
			c.Reg.FluentElement(name)
			i++
			continue
		}
		if name, ok := groupDeclaration(lines[i]); ok {
			c.activeGroup = name
			i++
			continue
		}
		consumed, err := c.compileMethod(lines, i)
		if err != nil {
			return err
		}
		i += consumed
	}
	return nil
}

// fluentDeclaration recognizes a standalone `[fluent P]` line (this
// compiler's own surface syntax for spec §4.5's "fluent predicate... a
// state element holding a set/map", since spec.md describes the storage
// model but not a declaration keyword): it registers P as a fluent ahead of
// any call to P, so every compiled Call step referencing P resolves to the
// fluent-backed primitive rather than an empty stub compound task.
func fluentDeclaration(line []*Node) (string, bool) {
	if len(line) != 1 || !line[0].IsGroup() {
		return "", false
	}
	g := line[0].Group
	if len(g) != 2 || g[0].IsGroup() || g[1].IsGroup() {
		return "", false
	}
	if g[0].Tok.Kind != TokWord || g[0].Tok.Text != "fluent" {
		return "", false
	}
	if g[1].Tok.Kind != TokWord {
		return "", false
	}
	return g[1].Tok.Text, true
}

// groupDeclaration recognizes a standalone `[group Name]` or bare `[group]`
// line: this compiler's own surface syntax for spec §4.8's "declaration
// group" scope (since spec.md describes the rewrite contract but not a
// scoping keyword). `[group Name]` activates Name for every method
// compiled after it until the next `[group ...]` line (including a bare
// `[group]`, which deactivates); it does not attempt to check the group's
// pattern against method heads at compile time — that check, and the head
// rewrite itself, are deferred to the module's finalization pass (spec §9
// "resolve lazily... not bound at compile time"), since DeclarationGroup/
// DeclarationExpansion may not be defined yet in this file.
func groupDeclaration(line []*Node) (string, bool) {
	if len(line) != 1 || !line[0].IsGroup() {
		return "", false
	}
	g := line[0].Group
	if len(g) == 0 || g[0].IsGroup() || g[0].Tok.Kind != TokWord || g[0].Tok.Text != "group" {
		return "", false
	}
	if len(g) == 1 {
		return "", true
	}
	if len(g) != 2 || g[1].IsGroup() || g[1].Tok.Kind != TokWord {
		return "", false
	}
	return g[1].Tok.Text, true
}

func (c *Compiler) syntaxError(line int, format string, args ...interface{}) error {
	return &runtime.Error{Kind: runtime.KindSyntaxError, Path: c.Path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// splitLines breaks a flat Node stream into per-line slices at TokNewline
// boundaries, keeping empty lines (consecutive newlines) as empty slices —
// the "blank line" multi-line-body terminator (spec §4.8) is exactly an
// empty entry here.
func splitLines(nodes []*Node) [][]*Node {
	var lines [][]*Node
	var cur []*Node
	for _, n := range nodes {
		if !n.IsGroup() && n.Tok.Kind == TokNewline {
			lines = append(lines, cur)
			cur = nil
			continue
		}
		cur = append(cur, n)
	}
	lines = append(lines, cur)
	return lines
}

func lineNo(nodes []*Node) int {
	for _, n := range nodes {
		if !n.IsGroup() {
			return n.Tok.Line
		}
	}
	return 0
}

// methodBuilder accumulates the local-variable table for one method: the
// same *term.Var placeholder is reused for every occurrence of a given
// `?name`, across both head and body, which is exactly the substitution
// contract runtime.InstantiateBody depends on (see runtime/method.go).
type methodBuilder struct {
	vars     map[string]*term.Var
	order    []string
	useCount map[string]int
}

func newMethodBuilder() *methodBuilder {
	return &methodBuilder{vars: map[string]*term.Var{}, useCount: map[string]int{}}
}

func (b *methodBuilder) localVar(name string) *term.Var {
	v, ok := b.vars[name]
	if !ok {
		v = term.NewVar(name)
		b.vars[name] = v
		b.order = append(b.order, name)
	}
	b.useCount[name]++
	return v
}

func (b *methodBuilder) locals() ([]runtime.Local, []*term.Var) {
	locals := make([]runtime.Local, len(b.order))
	vars := make([]*term.Var, len(b.order))
	for i, name := range b.order {
		locals[i] = runtime.Local{Name: name, Slot: i}
		vars[i] = b.vars[name]
	}
	return locals, vars
}

// compileMethod compiles the method definition starting at lines[start],
// returning how many lines it consumed.
func (c *Compiler) compileMethod(lines [][]*Node, start int) (int, error) {
	line := lines[start]
	ln := lineNo(line)

	weight := 1
	flags := runtime.Flags{}
	if len(line) > 0 && line[0].IsGroup() {
		w, f, ok := parseAnnotation(line[0].Group)
		if ok {
			weight = w
			flags = f
			line = line[1:]
		}
	}

	if len(line) == 0 || line[0].IsGroup() {
		return 0, c.syntaxError(ln, "expected a task name")
	}
	taskName := line[0].Tok.Text
	line = line[1:]

	colon := -1
	for i, n := range line {
		if !n.IsGroup() && n.Tok.Kind == TokPunct && n.Tok.Text == ":" {
			colon = i
			break
		}
	}

	b := newMethodBuilder()

	// A fact with no body at all may omit the colon entirely, spelled with
	// a trailing `.` the way a Prolog-style fact would be (spec §8
	// scenario 2's `Map 1 2.`): the compiler accepts this as sugar for
	// `Head :` (an empty body), dropping a trailing bare `.` token.
	if colon < 0 {
		headNodes := line
		if n := len(headNodes); n > 0 && !headNodes[n-1].IsGroup() &&
			headNodes[n-1].Tok.Kind == TokPunct && headNodes[n-1].Tok.Text == "." {
			headNodes = headNodes[:n-1]
		}
		head := make([]term.Value, len(headNodes))
		for i, n := range headNodes {
			head[i] = c.compileTerm(n, b)
		}
		locals, headVars := b.locals()
		task := c.Reg.EnsureTask(taskName)
		m := runtime.NewMethod(task, head, headVars, locals, nil, c.Path, ln)
		m.Weight = weight
		m.Group = c.activeGroup
		task.Flags = mergeFlags(task.Flags, flags)
		task.AddMethod(m)
		return 1, nil
	}

	headNodes := line[:colon]
	rest := line[colon+1:]

	head := make([]term.Value, len(headNodes))
	for i, n := range headNodes {
		head[i] = c.compileTerm(n, b)
	}

	consumed := 1
	var bodyNodes []*Node
	if len(rest) == 0 {
		// Multi-line body: consume following lines until a blank line or
		// a line consisting solely of `[end]`.
		j := start + 1
		for j < len(lines) {
			l := lines[j]
			if len(l) == 0 {
				j++
				break
			}
			if len(l) == 1 && l[0].IsGroup() && len(l[0].Group) == 1 &&
				!l[0].Group[0].IsGroup() && l[0].Group[0].Tok.Text == "end" {
				j++
				break
			}
			if len(bodyNodes) > 0 {
				bodyNodes = append(bodyNodes, &Node{Tok: &Token{Kind: TokWord, Text: "\n"}})
			}
			bodyNodes = append(bodyNodes, l...)
			j++
		}
		consumed = j - start
	} else {
		bodyNodes = rest
	}

	body := c.compileBody(bodyNodes, b)

	for _, name := range b.order {
		if b.useCount[name] == 1 && !strings.HasPrefix(name, "_") {
			c.warn(ln, "singleton variable ?%s in method for %s", name, taskName)
		}
	}

	locals, headVars := b.locals()
	m := runtime.NewMethod(c.Reg.EnsureTask(taskName), head, headVars, locals, body, c.Path, ln)
	m.Weight = weight
	m.Group = c.activeGroup
	task := c.Reg.EnsureTask(taskName)
	task.Flags = mergeFlags(task.Flags, flags)
	task.AddMethod(m)
	return consumed, nil
}

func mergeFlags(a, b runtime.Flags) runtime.Flags {
	return runtime.Flags{
		Fallible:   a.Fallible || b.Fallible,
		Generator:  a.Generator || b.Generator,
		Predicate:  a.Predicate || b.Predicate,
		Function:   a.Function || b.Function,
		Fluent:     a.Fluent || b.Fluent,
		Main:       a.Main || b.Main,
		Randomly:   a.Randomly || b.Randomly,
		Remembered: a.Remembered || b.Remembered,
		Suffix:     a.Suffix || b.Suffix,
	}
}

// parseAnnotation interprets a tuple preceding a method head (spec §4.8):
// either a bare integer (a weight multiplier) or one-or-more flag-name
// words (`[generator]`, `[predicate fallible]`, ...).
func parseAnnotation(nodes []*Node) (weight int, flags runtime.Flags, ok bool) {
	weight = 1
	any := false
	for _, n := range nodes {
		if n.IsGroup() {
			return 1, runtime.Flags{}, false
		}
		switch n.Tok.Kind {
		case TokNumber:
			if n.Tok.IsFloat {
				return 1, runtime.Flags{}, false
			}
			weight *= int(n.Tok.IntVal)
			any = true
		case TokWord:
			if !setFlag(&flags, n.Tok.Text) {
				return 1, runtime.Flags{}, false
			}
			any = true
		default:
			return 1, runtime.Flags{}, false
		}
	}
	return weight, flags, any
}

func setFlag(f *runtime.Flags, name string) bool {
	switch name {
	case "fallible":
		f.Fallible = true
	case "generator":
		f.Generator = true
	case "predicate":
		f.Predicate = true
	case "function":
		f.Function = true
	case "fluent":
		f.Fluent = true
	case "main":
		f.Main = true
	case "randomly":
		f.Randomly = true
	case "remembered":
		f.Remembered = true
	case "suffix":
		f.Suffix = true
	default:
		return false
	}
	return true
}

// compileTerm compiles one term position — a head-pattern argument, a
// call argument, or an assignment operand (spec §4.8): `?ident` is a
// local-variable reference, a capitalized identifier names a state
// element (resolved dynamically, not bound at compile time — see
// runtime.resolveStateRefs), numeric tokens are integers or floats,
// `|quoted|` is a string constant, and `[...]` groups are tuples.
func (c *Compiler) compileTerm(n *Node, b *methodBuilder) term.Value {
	if n.IsGroup() {
		elems := make([]term.Value, len(n.Group))
		for i, e := range n.Group {
			elems[i] = c.compileTerm(e, b)
		}
		return term.Tuple(elems...)
	}
	tok := n.Tok
	switch tok.Kind {
	case TokNumber:
		if tok.IsFloat {
			return term.Float(tok.FloatVal)
		}
		return term.Int(tok.IntVal)
	case TokQuoted:
		return term.Str(tok.Text)
	case TokTag:
		return term.Str(tok.Text)
	case TokWord:
		if strings.HasPrefix(tok.Text, "?") {
			return term.VarRef(b.localVar(strings.TrimPrefix(tok.Text, "?")))
		}
		if isCapitalized(tok.Text) {
			c.Reg.StateElement(tok.Text)
			return term.SymName(tok.Text)
		}
		return term.SymName(tok.Text)
	default:
		return term.Str(tok.Text)
	}
}

func isCapitalized(s string) bool {
	return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z'
}
