package parse

import (
	"strings"

	"github.com/ianhorswill/step/prim"
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/state"
	"github.com/ianhorswill/step/term"
)

// bodyScanner compiles the body half of a method definition (spec §4.8
// "Body items") from a flat Node stream into a Step chain. Unlike
// compileTerm, which only ever produces term.Value, the body scanner
// produces *runtime.Step — literal tokens become Emit steps, `[Task …]`
// becomes a Call (or a control-flow composite when Task is a recognized
// keyword), and the bare-keyword block forms (`firstOf`/`randomly`/
// `sequence`/`cool`/`case`) recurse back into the scanner for their
// branches.
type bodyScanner struct {
	c     *Compiler
	b     *methodBuilder
	nodes []*Node
	pos   int
}

// compileBody compiles nodes (one method body, or one nested body argument
// to a control primitive) into a Step chain sharing b's local-variable
// table.
func (c *Compiler) compileBody(nodes []*Node, b *methodBuilder) *runtime.Step {
	s := &bodyScanner{c: c, b: b, nodes: nodes}
	return s.statements(nil)
}

func (s *bodyScanner) peek() *Node {
	if s.pos >= len(s.nodes) {
		return nil
	}
	return s.nodes[s.pos]
}

func (s *bodyScanner) next() *Node {
	n := s.peek()
	if n != nil {
		s.pos++
	}
	return n
}

func (s *bodyScanner) isSeparator(n *Node) bool {
	return n != nil && !n.IsGroup() && (n.Tok.Kind == TokNewline || (n.Tok.Kind == TokWord && n.Tok.Text == "\n"))
}

func (s *bodyScanner) skipNewlines() {
	for s.isSeparator(s.peek()) {
		s.pos++
	}
}

func (s *bodyScanner) peekWord() (string, bool) {
	n := s.peek()
	if n == nil || n.IsGroup() || n.Tok.Kind != TokWord {
		return "", false
	}
	return n.Tok.Text, true
}

func (s *bodyScanner) peekPunct() (string, bool) {
	n := s.peek()
	if n == nil || n.IsGroup() || n.Tok.Kind != TokPunct {
		return "", false
	}
	return n.Tok.Text, true
}

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// statements compiles a run of body items, stopping (without consuming)
// when it sees a bare word matching one of stop, or at end of input.
func (s *bodyScanner) statements(stop []string) *runtime.Step {
	var result *runtime.Step
	var litBuf []runtime.Token
	flush := func() {
		if len(litBuf) > 0 {
			result = runtime.Seq(result, runtime.EmitStep(litBuf...))
			litBuf = nil
		}
	}

	for {
		s.skipNewlines()
		n := s.peek()
		if n == nil {
			break
		}
		if w, ok := s.peekWord(); ok && containsStr(stop, w) {
			break
		}
		if n.IsGroup() {
			flush()
			call, suffix := s.compileBracket(n.Group)
			if n.GluedLeft || suffix {
				call = runtime.GlueStep(call)
			}
			result = runtime.Seq(result, call)
			s.next()
			continue
		}
		tok := n.Tok
		if tok.Kind == TokWord {
			switch tok.Text {
			case "set":
				flush()
				s.next()
				result = runtime.Seq(result, s.compileSet())
				continue
			case "now":
				flush()
				s.next()
				result = runtime.Seq(result, s.compileNow())
				continue
			case "firstOf":
				flush()
				s.next()
				result = runtime.Seq(result, s.compileFirstOf())
				continue
			case "randomly":
				flush()
				s.next()
				result = runtime.Seq(result, s.compileRandomly())
				continue
			case "sequence":
				flush()
				s.next()
				result = runtime.Seq(result, s.compileSequence())
				continue
			case "cool":
				flush()
				s.next()
				result = runtime.Seq(result, s.compileCool())
				continue
			case "case":
				flush()
				s.next()
				result = runtime.Seq(result, s.compileCase())
				continue
			}
			if strings.HasPrefix(tok.Text, "?") {
				flush()
				result = runtime.Seq(result, s.compilePathOrVar())
				continue
			}
		}
		litBuf = append(litBuf, runtime.Lit(tok.Text))
		s.next()
	}
	flush()
	return result
}

// compileSubStep compiles a control primitive's single body/generator
// argument: `rest` is normally one Group node (the `[ … ]` written after
// the keyword), but an un-bracketed tail is accepted too so a one-statement
// argument doesn't need its own redundant brackets.
func (s *bodyScanner) compileSubStep(rest []*Node) *runtime.Step {
	if len(rest) == 1 && rest[0].IsGroup() {
		return s.c.compileBody(rest[0].Group, s.b)
	}
	return s.c.compileBody(rest, s.b)
}

// compileBracket compiles one `[ … ]` body item: either a recognized
// control-flow keyword (spec §4.4 table) or an ordinary task call. The
// second return value is true when the compiled step is a plain call to a
// `[suffix]`-flagged task — the caller uses it to decide whether the
// call's produced text should glue onto whatever precedes it (spec §8
// scenario 6), independent of whether the call site itself had a space
// before its opening bracket.
func (s *bodyScanner) compileBracket(group []*Node) (*runtime.Step, bool) {
	if len(group) == 0 {
		return runtime.EmitStep(), false
	}
	head := group[0]
	if head.IsGroup() {
		v := s.c.compileTerm(&Node{Group: group}, s.b)
		return runtime.EmitStep(runtime.ValueToken(v)), false
	}
	name := head.Tok.Text
	rest := group[1:]
	if isControlKeyword(name) {
		return s.compileControlBracket(name, rest), false
	}
	task := s.c.Reg.EnsureTask(name)
	args := make([]term.Value, len(rest))
	for i, n := range rest {
		args[i] = s.c.compileTerm(n, s.b)
	}
	return runtime.CallStep(task, args...), task.Flags.Suffix
}

func isControlKeyword(name string) bool {
	switch name {
	case "Not", "NotAny", "Once", "ExactlyOnce", "Fail", "Throw", "CountAttempts",
		"ForEach", "DoAll", "Implies", "FindAll", "FindUnique",
		"FindFirstNUnique", "FindAtMostNUnique", "Max", "Min", "SaveText", "Parse",
		"CallDiscardingStateChanges":
		return true
	default:
		return false
	}
}

// compileControlBracket compiles the recognized control-flow keywords (spec
// §4.4 table); isControlKeyword's case list must match this switch's.
func (s *bodyScanner) compileControlBracket(name string, rest []*Node) *runtime.Step {
	switch name {
	case "Not", "NotAny":
		return runtime.NotStep(s.compileSubStep(rest))
	case "Once":
		return runtime.OnceStep(s.compileSubStep(rest))
	case "ExactlyOnce":
		return runtime.ExactlyOnceStep(s.compileSubStep(rest))
	case "Fail":
		return runtime.FailStep()
	case "Throw":
		return runtime.ThrowStep(s.compileSubStep(rest))
	case "CountAttempts":
		if len(rest) != 1 {
			return runtime.FailStep()
		}
		return runtime.CountAttemptsStep(s.c.compileTerm(rest[0], s.b))
	case "ForEach":
		if len(rest) != 2 {
			return runtime.FailStep()
		}
		return runtime.ForEachStep(s.compileSubStep(rest[0:1]), s.compileSubStep(rest[1:2]))
	case "DoAll":
		if len(rest) != 1 {
			return runtime.FailStep()
		}
		return runtime.ForEachStep(s.compileSubStep(rest), runtime.EmitStep())
	case "Implies":
		if len(rest) != 2 {
			return runtime.FailStep()
		}
		return runtime.ImpliesStep(s.compileSubStep(rest[0:1]), s.compileSubStep(rest[1:2]))
	case "FindAll":
		if len(rest) != 3 {
			return runtime.FailStep()
		}
		return runtime.FindAllStep(s.c.compileTerm(rest[0], s.b), s.compileSubStep(rest[1:2]), s.c.compileTerm(rest[2], s.b))
	case "FindUnique":
		if len(rest) != 3 {
			return runtime.FailStep()
		}
		return runtime.FindUniqueStep(s.c.compileTerm(rest[0], s.b), s.compileSubStep(rest[1:2]), s.c.compileTerm(rest[2], s.b))
	case "FindFirstNUnique", "FindAtMostNUnique":
		if len(rest) != 4 {
			return runtime.FailStep()
		}
		witness := s.c.compileTerm(rest[0], s.b)
		gen := s.compileSubStep(rest[1:2])
		result := s.c.compileTerm(rest[2], s.b)
		n := intLiteral(rest[3])
		if name == "FindFirstNUnique" {
			return runtime.FindFirstNUniqueStep(witness, gen, result, n)
		}
		return runtime.FindAtMostNUniqueStep(witness, gen, result, n)
	case "Max":
		if len(rest) != 2 {
			return runtime.FailStep()
		}
		return runtime.MaxStep(s.c.compileTerm(rest[0], s.b), s.compileSubStep(rest[1:2]))
	case "Min":
		if len(rest) != 2 {
			return runtime.FailStep()
		}
		return runtime.MinStep(s.c.compileTerm(rest[0], s.b), s.compileSubStep(rest[1:2]))
	case "SaveText":
		if len(rest) != 2 {
			return runtime.FailStep()
		}
		return runtime.SaveTextStep(s.compileSubStep(rest[0:1]), s.c.compileTerm(rest[1], s.b))
	case "Parse":
		if len(rest) < 2 {
			return runtime.FailStep()
		}
		call := s.compileSubStep(rest[0:1])
		text := make([]string, len(rest)-1)
		for i, n := range rest[1:] {
			text[i] = literalText(n)
		}
		return runtime.ParseStep(call, text)
	case "CallDiscardingStateChanges":
		return runtime.CallDiscardingStateChangesStep(s.compileSubStep(rest))
	default:
		return runtime.FailStep()
	}
}

func intLiteral(n *Node) int {
	if n == nil || n.IsGroup() || n.Tok.Kind != TokNumber {
		return 0
	}
	return int(n.Tok.IntVal)
}

func literalText(n *Node) string {
	if n == nil || n.IsGroup() {
		return ""
	}
	return n.Tok.Text
}

// compileSet implements `set X = EXPR` / `set ?var = EXPR` (spec §4.5).
func (s *bodyScanner) compileSet() *runtime.Step {
	target := s.next()
	if w, ok := s.peekPunct(); ok && w == "=" {
		s.next()
	}
	expr := s.parseExpr()
	if target == nil {
		return runtime.FailStep()
	}
	if !target.IsGroup() && strings.HasPrefix(target.Tok.Text, "?") {
		local := term.VarRef(s.b.localVar(strings.TrimPrefix(target.Tok.Text, "?")))
		return runtime.LocalAssignStep(local, expr)
	}
	name := ""
	if !target.IsGroup() {
		name = target.Tok.Text
	}
	elem := s.c.Reg.StateElement(name)
	return runtime.AssignStep(elem, expr)
}

var exprOps = map[string]runtime.BinOp{"+": runtime.OpAdd, "-": runtime.OpSub, "*": runtime.OpMul, "/": runtime.OpDiv}

// parseExpr parses the small arithmetic expression language of spec §4.5:
// constants, variable/state references, and left-to-right binary
// operators (no precedence climbing — every operator binds equally, the
// same "flat, left-to-right" reading spec §4.5 implies by listing
// "unary/binary operators" without a precedence table).
func (s *bodyScanner) parseExpr() runtime.Expr {
	left := s.parseExprAtom()
	for {
		w, ok := s.peekPunct()
		if !ok {
			break
		}
		op, isOp := exprOps[w]
		if !isOp {
			break
		}
		s.next()
		right := s.parseExprAtom()
		left = runtime.BinExpr{Op: op, Left: left, Right: right}
	}
	return left
}

func (s *bodyScanner) parseExprAtom() runtime.Expr {
	neg := false
	if w, ok := s.peekPunct(); ok && w == "-" {
		s.next()
		neg = true
	}
	n := s.next()
	var e runtime.Expr
	if n == nil {
		e = runtime.ConstExpr{Value: term.Int(0)}
	} else {
		e = runtime.VarExpr{Term: s.c.compileTerm(n, s.b)}
	}
	if neg {
		e = runtime.NegExpr{Inner: e}
	}
	return e
}

// compileNow implements `now [P args…]` (assert) and `now not [P args…]`
// (retract) — spec §4.5: "now [P args] asserts or retracts facts for a
// fluent predicate." The retract spelling is this compiler's own surface
// grammar decision (see DESIGN.md): spec.md names both operations but does
// not give `now` two distinct spellings.
func (s *bodyScanner) compileNow() *runtime.Step {
	assert := true
	if w, ok := s.peekWord(); ok && w == "not" {
		assert = false
		s.next()
	}
	n := s.next()
	if n == nil || !n.IsGroup() || len(n.Group) == 0 {
		return runtime.FailStep()
	}
	nameNode := n.Group[0]
	if nameNode.IsGroup() {
		return runtime.FailStep()
	}
	elem := s.c.Reg.FluentElement(nameNode.Tok.Text)
	args := make([]term.Value, len(n.Group)-1)
	for i, a := range n.Group[1:] {
		args[i] = s.c.compileTerm(a, s.b)
	}
	return runtime.FluentUpdateStep(elem, term.Tuple(args...), assert)
}

// compilePathOrVar implements a bare `?var`, `?var/Task`, or
// `?var/Task/Task2 …` body item (spec §4.8): a variable reference, or a
// path-call chain if followed by one or more `/Task` segments.
func (s *bodyScanner) compilePathOrVar() *runtime.Step {
	n := s.next()
	name := strings.TrimPrefix(n.Tok.Text, "?")
	source := term.VarRef(s.b.localVar(name))

	var chain []string
	for {
		w, ok := s.peekPunct()
		if !ok || w != "/" {
			break
		}
		s.next()
		tn := s.next()
		if tn == nil || tn.IsGroup() {
			break
		}
		chain = append(chain, tn.Tok.Text)
	}
	if len(chain) == 0 {
		return runtime.EmitStep(runtime.ValueToken(source))
	}
	return prim.PathCallStep(s.c.Reg, source, chain)
}

// collectBlocks compiles a separator-delimited, end-terminated run of
// blocks (shared by firstOf/randomly/sequence's branch lists): the first
// block runs up to the first separator or end, every subsequent separator
// starts a new block, and end closes the list.
func (s *bodyScanner) collectBlocks(separators []string, end string) []*runtime.Step {
	stop := append(append([]string{}, separators...), end)
	blocks := []*runtime.Step{s.statements(stop)}
	for {
		s.skipNewlines()
		w, ok := s.peekWord()
		if !ok {
			break
		}
		if w == end {
			s.next()
			break
		}
		if containsStr(separators, w) {
			s.next()
			blocks = append(blocks, s.statements(stop))
			continue
		}
		break
	}
	return blocks
}

func (s *bodyScanner) compileFirstOf() *runtime.Step {
	return runtime.OrStep(s.collectBlocks([]string{"or", "else"}, "end")...)
}

func (s *bodyScanner) compileRandomly() *runtime.Step {
	return runtime.RandomlyStep(s.collectBlocks([]string{"or"}, "end")...)
}

func (s *bodyScanner) compileSequence() *runtime.Step {
	stages := s.collectBlocks([]string{"then"}, "end")
	counter := state.Intern(freshStateName("sequence", s.c.Path, 0))
	return runtime.SequenceStep(stages, counter)
}

// compileCool implements `cool N … or … end` (spec §4.4/§GLOSSARY).
func (s *bodyScanner) compileCool() *runtime.Step {
	n := intLiteral(s.next())
	branches := s.collectBlocks([]string{"or"}, "end")
	counter := state.Intern(freshStateName("cool", s.c.Path, 0))
	return runtime.CoolStep(n, counter, branches...)
}

// compileCase implements `case V guard1: body1 or guard2: body2 … end`
// (spec §4.4: "pattern dispatch on V; branches may contain type tests or
// predicate calls"). V itself is compiled only so any locals it introduces
// are recorded and singleton-checked — each guard is an independent
// bracketed call (commonly referencing V's local directly) tried in order,
// the same left-to-right commit-to-first-match discipline firstOf uses.
func (s *bodyScanner) compileCase() *runtime.Step {
	if v := s.next(); v != nil {
		s.c.compileTerm(v, s.b)
	}
	var branches []runtime.CaseBranch
	for {
		branches = append(branches, s.compileCaseBranch())
		s.skipNewlines()
		w, ok := s.peekWord()
		if !ok {
			break
		}
		if w == "end" {
			s.next()
			break
		}
		if w == "or" {
			s.next()
			continue
		}
		break
	}
	return runtime.CaseStep(branches)
}

func (s *bodyScanner) compileCaseBranch() runtime.CaseBranch {
	guardNode := s.next()
	var guard *runtime.Step
	if guardNode != nil && guardNode.IsGroup() {
		guard, _ = s.compileBracket(guardNode.Group)
	} else {
		guard = runtime.EmitStep()
	}
	if w, ok := s.peekPunct(); ok && w == ":" {
		s.next()
	}
	body := s.statements([]string{"or", "end"})
	return runtime.CaseBranch{Guard: guard, Body: body}
}
