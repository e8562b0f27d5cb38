package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ianhorswill/step/term"
)

// defaultSerialize renders v in the persistent state file format (spec §6):
// integers and floats as decimal, strings quoted with `\"`/`\\` escapes,
// booleans as true/false, tuples as space-separated `[...]`, null as
// "null". Element.Serialize defaults to this; a state element may override
// it for a type (e.g. the elkb package's opaque trie) that this format has
// no generic rendering for.
func defaultSerialize(v term.Value) string {
	switch v.Kind() {
	case term.KindNull:
		return "null"
	case term.KindInt:
		n, _ := v.AsInt()
		return strconv.Itoa(int(n))
	case term.KindFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case term.KindBool:
		b, _ := v.AsBool()
		if b {
			return "true"
		}
		return "false"
	case term.KindString:
		s, _ := v.AsString()
		return quoteString(s)
	case term.KindSymbol:
		sym, _ := v.AsSymbol()
		return sym.String()
	case term.KindTuple:
		elems, _ := v.AsTuple()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = defaultSerialize(e)
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		// Opaque/feature/hashtable/var/task values have no portable
		// persistent-state encoding; a module that stores one under a state
		// element must register its own Element.Serialize.
		return fmt.Sprintf("%v", v)
	}
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// ParseState parses the persistent state file format `{State k1=v1 k2=v2
// …}` (spec §6) back into a Map, interning each key as a state element and
// decoding its value with the primitive grammar described there (tuples,
// quoted strings, booleans, null, numbers). It does not invoke a
// per-element custom deserializer — only the primitive encodings spec §6
// names are accepted, matching what defaultSerialize ever emits.
func ParseState(data string) (*Map, error) {
	p := &stateParser{s: data}
	p.skipSpace()
	if !p.consumeLiteral("{State") {
		return nil, fmt.Errorf("step: state: expected '{State'")
	}
	m := Empty
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.i++
			return m, nil
		}
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consumeLiteral("=") {
			return nil, fmt.Errorf("step: state: expected '=' after key %q", key)
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		m = m.Set(Intern(key), val)
	}
}

type stateParser struct {
	s string
	i int
}

func (p *stateParser) peek() byte {
	if p.i >= len(p.s) {
		return 0
	}
	return p.s[p.i]
}

func (p *stateParser) skipSpace() {
	for p.i < len(p.s) && (p.s[p.i] == ' ' || p.s[p.i] == '\t' || p.s[p.i] == '\n' || p.s[p.i] == '\r') {
		p.i++
	}
}

func (p *stateParser) consumeLiteral(lit string) bool {
	if strings.HasPrefix(p.s[p.i:], lit) {
		p.i += len(lit)
		return true
	}
	return false
}

func (p *stateParser) parseKey() (string, error) {
	start := p.i
	for p.i < len(p.s) && p.s[p.i] != '=' && p.s[p.i] != ' ' && p.s[p.i] != '}' {
		p.i++
	}
	if p.i == start {
		return "", fmt.Errorf("step: state: expected a key at offset %d", start)
	}
	return p.s[start:p.i], nil
}

func (p *stateParser) parseValue() (term.Value, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '"':
		return p.parseQuoted()
	case c == '[':
		return p.parseTuple()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseWord()
	}
}

func (p *stateParser) parseQuoted() (term.Value, error) {
	p.i++ // opening quote
	var b strings.Builder
	for {
		if p.i >= len(p.s) {
			return term.Value{}, fmt.Errorf("step: state: unterminated string")
		}
		c := p.s[p.i]
		if c == '"' {
			p.i++
			return term.Str(b.String()), nil
		}
		if c == '\\' && p.i+1 < len(p.s) {
			p.i++
			b.WriteByte(p.s[p.i])
			p.i++
			continue
		}
		b.WriteByte(c)
		p.i++
	}
}

func (p *stateParser) parseTuple() (term.Value, error) {
	p.i++ // '['
	var elems []term.Value
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.i++
			return term.Tuple(elems...), nil
		}
		v, err := p.parseValue()
		if err != nil {
			return term.Value{}, err
		}
		elems = append(elems, v)
		p.skipSpace()
	}
}

func (p *stateParser) parseNumber() (term.Value, error) {
	start := p.i
	isFloat := false
	if p.peek() == '-' {
		p.i++
	}
	for p.i < len(p.s) && (p.s[p.i] >= '0' && p.s[p.i] <= '9') {
		p.i++
	}
	if p.i < len(p.s) && (p.s[p.i] == '.' || p.s[p.i] == 'e' || p.s[p.i] == 'E') {
		isFloat = true
		p.i++
		for p.i < len(p.s) && (p.s[p.i] >= '0' && p.s[p.i] <= '9' || p.s[p.i] == '+' || p.s[p.i] == '-') {
			p.i++
		}
	}
	text := p.s[start:p.i]
	if isFloat {
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return term.Value{}, err
		}
		return term.Float(float32(f)), nil
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return term.Value{}, err
	}
	return term.Int(int32(n)), nil
}

func (p *stateParser) parseWord() (term.Value, error) {
	start := p.i
	for p.i < len(p.s) && p.s[p.i] != ' ' && p.s[p.i] != '}' {
		p.i++
	}
	word := p.s[start:p.i]
	switch word {
	case "true":
		return term.Bool(true), nil
	case "false":
		return term.Bool(false), nil
	case "null":
		return term.Null, nil
	case "":
		return term.Value{}, fmt.Errorf("step: state: expected a value at offset %d", start)
	default:
		return term.SymName(word), nil
	}
}
