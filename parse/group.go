package parse

import "fmt"

// Node is one element of a grouped expression tree (spec §4.8 "expression
// grouper"): either a leaf Tok, or a Group representing a balanced `[ … ]`
// region (nesting allowed). Exactly one of Tok/Group is set.
type Node struct {
	Tok   *Token
	Group []*Node

	// GluedLeft mirrors the opening token's Token.GluedLeft: for a leaf
	// node, whether Tok was glued to the previous token; for a Group node,
	// whether the `[` that opened it was glued to whatever text preceded
	// it in source (spec §8 scenario 6's "eat[s]" adjacency).
	GluedLeft bool
}

func (n *Node) IsGroup() bool { return n.Tok == nil }

// Group walks a flat token sequence into a tree of Nodes, turning balanced
// `[ … ]` regions into nested Group nodes. An unmatched `[` or `]` is a
// syntax error (spec §4.8: "Unbalanced brackets raise a syntax error").
func Group(tokens []Token) ([]*Node, error) {
	nodes, rest, err := groupUntil(tokens, false)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("line %d: unbalanced ]", rest[0].Line)
	}
	return nodes, nil
}

func groupUntil(tokens []Token, inBracket bool) ([]*Node, []Token, error) {
	var out []*Node
	for len(tokens) > 0 {
		t := tokens[0]
		if t.Kind == TokPunct && t.Text == "[" {
			inner, rest, err := groupUntil(tokens[1:], true)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, &Node{Group: inner, GluedLeft: t.GluedLeft})
			tokens = rest
			continue
		}
		if t.Kind == TokPunct && t.Text == "]" {
			if !inBracket {
				return nil, nil, fmt.Errorf("line %d: unbalanced ]", t.Line)
			}
			return out, tokens[1:], nil
		}
		tc := t
		out = append(out, &Node{Tok: &tc, GluedLeft: tc.GluedLeft})
		tokens = tokens[1:]
	}
	if inBracket {
		return nil, nil, fmt.Errorf("line %d: unbalanced [", tokens0Line(tokens))
	}
	return out, tokens, nil
}

func tokens0Line(tokens []Token) int {
	if len(tokens) > 0 {
		return tokens[len(tokens)-1].Line
	}
	return 0
}
