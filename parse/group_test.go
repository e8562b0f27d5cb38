package parse

import "testing"

// TestBracketGluedToPrecedingWord is the grouper-level half of spec §8
// scenario 6: a `[` with nothing before it in source must produce a Group
// node that reports GluedLeft, so the compiler can glue the call's output
// onto whatever text preceded it (parse/body.go's compileBracket).
func TestBracketGluedToPrecedingWord(t *testing.T) {
	toks, err := NewLexer("eat[s]").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodes, err := Group(toks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes (eat, [s]), got %d", len(nodes))
	}
	if nodes[0].IsGroup() || nodes[0].GluedLeft {
		t.Fatal("'eat' is the first node, should be a non-glued leaf")
	}
	if !nodes[1].IsGroup() {
		t.Fatal("expected the bracket to produce a Group node")
	}
	if !nodes[1].GluedLeft {
		t.Fatal("expected the bracket glued to 'eat' with no space before it")
	}
}

func TestBracketNotGluedAfterSpace(t *testing.T) {
	toks, err := NewLexer("eat [s]").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodes, err := Group(toks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if !nodes[1].IsGroup() || nodes[1].GluedLeft {
		t.Fatal("expected the bracket NOT glued when a space precedes it")
	}
}

func TestUnbalancedBracketIsSyntaxError(t *testing.T) {
	toks, err := NewLexer("[a b").Tokenize()
	if err != nil {
		t.Fatalf("unexpected tokenizer error: %v", err)
	}
	if _, err := Group(toks); err == nil {
		t.Fatal("expected an unbalanced-bracket error")
	}
}
