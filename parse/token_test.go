package parse

import "testing"

func TestFirstTokenNotGlued(t *testing.T) {
	toks, err := NewLexer("hello").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 1 {
		t.Fatalf("expected 1 token, got %d", len(toks))
	}
	if toks[0].GluedLeft {
		t.Fatal("the first token of the file must not be GluedLeft")
	}
}

// TestAdjacentTokensAreGlued is the lexer-level half of spec §8 scenario 6:
// `eat[s]` must tokenize with every token after the first marked glued to
// its predecessor, since nothing separates them in source.
func TestAdjacentTokensAreGlued(t *testing.T) {
	toks, err := NewLexer("eat[s]").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 4 {
		t.Fatalf("expected 4 tokens (eat, [, s, ]), got %d: %+v", len(toks), toks)
	}
	if toks[0].GluedLeft {
		t.Fatal("'eat' is the first token, should not be glued")
	}
	for i, name := range []string{"[", "s", "]"} {
		if !toks[i+1].GluedLeft {
			t.Fatalf("token %q should be glued to its predecessor", name)
		}
	}
}

func TestSpaceBreaksGluedLeft(t *testing.T) {
	toks, err := NewLexer("eat [s]").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 4 {
		t.Fatalf("expected 4 tokens, got %d: %+v", len(toks), toks)
	}
	if toks[1].GluedLeft {
		t.Fatal("'[' follows a space, should not be glued")
	}
}

// TestCommentBreaksGlue checks that a `#`-comment counts as a separator:
// the line it trails off of and the next token are not glued, even though
// no literal space token sits between them.
func TestCommentBreaksGlue(t *testing.T) {
	toks, err := NewLexer("eat #comment\ns").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 3 {
		t.Fatalf("expected 3 tokens (eat, newline, s), got %d: %+v", len(toks), toks)
	}
	if toks[1].GluedLeft {
		t.Fatal("newline after a comment should not be glued to 'eat'")
	}
}
