package output

import "testing"

func toks(texts ...string) []Token {
	out := make([]Token, len(texts))
	for i, t := range texts {
		out[i] = Token{Text: t}
	}
	return out
}

func TestBasicJoinAndCapitalize(t *testing.T) {
	got := Format(toks("a", "dog", "barks", "."))
	want := "A dog barks."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestArticleCorrection(t *testing.T) {
	got := Format(toks("a", "elephant"))
	if got != "An elephant" {
		t.Fatalf("got %q", got)
	}
}

func TestNoSpaceBeforePunctuation(t *testing.T) {
	got := Format(toks("hello", ",", "world", "!"))
	if got != "Hello, world!" {
		t.Fatalf("got %q", got)
	}
}

func TestUnderscoreToSpace(t *testing.T) {
	got := Format(toks("ancestor_of", "alice"))
	if got != "Ancestor of alice" {
		t.Fatalf("got %q", got)
	}
}

func TestHTMLPassthrough(t *testing.T) {
	got := Format(toks("click", "<br>", "here"))
	if got != "Click <br> here" {
		t.Fatalf("got %q", got)
	}
}

func TestParagraphBreaks(t *testing.T) {
	got := Format(toks("a", "\n", "\n", "b", "\n", "\n", "c", "\n", "\n"))
	want := "A\n\nB\n\nC\n\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderingIdempotence(t *testing.T) {
	first := Format(toks("the", "cat", "sat", "."))
	second := Format(toks(first))
	if first != second {
		t.Fatalf("rendering is not idempotent: %q vs %q", first, second)
	}
}

func TestGluedTokenSuppressesSpace(t *testing.T) {
	got := Format([]Token{{Text: "eat"}, {Text: "s", Glued: true}})
	if got != "Eats" {
		t.Fatalf("got %q, want %q", got, "Eats")
	}
}

func TestBufferWatermarkBacktracking(t *testing.T) {
	buf := New()
	buf.Emit("hello")
	mark := buf.Len()
	buf.Emit("world")
	if buf.Len() != mark+1 {
		t.Fatal("expected emit to grow buffer")
	}
	buf.Truncate(mark)
	if buf.Len() != mark {
		t.Fatal("truncate should restore watermark")
	}
}

func TestBufferGlueFirst(t *testing.T) {
	buf := New()
	buf.Emit("eat")
	mark := buf.Len()
	buf.Emit("s")
	buf.GlueFirst(mark)
	if got := buf.Render(); got != "Eats" {
		t.Fatalf("got %q, want %q", got, "Eats")
	}
}
