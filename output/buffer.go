// Package output implements the append-only token buffer and final-text
// formatter described by spec §4.7. A Buffer's length is the unit of
// backtracking: a choice point records Len() and restores by truncating
// back to it (never by removing individual tokens), which is why Buffer
// never exposes a Pop — only Truncate.
package output

// Token is one emitted piece of text, plus whether it is glued to whatever
// token precedes it in the buffer — i.e. rendered with no separating space
// regardless of Format's usual spacing rules (spec §8 scenario 6: a call
// written immediately after a word with no space, e.g. "eat[s]", must glue
// its produced text onto that word instead of getting one inserted).
type Token struct {
	Text  string
	Glued bool
}

// Buffer is an append-only sequence of literal tokens (words, punctuation,
// HTML tags) produced while executing a step chain.
type Buffer struct {
	tokens []Token
}

// New returns an empty Buffer.
func New() *Buffer { return &Buffer{} }

// Len returns the current watermark: the number of tokens emitted so far.
// Record this before entering a choice point's alternative and pass it to
// Truncate on backtrack.
func (b *Buffer) Len() int { return len(b.tokens) }

// Emit appends tokens in order, none glued to its predecessor.
func (b *Buffer) Emit(texts ...string) {
	for _, t := range texts {
		b.tokens = append(b.tokens, Token{Text: t})
	}
}

// GlueFirst marks the token at index watermark — if the buffer has grown
// past watermark since it was recorded — as glued to whatever precedes it.
// Used to mark the first token a call produced as glued onto preceding
// text when the call itself was written with no space before it (see
// runtime.GlueStep).
func (b *Buffer) GlueFirst(watermark int) {
	if watermark < len(b.tokens) {
		b.tokens[watermark].Glued = true
	}
}

// Truncate restores the buffer to the state it was in when watermark was
// recorded, discarding everything emitted since — the output half of
// backtracking's "restore bindings, emitted text, and state changes".
func (b *Buffer) Truncate(watermark int) {
	b.tokens = b.tokens[:watermark]
}

// Slice returns the tokens in [from, Len()), without copying the
// underlying array — callers must not mutate the result.
func (b *Buffer) Slice(from int) []Token {
	return b.tokens[from:]
}

// EmitTokens appends already-built tokens verbatim, glue bits included —
// used to replay a captured tail (e.g. Max/Min's retained best-output
// slice) without losing its glue markers.
func (b *Buffer) EmitTokens(toks ...Token) {
	b.tokens = append(b.tokens, toks...)
}

// All returns every token emitted so far.
func (b *Buffer) All() []Token { return b.tokens }

// Texts returns just the text of every token emitted so far, discarding
// glue information — for comparisons that only care about the words (e.g.
// ParseStep matching captured output against literal text).
func (b *Buffer) Texts() []string {
	texts := make([]string, len(b.tokens))
	for i, t := range b.tokens {
		texts[i] = t.Text
	}
	return texts
}

// Render applies the final formatting pass (Format) to every token emitted
// so far.
func (b *Buffer) Render() string {
	return Format(b.tokens)
}
