package output

import (
	"strings"
	"unicode"
)

// Options controls the final rendering pass (spec §4.7).
type Options struct {
	// FrenchSpacing, when true, emits two spaces after a sentence-ending
	// period instead of one.
	FrenchSpacing bool
}

var defaultOptions = Options{}

// Format renders a token sequence to a final string using the default
// options: single-space French spacing off, all other §4.7 rules applied.
func Format(tokens []Token) string {
	return FormatWithOptions(tokens, defaultOptions)
}

var sentenceEnders = map[string]bool{".": true, "!": true, "?": true}
var noSpaceBefore = map[string]bool{
	".": true, ",": true, "!": true, "?": true, ";": true, ":": true,
	")": true, "]": true, "'": true, "’": true,
}
var noSpaceAfter = map[string]bool{
	"(": true, "[": true, "\"": true,
}

func isHTMLTag(tok string) bool {
	return len(tok) >= 2 && tok[0] == '<' && tok[len(tok)-1] == '>'
}

func isWhitespaceToken(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// FormatWithOptions applies the capitalization/spacing/vowel-correction
// rules from spec §4.7 to tokens and returns the final rendered string.
// Rendering is idempotent: re-tokenizing a rendered string on whitespace
// and punctuation and rendering again yields the same text (spec §8).
func FormatWithOptions(tokens []Token, opts Options) string {
	// Pass 1: underscore -> space within each token, and drop whitespace
	// tokens that directly follow other emitted whitespace. Line-break
	// tokens ("\n") are always kept, so a pair of them renders as a blank
	// line (see prim.ParagraphTask).
	normalized := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Text == "" {
			continue
		}
		if !isHTMLTag(tok.Text) {
			tok.Text = strings.ReplaceAll(tok.Text, "_", " ")
		}
		if tok.Text != "\n" && isWhitespaceToken(tok.Text) && len(normalized) > 0 && isWhitespaceToken(normalized[len(normalized)-1].Text) {
			continue // suppress adjacent whitespace tokens
		}
		normalized = append(normalized, tok)
	}

	// Pass 2: a/an correction — look ahead to the next non-whitespace token.
	for i, tok := range normalized {
		if tok.Text != "a" && tok.Text != "A" {
			continue
		}
		for j := i + 1; j < len(normalized); j++ {
			next := normalized[j].Text
			if isWhitespaceToken(next) {
				continue
			}
			if startsWithVowelSound(next) {
				if tok.Text == "A" {
					normalized[i].Text = "An"
				} else {
					normalized[i].Text = "an"
				}
			}
			break
		}
	}

	// Pass 3: join with spacing + capitalization rules.
	var b strings.Builder
	capitalizeNext := true
	prevEndedSentence := false
	for _, tok := range normalized {
		text := tok.Text
		if text == "\n" {
			b.WriteString("\n")
			capitalizeNext = true
			prevEndedSentence = false
			continue
		}
		needSpace := b.Len() > 0 &&
			!tok.Glued &&
			!isWhitespaceToken(text) &&
			!noSpaceBefore[text] &&
			!endsWithNoSpaceAfter(&b) &&
			lastRune(&b) != '\n'
		if prevEndedSentence && needSpace && opts.FrenchSpacing {
			b.WriteString(" ")
		}
		if needSpace {
			b.WriteString(" ")
		}
		if isHTMLTag(text) {
			b.WriteString(text)
			capitalizeNext = false
			prevEndedSentence = false
			continue
		}
		if capitalizeNext && text != "" {
			b.WriteString(capitalizeFirst(text))
		} else {
			b.WriteString(text)
		}
		capitalizeNext = false
		prevEndedSentence = sentenceEnders[text]
		if prevEndedSentence {
			capitalizeNext = true
		}
	}
	return b.String()
}

func endsWithNoSpaceAfter(b *strings.Builder) bool {
	s := b.String()
	if s == "" {
		return false
	}
	last := string([]rune(s)[len([]rune(s))-1:])
	return noSpaceAfter[last]
}

func lastRune(b *strings.Builder) rune {
	s := b.String()
	if s == "" {
		return 0
	}
	r := []rune(s)
	return r[len(r)-1]
}

func capitalizeFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func startsWithVowelSound(s string) bool {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return false
	}
	switch r[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}
