package annotate

import (
	"strings"
	"unicode"
)

// Tokenizer splits questions into word and punctuation tokens.
type Tokenizer struct {
	joiners map[rune]struct{}
}

// NewTokenizer creates a tokenizer. Joiner runes stay inside a word, such as
// the hyphen in "X-Men" or the apostrophe in "O'Neil".
func NewTokenizer(joiners ...rune) *Tokenizer {
	set := make(map[rune]struct{}, len(joiners))
	for _, r := range joiners {
		set[r] = struct{}{}
	}
	return &Tokenizer{joiners: set}
}

// Tokenize keeps letters, digits and joiners together and emits every other
// non-space rune as its own token. Case is preserved.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			if word := t.cleanToken(current.String()); word != "" {
				tokens = append(tokens, word)
			}
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || t.isJoiner(r):
			current.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()

	return tokens
}

func (t *Tokenizer) isJoiner(r rune) bool {
	_, ok := t.joiners[r]
	return ok
}

// cleanToken strips leading/trailing joiners. A token made only of joiners is
// kept as punctuation.
func (t *Tokenizer) cleanToken(token string) string {
	trimmed := strings.TrimFunc(token, t.isJoiner)
	if trimmed == "" {
		return token
	}
	return trimmed
}
