// Package annotate provides POS annotators. The dictionary tagger is a small
// reference implementation for questions; production deployments plug in a
// real tagger behind the same interface.
package annotate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cognicore/nli/pkg/nli/binding"
	"github.com/cognicore/nli/pkg/nli/internalerr"
)

// Annotator tags a text in a given language.
type Annotator interface {
	Run(ctx context.Context, language, text string) ([]binding.Word, error)
}

// Func adapts a function to Annotator.
type Func func(ctx context.Context, language, text string) ([]binding.Word, error)

// Run implements Annotator.
func (f Func) Run(ctx context.Context, language, text string) ([]binding.Word, error) {
	return f(ctx, language, text)
}

// DictionaryTagger tags closed-class words from a dictionary and open-class
// words by shape: capitalised unknown words are proper nouns, and -ed, -ing
// and -s suffixes mark participles and plurals.
type DictionaryTagger struct {
	tokenizer *Tokenizer
	lexicons  map[string]map[string]string
}

// NewDictionaryTagger creates a tagger preloaded with the English closed-class
// dictionary under "en".
func NewDictionaryTagger() *DictionaryTagger {
	d := &DictionaryTagger{
		tokenizer: NewTokenizer('-', '\''),
		lexicons:  make(map[string]map[string]string),
	}
	d.AddWords("en", english)
	return d
}

// AddWords merges word -> tag entries into the dictionary of a language.
func (d *DictionaryTagger) AddWords(language string, words map[string]string) {
	lex, ok := d.lexicons[language]
	if !ok {
		lex = make(map[string]string, len(words))
		d.lexicons[language] = lex
	}
	for w, tag := range words {
		lex[strings.ToLower(w)] = tag
	}
}

// Run implements Annotator.
func (d *DictionaryTagger) Run(ctx context.Context, language, text string) ([]binding.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lex, ok := d.lexicons[language]
	if !ok {
		return nil, fmt.Errorf("%w: no tagger dictionary for %q", internalerr.ErrUnknownLanguage, language)
	}

	tokens := d.tokenizer.Tokenize(text)
	words := make([]binding.Word, len(tokens))
	for i, tok := range tokens {
		words[i] = binding.Word{Text: tok, POS: tagOf(lex, tok)}
	}
	return words, nil
}

func tagOf(lex map[string]string, tok string) string {
	lower := strings.ToLower(tok)
	if tag, ok := lex[lower]; ok {
		return tag
	}

	first := []rune(tok)[0]
	switch {
	case isPunctuation(tok):
		return "."
	case isNumber(tok):
		return "CD"
	case unicode.IsUpper(first):
		return "NNP"
	case strings.HasSuffix(lower, "ed") && len(lower) > 3:
		return "VBN"
	case strings.HasSuffix(lower, "ing") && len(lower) > 4:
		return "VBG"
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss") && len(lower) > 3:
		return "NNS"
	}
	return "NN"
}

func isPunctuation(tok string) bool {
	for _, r := range tok {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

func isNumber(tok string) bool {
	seenDigit := false
	for _, r := range tok {
		switch {
		case unicode.IsDigit(r):
			seenDigit = true
		case r == '.' || r == ',' || r == '-':
		default:
			return false
		}
	}
	return seenDigit
}

// english holds closed-class words and a few irregular forms.
var english = map[string]string{
	"who": "WP", "what": "WP", "whom": "WP", "whose": "WP$",
	"which": "WDT",
	"where": "WRB", "when": "WRB", "how": "WRB", "why": "WRB",
	"is": "VBZ", "has": "VBZ", "does": "VBZ",
	"are": "VBP", "have": "VBP", "do": "VBP",
	"was": "VBD", "were": "VBD", "did": "VBD", "had": "VBD",
	"be": "VB", "give": "VB", "list": "VB", "show": "VB", "tell": "VB",
	"the": "DT", "a": "DT", "an": "DT", "all": "DT", "every": "DT", "each": "DT",
	"many": "DT", "much": "DT", "some": "DT", "any": "DT",
	"of": "IN", "in": "IN", "on": "IN", "at": "IN", "by": "IN", "from": "IN",
	"with": "IN", "for": "IN", "into": "IN", "than": "IN",
	"to": "TO",
	"and": "CC", "or": "CC",
	"me": "PRP", "it": "PRP", "he": "PRP", "she": "PRP", "they": "PRP", "we": "PRP", "you": "PRP",
	"his": "PRP$", "her": "PRP$", "its": "PRP$", "their": "PRP$",
	"there": "EX",
	"not": "RB",
	"born": "VBN", "written": "VBN", "known": "VBN", "made": "VBN", "built": "VBN",
	"children": "NNS", "people": "NNS", "women": "NNS", "men": "NNS",
}
