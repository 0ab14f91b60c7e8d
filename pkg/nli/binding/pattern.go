package binding

import (
	"fmt"
	"regexp"

	"github.com/cognicore/nli/pkg/nli/internalerr"
)

// Pattern is one rewriting rule: a regular expression over the space-joined
// rendering of a binding sequence and the object bound to the span captured
// by its first group.
type Pattern[T Target] struct {
	Text   string
	Target T
	// POS is true when the rule matches against POS tags instead of text.
	POS bool
	re  *regexp.Regexp
}

// NewPattern compiles text as a whole-string expression. Whether the rule is
// matched against the POS rendering is decided once, here, from the tag set.
// Neutral words (placeholder stems such as INSTANCE) may appear in either kind
// of pattern.
func NewPattern[T Target](text string, target T, tags TagSet, neutral ...string) (Pattern[T], error) {
	re, err := regexp.Compile("^(?:" + text + ")$")
	if err != nil {
		return Pattern[T]{}, fmt.Errorf("%w: pattern %q: %v", internalerr.ErrInvalidConfig, text, err)
	}
	if re.NumSubexp() == 0 {
		return Pattern[T]{}, fmt.Errorf("%w: pattern %q has no capturing group", internalerr.ErrInvalidConfig, text)
	}
	return Pattern[T]{
		Text:   text,
		Target: target,
		POS:    tags.IsPOSPattern(text, neutral...),
		re:     re,
	}, nil
}

// MustPattern is NewPattern that panics on error. Intended for tests and
// package-level defaults.
func MustPattern[T Target](text string, target T, tags TagSet, neutral ...string) Pattern[T] {
	p, err := NewPattern(text, target, tags, neutral...)
	if err != nil {
		panic(err)
	}
	return p
}

// TagSet is the POS-tag alphabet of a language.
type TagSet map[string]struct{}

// NewTagSet builds a tag set from the given tags.
func NewTagSet(tags ...string) TagSet {
	set := make(TagSet, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// Has reports whether tag belongs to the alphabet.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

var (
	escapeRe  = regexp.MustCompile(`\\.`)
	classRe   = regexp.MustCompile(`\[[^\]]*\]+`)
	flagRe    = regexp.MustCompile(`\(\?[a-zA-Z]*`)
	symbolsRe = regexp.MustCompile(`[A-Za-z]+\$?`)
)

// IsPOSPattern reports whether every word-like symbol of the pattern text is
// a POS tag (or a neutral word) and at least one of them is a tag.
func (s TagSet) IsPOSPattern(text string, neutral ...string) bool {
	stripped := escapeRe.ReplaceAllString(text, " ")
	stripped = classRe.ReplaceAllString(stripped, " ")
	stripped = flagRe.ReplaceAllString(stripped, " ")

	neutralSet := NewTagSet(neutral...)
	seenTag := false
	for _, sym := range symbolsRe.FindAllString(stripped, -1) {
		switch {
		case s.Has(sym):
			seenTag = true
		case neutralSet.Has(sym):
		default:
			return false
		}
	}
	return seenTag
}
