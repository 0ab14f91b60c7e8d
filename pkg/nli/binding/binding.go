// Package binding implements the token/binding model and the fixpoint
// rewriting engine that turns a POS-tagged token sequence into a sequence of
// typed bindings.
package binding

import "strings"

// Word is a tagged token as produced by a POS annotator.
type Word struct {
	Text string
	POS  string
}

// Target is the type a pattern binds spans to. Its String form names the
// placeholders generated for bound spans.
type Target interface {
	comparable
	String() string
}

// Binding is a span of original words, optionally bound to a typed object and
// a placeholder. Unbound bindings always wrap exactly one word.
type Binding[T Target] struct {
	words       []Word
	content     []Word
	object      T
	bound       bool
	placeholder string
}

// Unbound wraps a single word.
func Unbound[T Target](w Word) Binding[T] {
	return Binding[T]{words: []Word{w}, content: []Word{w}}
}

// Bound creates a bound binding over words. It is mostly useful in tests and
// for callers that build binding sequences by hand.
func Bound[T Target](object T, placeholder string, words ...Word) Binding[T] {
	return Binding[T]{
		words:       copyWords(words),
		content:     copyWords(words),
		object:      object,
		bound:       true,
		placeholder: placeholder,
	}
}

// IsBound reports whether the binding carries an object and placeholder.
func (b Binding[T]) IsBound() bool { return b.bound }

// Object returns the bound object.
func (b Binding[T]) Object() (T, bool) { return b.object, b.bound }

// Placeholder returns the placeholder of a bound binding, or "" when unbound.
func (b Binding[T]) Placeholder() string { return b.placeholder }

// Words returns the original words this binding replaced, in order.
// Concatenating Words over a whole sequence reconstructs the input.
func (b Binding[T]) Words() []Word { return copyWords(b.words) }

// Content returns the words that make up the binding's term. It equals Words
// unless the pattern that produced the binding declared a second group.
func (b Binding[T]) Content() []Word { return copyWords(b.content) }

// Term is the space-joined text of the binding's content.
func (b Binding[T]) Term() string { return joinText(b.content) }

// Text is the space-joined text of the replaced words.
func (b Binding[T]) Text() string { return joinText(b.words) }

func (b Binding[T]) lexical() string {
	if b.bound {
		return b.placeholder
	}
	return renderToken(b.words[0].Text)
}

func (b Binding[T]) pos() string {
	if b.bound {
		return b.placeholder
	}
	return renderToken(b.words[0].POS)
}

// Render joins the sequence the way plan ids are written: bound bindings as
// their placeholder and unbound bindings as their raw text.
func Render[T Target](bindings []Binding[T]) string {
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		if b.bound {
			parts[i] = b.placeholder
		} else {
			parts[i] = b.words[0].Text
		}
	}
	return strings.Join(parts, " ")
}

// Flatten returns the underlying words of a binding sequence in order.
func Flatten[T Target](bindings []Binding[T]) []Word {
	var out []Word
	for _, b := range bindings {
		out = append(out, b.words...)
	}
	return out
}

func joinText(words []Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

func copyWords(in []Word) []Word {
	out := make([]Word, len(in))
	copy(out, in)
	return out
}

// renderToken keeps a token free of whitespace so the space-joined rendering
// has exactly one separator between tokens.
func renderToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Join(strings.Fields(s), "_")
}
