package binding

import (
	"sort"
	"strconv"
	"strings"
)

// Extract wraps every word in an unbound binding and rewrites the sequence
// with patterns until no pattern matches.
func Extract[T Target](words []Word, patterns []Pattern[T]) []Binding[T] {
	seq := make([]Binding[T], len(words))
	for i, w := range words {
		seq[i] = Unbound[T](w)
	}
	return rewrite(seq, patterns)
}

// ExtractBindings continues rewriting an existing binding sequence. Already
// bound spans render as their placeholder in both renderings.
func ExtractBindings[T Target](bindings []Binding[T], patterns []Pattern[T]) []Binding[T] {
	seq := make([]Binding[T], len(bindings))
	copy(seq, bindings)
	return rewrite(seq, patterns)
}

// rewrite applies the first matching pattern per pass and restarts, so the
// order of patterns is their precedence. Every accepted rewrite either binds
// at least one unbound word or merges two or more bindings into one, which
// bounds the number of passes.
func rewrite[T Target](seq []Binding[T], patterns []Pattern[T]) []Binding[T] {
	for {
		lexical := renderWith(seq, func(b Binding[T]) string { return b.lexical() })
		tagged := renderWith(seq, func(b Binding[T]) string { return b.pos() })

		applied := false
		for _, p := range patterns {
			r := lexical
			if p.POS {
				r = tagged
			}

			m := p.re.FindStringSubmatchIndex(r.text)
			if m == nil {
				continue
			}
			first, last, ok := r.span(m[2], m[3])
			if !ok || !progresses(seq[first:last+1]) {
				continue
			}

			cFirst, cLast := first, last
			if len(m) >= 6 && m[4] >= 0 {
				if f, l, ok := r.span(m[4], m[5]); ok {
					cFirst, cLast = f, l
				}
			}

			nb := Binding[T]{
				words:       Flatten(seq[first : last+1]),
				content:     Flatten(seq[cFirst : cLast+1]),
				object:      p.Target,
				bound:       true,
				placeholder: placeholderFor(p.Target.String(), lexical.tokens),
			}

			next := make([]Binding[T], 0, len(seq)-(last-first))
			next = append(next, seq[:first]...)
			next = append(next, nb)
			next = append(next, seq[last+1:]...)
			seq = next
			applied = true
			break
		}

		if !applied {
			return seq
		}
	}
}

func progresses[T Target](span []Binding[T]) bool {
	if len(span) > 1 {
		return true
	}
	return !span[0].bound
}

// placeholderFor suffixes a counter to name until the result does not occur
// in the current rendering.
func placeholderFor(name string, tokens []string) string {
	taken := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		taken[t] = struct{}{}
	}
	stem := renderToken(strings.ToUpper(name))
	for n := 1; ; n++ {
		candidate := stem + "_" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// rendering is the space-joined form of a binding sequence together with the
// start and end character offset of every token.
type rendering struct {
	text   string
	tokens []string
	starts []int
	ends   []int
}

func renderWith[T Target](seq []Binding[T], fn func(Binding[T]) string) rendering {
	r := rendering{
		tokens: make([]string, len(seq)),
		starts: make([]int, len(seq)),
		ends:   make([]int, len(seq)),
	}
	var sb strings.Builder
	for i, b := range seq {
		if i > 0 {
			sb.WriteByte(' ')
		}
		tok := fn(b)
		r.tokens[i] = tok
		r.starts[i] = sb.Len()
		sb.WriteString(tok)
		r.ends[i] = sb.Len()
	}
	r.text = sb.String()
	return r
}

// tokenAt returns the index of the token whose start is the last one at or
// before offset.
func (r rendering) tokenAt(offset int) int {
	return sort.Search(len(r.starts), func(i int) bool { return r.starts[i] > offset }) - 1
}

// span converts the character range [start, end) into the inclusive range of
// tokens it touches. Empty ranges and ranges made only of separators yield
// ok == false.
func (r rendering) span(start, end int) (first, last int, ok bool) {
	if start < 0 || end <= start || len(r.tokens) == 0 {
		return 0, 0, false
	}
	first = r.tokenAt(start)
	if first < 0 {
		first = 0
	}
	if start >= r.ends[first] {
		first++
	}
	last = r.tokenAt(end - 1)
	if first >= len(r.tokens) || last < first {
		return 0, 0, false
	}
	return first, last, true
}
