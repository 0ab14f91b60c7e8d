package entity

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// Namespaces maps prefixes (without the colon) to IRI bases. Entities are kept
// fully expanded inside the pipeline and only shortened at search-backend
// boundaries.
type Namespaces map[string]string

// DefaultNamespaces are always known.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		"xsd":  "http://www.w3.org/2001/XMLSchema#",
		"owl":  "http://www.w3.org/2002/07/owl#",
	}
}

// Merge returns a copy of n with extra added. Entries of extra win.
func (n Namespaces) Merge(extra Namespaces) Namespaces {
	out := make(Namespaces, len(n)+len(extra))
	for k, v := range n {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Expand turns a prefixed name into a full IRI and normalises the host of
// full IRIs to its ASCII form. Anything else is returned unchanged.
func (n Namespaces) Expand(id string) string {
	id = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(id), "<"), ">")
	if IsIRI(id) {
		return normaliseHost(id)
	}
	if prefix, local, ok := strings.Cut(id, ":"); ok {
		if base, known := n[prefix]; known {
			return base + local
		}
	}
	return id
}

// Shorten replaces the longest matching base with its prefix.
func (n Namespaces) Shorten(iri string) string {
	prefixes := make([]string, 0, len(n))
	for p := range n {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(n[prefixes[i]]) != len(n[prefixes[j]]) {
			return len(n[prefixes[i]]) > len(n[prefixes[j]])
		}
		return prefixes[i] < prefixes[j]
	})
	for _, p := range prefixes {
		if local, ok := strings.CutPrefix(iri, n[p]); ok && local != "" {
			return p + ":" + local
		}
	}
	return iri
}

// ExpandEntity expands the ids of an entity and of every step of its path.
func (n Namespaces) ExpandEntity(e Entity) Entity {
	switch e.Kind {
	case KindValue:
		return e
	case KindPath:
		path := make(PropertyPath, len(e.Path))
		for i, s := range e.Path {
			path[i] = Step{Property: n.ExpandEntity(s.Property), Direction: s.Direction}
		}
		return Path(path)
	}
	e.ID = n.Expand(e.ID)
	return e
}

// IsIRI reports whether s is written as an absolute IRI, with or without
// angle brackets.
func IsIRI(s string) bool {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "<"), ">")
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	for _, scheme := range []string{"http://", "https://", "urn:"} {
		if strings.HasPrefix(strings.ToLower(s), scheme) && len(s) > len(scheme) {
			return true
		}
	}
	return false
}

func normaliseHost(iri string) string {
	u, err := url.Parse(iri)
	if err != nil || u.Host == "" {
		return iri
	}
	host, err := idna.Lookup.ToASCII(u.Hostname())
	if err != nil || host == u.Hostname() {
		return iri
	}
	if port := u.Port(); port != "" {
		host += ":" + port
	}
	u.Host = host
	return u.String()
}
