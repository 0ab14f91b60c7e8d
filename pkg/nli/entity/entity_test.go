package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteIsImmutable(t *testing.T) {
	pivot := Instance("http://ex.org/obama", "Barack Obama")
	spouse := Step{Property: Property("http://ex.org/spouse", "spouse"), Direction: Outgoing}
	child := Step{Property: Property("http://ex.org/child", "child"), Direction: Outgoing}

	r1 := Start(pivot).Extend(spouse, Instance("http://ex.org/michelle", "Michelle Obama"))
	a := r1.Extend(child, Instance("http://ex.org/malia", "Malia Obama"))
	b := r1.Extend(child, Instance("http://ex.org/sasha", "Sasha Obama"))

	assert.Equal(t, 1, r1.Len())
	assert.Equal(t, 2, a.Len())
	assert.Len(t, a.Waypoints(), 3)
	assert.Equal(t, "Malia Obama", a.Last().Label)
	assert.Equal(t, "Sasha Obama", b.Last().Label)
	assert.Equal(t, pivot, b.Pivot())
	assert.True(t, a.Path().Equal(b.Path()))
	assert.Equal(t, "out:http://ex.org/spouse out:http://ex.org/child", a.Path().Key())

	prev, ok := a.Previous()
	require.True(t, ok)
	assert.Equal(t, "Michelle Obama", prev.Label)
}

func TestRouteRevisits(t *testing.T) {
	a := Instance("http://ex.org/a", "a")
	b := Instance("http://ex.org/b", "b")
	p := Step{Property: Property("http://ex.org/p", "p"), Direction: Outgoing}

	r := Start(a).Extend(p, b)
	assert.False(t, r.Revisits())
	assert.True(t, r.Extend(p, Instance("http://ex.org/c", "c")).Extend(p, a).Revisits())
}

func TestRankableValues(t *testing.T) {
	e := Property("http://dbpedia.org/ontology/birthPlace", "")
	assert.Equal(t, []string{"birth place"}, e.RankableValues())

	e = Instance("http://ex.org/obama", "Barack Obama", "Obama", "Barack Obama")
	assert.Equal(t, []string{"Barack Obama", "Obama"}, e.RankableValues())

	path := Path(PropertyPath{
		{Property: Property("http://ex.org/spouse", "spouse"), Direction: Outgoing},
		{Property: Property("http://ex.org/name", "name"), Direction: Incoming},
	})
	assert.Equal(t, []string{"spouse name"}, path.RankableValues())
	assert.Equal(t, "<http://ex.org/spouse>/^<http://ex.org/name>", path.Path.String())
}

func TestNamespaces(t *testing.T) {
	ns := DefaultNamespaces().Merge(Namespaces{"dbo": "http://dbpedia.org/ontology/"})

	assert.Equal(t, "http://dbpedia.org/ontology/spouse", ns.Expand("dbo:spouse"))
	assert.Equal(t, RDFType, ns.Expand("rdf:type"))
	assert.Equal(t, "http://ex.org/x", ns.Expand("<http://ex.org/x>"))
	assert.Equal(t, "http://xn--bcher-kva.example/x", ns.Expand("http://bücher.example/x"))
	assert.Equal(t, "plain", ns.Expand("plain"))
	assert.Equal(t, "dbo:spouse", ns.Shorten("http://dbpedia.org/ontology/spouse"))

	e := ns.ExpandEntity(Path(PropertyPath{{Property: Property("dbo:spouse", ""), Direction: Outgoing}}))
	assert.Equal(t, "http://dbpedia.org/ontology/spouse", e.Path[0].Property.ID)
}

func TestIsIRI(t *testing.T) {
	assert.True(t, IsIRI("http://ex.org/a"))
	assert.True(t, IsIRI("<https://ex.org/a>"))
	assert.True(t, IsIRI("urn:isbn:123"))
	assert.False(t, IsIRI("Barack Obama"))
	assert.False(t, IsIRI("http://"))
}

func TestHumanise(t *testing.T) {
	assert.Equal(t, "birth place", Humanise("birthPlace"))
	assert.Equal(t, "date of birth", Humanise("date_of_birth"))
	assert.Equal(t, "spouse", LocalName("http://ex.org/ns#spouse"))
}

func TestPathReversed(t *testing.T) {
	p := PropertyPath{
		{Property: Property("http://ex.org/child", ""), Direction: Incoming},
		{Property: Property("http://ex.org/spouse", ""), Direction: Outgoing},
	}

	rev := p.Reversed()
	assert.Equal(t, "in:http://ex.org/spouse out:http://ex.org/child", rev.Key())
	assert.True(t, rev.Reversed().Equal(p))
	assert.Equal(t, "in:http://ex.org/child", p[:1].Key())
}
