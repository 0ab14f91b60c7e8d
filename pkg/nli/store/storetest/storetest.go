// Package storetest holds a small fixture graph and a conformance suite run
// against every store.Graph implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/store"
)

// NS is the namespace of the fixture graph.
const NS = "http://example.org/"

// Fixture ids.
const (
	Obama    = NS + "BarackObama"
	Michelle = NS + "MichelleObama"
	Malia    = NS + "MaliaObama"
	Sasha    = NS + "SashaObama"
	Honolulu = NS + "Honolulu"
	Berlin   = NS + "Berlin"
	Germany  = NS + "Germany"
	USA      = NS + "USA"

	Person  = NS + "Person"
	City    = NS + "City"
	Capital = NS + "Capital"
	Country = NS + "Country"
	Place   = NS + "Place"

	Spouse     = NS + "spouse"
	Child      = NS + "child"
	BirthPlace = NS + "birthPlace"
	InCountry  = NS + "country"
)

// Facts returns the fixture graph: the Obama family, two cities and a small
// class hierarchy.
func Facts() []store.Fact {
	label := func(s, l string) store.Fact {
		return store.Fact{Subject: s, Predicate: entity.RDFSLabel, Object: l, Literal: true}
	}
	link := func(s, p, o string) store.Fact {
		return store.Fact{Subject: s, Predicate: p, Object: o}
	}
	typed := func(s, class string) store.Fact { return link(s, entity.RDFType, class) }
	sub := func(s, class string) store.Fact { return link(s, entity.RDFSSubClassOf, class) }

	return []store.Fact{
		label(Obama, "Barack Obama"), typed(Obama, Person),
		link(Obama, Spouse, Michelle), link(Obama, Child, Malia), link(Obama, Child, Sasha),
		link(Obama, BirthPlace, Honolulu),
		label(Michelle, "Michelle Obama"), typed(Michelle, Person), link(Michelle, Spouse, Obama),
		label(Malia, "Malia Obama"), typed(Malia, Person),
		label(Sasha, "Sasha Obama"), typed(Sasha, Person),
		label(Honolulu, "Honolulu"), typed(Honolulu, City), link(Honolulu, InCountry, USA),
		label(Berlin, "Berlin"), typed(Berlin, City), typed(Berlin, Capital), link(Berlin, InCountry, Germany),
		label(Germany, "Germany"), typed(Germany, Country),
		label(USA, "United States"), typed(USA, Country),
		label(Person, "person"),
		label(City, "city"), sub(City, Place),
		label(Capital, "capital city"), sub(Capital, City),
		label(Country, "country"), sub(Country, Place),
		label(Place, "place"),
		label(Spouse, "spouse"), label(Child, "child"), label(BirthPlace, "birth place"), label(InCountry, "country"),
	}
}

// Load links the fixture into g.
func Load(t testing.TB, g store.Graph) {
	t.Helper()
	if err := g.Link(context.Background(), Facts()...); err != nil {
		t.Fatalf("Link fixture: %v", err)
	}
}

// Run exercises a store.Graph implementation. newGraph must return an empty
// graph; Run closes it.
func Run(t *testing.T, newGraph func(t *testing.T) store.Graph) {
	ctx := context.Background()

	t.Run("LinkIsIdempotent", func(t *testing.T) {
		g := newGraph(t)
		defer g.Close()
		Load(t, g)
		Load(t, g)

		stats, err := g.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.Facts != len(Facts()) {
			t.Errorf("expected %d facts, got %d", len(Facts()), stats.Facts)
		}
		if stats.Classes != 5 {
			t.Errorf("expected 5 classes, got %d", stats.Classes)
		}
	})

	t.Run("RejectsIncompleteFact", func(t *testing.T) {
		g := newGraph(t)
		defer g.Close()
		if err := g.Link(ctx, store.Fact{Subject: Obama, Predicate: ""}); err == nil {
			t.Fatal("expected error for fact without predicate")
		}
	})

	t.Run("Outgoing", func(t *testing.T) {
		g := newGraph(t)
		defer g.Close()
		Load(t, g)

		edges, err := g.Outgoing(ctx, Obama)
		if err != nil {
			t.Fatalf("Outgoing: %v", err)
		}
		byProp := map[string][]entity.Entity{}
		for _, e := range edges {
			if e.Property.Kind != entity.KindProperty {
				t.Errorf("edge property %s has kind %s", e.Property.ID, e.Property.Kind)
			}
			byProp[e.Property.ID] = append(byProp[e.Property.ID], e.Node)
		}
		if len(byProp[Child]) != 2 {
			t.Errorf("expected 2 children, got %v", byProp[Child])
		}
		spouse := byProp[Spouse]
		if len(spouse) != 1 || spouse[0].ID != Michelle || spouse[0].Label != "Michelle Obama" {
			t.Errorf("unexpected spouse %v", spouse)
		}
		labels := byProp[entity.RDFSLabel]
		if len(labels) != 1 || !labels[0].IsLiteral() || labels[0].ID != "Barack Obama" {
			t.Errorf("expected literal label edge, got %v", labels)
		}
		for _, e := range edges {
			if e.Property.ID == Spouse && e.Property.Label != "spouse" {
				t.Errorf("expected labelled property, got %+v", e.Property)
			}
		}
	})

	t.Run("Incoming", func(t *testing.T) {
		g := newGraph(t)
		defer g.Close()
		Load(t, g)

		edges, err := g.Incoming(ctx, Honolulu)
		if err != nil {
			t.Fatalf("Incoming: %v", err)
		}
		if len(edges) != 1 || edges[0].Node.ID != Obama || edges[0].Property.ID != BirthPlace {
			t.Fatalf("unexpected incoming edges %+v", edges)
		}

		edges, err = g.Incoming(ctx, "Barack Obama")
		if err != nil {
			t.Fatalf("Incoming literal: %v", err)
		}
		if len(edges) != 0 {
			t.Errorf("literals must not have incoming edges, got %+v", edges)
		}
	})

	t.Run("ClassEdges", func(t *testing.T) {
		g := newGraph(t)
		defer g.Close()
		Load(t, g)

		cases := []struct {
			member, class string
			want          bool
		}{
			{Berlin, City, true},
			{Capital, City, true},
			{City, Place, true},
			{Capital, Place, false},
			{City, Capital, false},
		}
		for _, c := range cases {
			edges, err := g.Outgoing(ctx, c.member)
			if err != nil {
				t.Fatalf("Outgoing: %v", err)
			}
			got := false
			for _, e := range edges {
				if store.IsClassPredicate(e.Property.ID) && e.Node.ID == c.class {
					got = true
				}
			}
			if got != c.want {
				t.Errorf("class edge %s -> %s = %v, want %v", c.member, c.class, got, c.want)
			}
		}
	})

	t.Run("Search", func(t *testing.T) {
		g := newGraph(t)
		defer g.Close()
		Load(t, g)

		scores, err := g.Search(ctx, store.Query{Target: store.TargetClass, Text: "city", Limit: 50})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		ids := map[string]bool{}
		for _, s := range scores {
			ids[s.Entry.(entity.Entity).ID] = true
		}
		if len(scores) != 2 || !ids[City] || !ids[Capital] {
			t.Errorf("expected City and Capital, got %v", ids)
		}

		scores, err = g.Search(ctx, store.Query{Target: store.TargetInstance, Text: "Barack Obama", Limit: 2})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(scores) != 2 {
			t.Fatalf("expected limit of 2, got %d", len(scores))
		}
		top := scores[0].Entry.(entity.Entity)
		if top.ID != Obama || top.Kind != entity.KindInstance {
			t.Errorf("expected Obama first, got %+v", top)
		}

		scores, err = g.Search(ctx, store.Query{Target: store.TargetProperty, Text: "birth", Limit: 10})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(scores) != 1 || scores[0].Entry.(entity.Entity).ID != BirthPlace {
			t.Errorf("expected birthPlace, got %v", scores)
		}

		scores, err = g.Search(ctx, store.Query{Target: store.TargetInstance, Text: "zeppelin", Limit: 10})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(scores) != 0 {
			t.Errorf("expected no results, got %v", scores)
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		g := newGraph(t)
		defer g.Close()
		Load(t, g)

		got, err := g.Lookup(ctx, []string{Obama, NS + "Nobody", Spouse})
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 entities, got %v", got)
		}
		if got[0].Label != "Barack Obama" || got[0].Kind != entity.KindInstance {
			t.Errorf("unexpected %+v", got[0])
		}
		if got[1].Kind != entity.KindProperty {
			t.Errorf("expected property kind, got %+v", got[1])
		}
	})

	t.Run("Unlink", func(t *testing.T) {
		g := newGraph(t)
		defer g.Close()
		Load(t, g)

		f := store.Fact{Subject: Obama, Predicate: Spouse, Object: Michelle}
		if err := g.Unlink(ctx, f); err != nil {
			t.Fatalf("Unlink: %v", err)
		}
		edges, err := g.Outgoing(ctx, Obama)
		if err != nil {
			t.Fatalf("Outgoing: %v", err)
		}
		for _, e := range edges {
			if e.Property.ID == Spouse {
				t.Errorf("spouse edge should be gone")
			}
		}
		stats, err := g.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.Facts != len(Facts())-1 {
			t.Errorf("expected %d facts, got %d", len(Facts())-1, stats.Facts)
		}
	})
}
