package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/lexicon"
	"github.com/cognicore/nli/pkg/nli/rank"
	"github.com/cognicore/nli/pkg/nli/store"
	"github.com/cognicore/nli/pkg/nli/store/memstore"
	"github.com/cognicore/nli/pkg/nli/store/storetest"
)

// countingFacts records how often the neighbours of each node are fetched.
type countingFacts struct {
	store.FactSource
	calls map[string]int
}

func (c *countingFacts) Outgoing(ctx context.Context, subject string) ([]store.Edge, error) {
	c.calls["out:"+subject]++
	return c.FactSource.Outgoing(ctx, subject)
}

func (c *countingFacts) Incoming(ctx context.Context, object string) ([]store.Edge, error) {
	c.calls["in:"+object]++
	return c.FactSource.Incoming(ctx, object)
}

func fixture(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	storetest.Load(t, s)
	return s
}

func obama() entity.Entity {
	return entity.Instance(storetest.Obama, "Barack Obama")
}

func TestNeighbourSearchFetchesEachWaypointOnce(t *testing.T) {
	facts := &countingFacts{FactSource: fixture(t), calls: map[string]int{}}
	n := NewNeighbours(facts, nil)

	routes, err := n.Search(context.Background(), obama(), RangeConfig{Range: 3, Incoming: true, Outgoing: true})
	require.NoError(t, err)
	require.NotEmpty(t, routes)

	for key, count := range facts.calls {
		assert.Equalf(t, 1, count, "neighbours of %s fetched %d times", key, count)
	}
	// Person is reached through several family members.
	assert.Equal(t, 1, facts.calls["out:"+storetest.Person])
}

func TestNeighbourSearchRejectsBackEdges(t *testing.T) {
	n := NewNeighbours(fixture(t), nil)

	routes, err := n.Search(context.Background(), obama(), RangeConfig{Range: 3, Incoming: true, Outgoing: true})
	require.NoError(t, err)

	for _, r := range routes {
		wps := r.Waypoints()
		last := wps[len(wps)-1]
		assert.NotEqual(t, wps[len(wps)-2].Key(), last.Key(), "self loop on %s", r.Path())
		if len(wps) >= 3 {
			assert.NotEqual(t, wps[len(wps)-3].Key(), last.Key(), "back edge on %s", r.Path())
		}
	}
}

func TestNeighbourSearchHops(t *testing.T) {
	n := NewNeighbours(fixture(t), nil)

	routes, err := n.Search(context.Background(), obama(), RangeConfig{Range: 1, Outgoing: true})
	require.NoError(t, err)
	// label, type, spouse, two children, birth place
	assert.Len(t, routes, 6)
	for _, r := range routes {
		assert.Equal(t, 1, r.Len())
		assert.Equal(t, entity.Outgoing, r.Path()[0].Direction)
	}

	routes, err = n.Search(context.Background(), obama(), RangeConfig{Range: 2, Outgoing: true})
	require.NoError(t, err)
	var found bool
	for _, r := range routes {
		if r.Path().Key() == "out:"+storetest.BirthPlace+" out:"+storetest.InCountry {
			found = true
			assert.Equal(t, storetest.USA, r.Last().ID)
		}
	}
	assert.True(t, found, "expected birthPlace/country route")
}

func TestNeighbourSearchRejectsZeroRange(t *testing.T) {
	n := NewNeighbours(fixture(t), nil)
	_, err := n.Search(context.Background(), obama(), RangeConfig{Range: 0, Outgoing: true})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestNoCyclesStrategy(t *testing.T) {
	n := NewNeighbours(fixture(t), nil)
	cfg := RangeConfig{Range: 3, Incoming: true, Outgoing: true}

	routes, err := n.Search(context.Background(), obama(), cfg)
	require.NoError(t, err)
	cyclic := 0
	for _, r := range routes {
		if r.Revisits() {
			cyclic++
		}
	}
	require.NotZero(t, cyclic, "fixture should contain cycles without pruning")

	cfg.Strategies = []Strategy{NoCycles}
	routes, err = n.Search(context.Background(), obama(), cfg)
	require.NoError(t, err)
	for _, r := range routes {
		assert.False(t, r.Revisits(), "cyclic route %s", r.Path())
	}
}

func TestEdgeDirectionStrategy(t *testing.T) {
	n := NewNeighbours(fixture(t), nil)
	cfg := RangeConfig{Range: 2, Incoming: true, Outgoing: true, Strategies: []Strategy{EdgeDirection}}

	routes, err := n.Search(context.Background(), obama(), cfg)
	require.NoError(t, err)

	var firstHopIncoming bool
	for _, r := range routes {
		path := r.Path()
		if len(path) == 1 && path[0].Direction == entity.Incoming {
			firstHopIncoming = true
		}
		if len(path) == 2 {
			assert.Equal(t, entity.Outgoing, path[1].Direction, "second hop of %s", path)
		}
	}
	assert.True(t, firstHopIncoming, "incoming edges are allowed on the first hop")
}

func TestPivotedSearch(t *testing.T) {
	p := NewPivoted(NewNeighbours(fixture(t), nil), rank.JaroWinkler())
	cfg := RangeConfig{Range: 1, Outgoing: true}
	ctx := context.Background()

	paths, err := p.Search(ctx, obama(), cfg, rank.Text{"child"}, false)
	require.NoError(t, err)
	// children share one path
	assert.Len(t, paths, 5)
	top := paths[0].Entry.(entity.Entity)
	assert.Equal(t, entity.KindPath, top.Kind)
	assert.Equal(t, "out:"+storetest.Child, top.ID)

	dests, err := p.Search(ctx, obama(), cfg, rank.Text{"child"}, true)
	require.NoError(t, err)
	require.Len(t, dests, 2)
	ids := []string{dests[0].Entry.(entity.Entity).ID, dests[1].Entry.(entity.Entity).ID}
	assert.ElementsMatch(t, []string{storetest.Malia, storetest.Sasha}, ids)
	assert.Equal(t, paths[0].Value, dests[0].Value)
}

func TestPivotedSearchFromLiteral(t *testing.T) {
	p := NewPivoted(NewNeighbours(fixture(t), nil), rank.JaroWinkler())
	got, err := p.Search(context.Background(), entity.Value("Barack Obama"), RangeConfig{Range: 1, Outgoing: true}, rank.Text{"x"}, true)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngineClassSearchBoostsRoots(t *testing.T) {
	e := NewEngine(fixture(t), rank.JaroWinkler())

	got, err := e.ClassSearch(context.Background(), "city", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, storetest.City, got[0].Entry.(entity.Entity).ID)
	assert.InDelta(t, 1.0, got[0].Value, 1e-9)
	assert.Equal(t, storetest.Capital, got[1].Entry.(entity.Entity).ID)
	assert.LessOrEqual(t, got[1].Value, 0.5)
}

// countingBackend counts neighbour reads of a memory store.
type countingBackend struct {
	*memstore.Store
	calls map[string]int
}

func (b *countingBackend) Outgoing(ctx context.Context, subject string) ([]store.Edge, error) {
	b.calls["out:"+subject]++
	return b.Store.Outgoing(ctx, subject)
}

func (b *countingBackend) Incoming(ctx context.Context, object string) ([]store.Edge, error) {
	b.calls["in:"+object]++
	return b.Store.Incoming(ctx, object)
}

func TestEngineClassSearchReadsEachCandidateOnce(t *testing.T) {
	backend := &countingBackend{Store: fixture(t), calls: map[string]int{}}
	e := NewEngine(backend, rank.JaroWinkler())

	got, err := e.ClassSearch(context.Background(), "city", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, storetest.City, got[0].Entry.(entity.Entity).ID)

	assert.Len(t, backend.calls, len(got))
	for _, c := range got {
		assert.Equal(t, 1, backend.calls["out:"+c.Entry.(entity.Entity).ID])
	}
}

func TestEngineClassSearchBlendIsConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RootBlend = 1
	e := NewEngine(fixture(t), rank.JaroWinkler(), WithConfig(cfg))

	got, err := e.ClassSearch(context.Background(), "capital city", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, storetest.Capital, got[0].Entry.(entity.Entity).ID)
}

func TestEngineInstanceSearch(t *testing.T) {
	e := NewEngine(fixture(t), rank.JaroWinkler())
	ctx := context.Background()

	got, err := e.InstanceSearch(ctx, "Barack Obama", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, storetest.Obama, got[0].Entry.(entity.Entity).ID)

	got, err = e.PivotSearch(ctx, "zeppelin", 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnginePredicateSearchUsesSynonyms(t *testing.T) {
	lex := lexicon.New()
	lex.AddSynonymGroup("spouse", []string{"wife", "husband"})
	e := NewEngine(fixture(t), rank.JaroWinkler(), WithLexicon(lex))
	ctx := context.Background()

	paths, err := e.PredicateSearch(ctx, obama(), "wife", false, true, 6)
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	assert.LessOrEqual(t, len(paths), 6)
	assert.Equal(t, "out:"+storetest.Spouse, paths[0].Entry.(entity.Entity).ID)

	dests, err := e.Destinations(ctx, obama(), "wife", false, true)
	require.NoError(t, err)
	require.Len(t, dests, 1)
	assert.Equal(t, storetest.Michelle, dests[0].Entry.(entity.Entity).ID)
}
