package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/lexicon"
	"github.com/cognicore/nli/pkg/nli/model"
	"github.com/cognicore/nli/pkg/nli/querybuild"
	"github.com/cognicore/nli/pkg/nli/rank"
	"github.com/cognicore/nli/pkg/nli/search"
	"github.com/cognicore/nli/pkg/nli/store/memstore"
	"github.com/cognicore/nli/pkg/nli/store/storetest"
)

type predicateCall struct {
	pivot              string
	incoming, outgoing bool
}

type fakeSearcher struct {
	calls      map[string]int
	results    map[string]rank.Scores
	err        error
	predicates []predicateCall
}

func newFake() *fakeSearcher {
	return &fakeSearcher{calls: map[string]int{}, results: map[string]rank.Scores{}}
}

func (f *fakeSearcher) run(kind, term string) (rank.Scores, error) {
	f.calls[kind+":"+term]++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[kind+":"+term], nil
}

func (f *fakeSearcher) ClassSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	return f.run("class", term)
}

func (f *fakeSearcher) InstanceSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	return f.run("instance", term)
}

func (f *fakeSearcher) PivotSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	return f.run("pivot", term)
}

func (f *fakeSearcher) PredicateSearch(ctx context.Context, pivot entity.Entity, term string, incoming, outgoing bool, limit int) (rank.Scores, error) {
	f.predicates = append(f.predicates, predicateCall{pivot: pivot.ID, incoming: incoming, outgoing: outgoing})
	return f.run("predicate", term)
}

type countingObserver map[string]int

func (o countingObserver) Resolved(kind string, candidates int) { o[kind] += candidates }

func instance(id string, v float64) rank.Score {
	return rank.Score{Entry: entity.Instance(id, ""), Value: v}
}

func binding(tp model.DataModelType, term, ph string) model.DataModelBinding {
	return model.DataModelBinding{Type: tp, Term: term, Placeholder: ph}
}

func TestResolveClassIsMemoised(t *testing.T) {
	f := newFake()
	f.results["class:wife"] = rank.Scores{instance("http://ex.org/Wife", 0.9)}
	r := New(f)
	b := binding(model.Class, "wife", "CLASS_1")

	require.NoError(t, r.ResolveClass(context.Background(), b))
	require.NoError(t, r.ResolveClass(context.Background(), b))

	assert.Equal(t, 1, f.calls["class:wife"])
	assert.True(t, r.HasMappings(b))
}

func TestResolveClassLimitsAndSorts(t *testing.T) {
	f := newFake()
	f.results["class:city"] = rank.Scores{
		instance("http://ex.org/a", 0.1),
		instance("http://ex.org/b", 0.9),
		instance("http://ex.org/c", 0.5),
		instance("http://ex.org/d", 0.7),
		instance("http://ex.org/e", 0.3),
	}
	r := New(f)
	b := binding(model.Class, "city", "CLASS_1")

	require.NoError(t, r.ResolveClass(context.Background(), b))

	got := r.Mappings()[b]
	require.Len(t, got, 3)
	assert.Equal(t, []float64{0.9, 0.7, 0.5}, []float64{got[0].Value, got[1].Value, got[2].Value})
	assert.Equal(t, "http://ex.org/b", got[0].Entry.(entity.Entity).ID)
}

func TestResolveClassWithoutResults(t *testing.T) {
	f := newFake()
	obs := countingObserver{}
	r := New(f, WithObserver(obs))
	b := binding(model.Class, "zeppelin", "CLASS_1")

	require.NoError(t, r.ResolveClass(context.Background(), b))
	require.NoError(t, r.ResolveClass(context.Background(), b))

	assert.False(t, r.HasMappings(b))
	assert.Equal(t, 1, f.calls["class:zeppelin"])
	assert.Equal(t, 0, obs["class"])
}

func TestResolveSearchErrorLeavesBindingUnmapped(t *testing.T) {
	f := newFake()
	f.err = internalerr.ErrStoreUnavailable
	r := New(f)
	b := binding(model.Class, "city", "CLASS_1")

	require.NoError(t, r.ResolveClass(context.Background(), b))
	assert.False(t, r.HasMappings(b))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.err = ctx.Err()
	err := r.ResolveClass(ctx, binding(model.Class, "town", "CLASS_2"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResolveURITermSkipsSearch(t *testing.T) {
	f := newFake()
	r := New(f, WithNamespaces(entity.DefaultNamespaces().Merge(entity.Namespaces{"ex": "http://example.org/"})))
	full := binding(model.Class, "http://example.org/Person", "CLASS_1")
	prefixed := binding(model.Property, "ex:spouse", "PROPERTY_1")

	require.NoError(t, r.ResolveClass(context.Background(), full))
	require.NoError(t, r.ResolvePredicate(context.Background(), entity.Instance("http://example.org/x", ""), false, true, prefixed))

	assert.Empty(t, f.calls)
	cls := r.Mappings()[full]
	require.Len(t, cls, 1)
	assert.Equal(t, 1.0, cls[0].Value)
	prop := r.Mappings()[prefixed][0].Entry.(entity.Entity)
	assert.Equal(t, "http://example.org/spouse", prop.ID)
	assert.Equal(t, entity.KindProperty, prop.Kind)
}

func TestResolveExpandsNamespaces(t *testing.T) {
	f := newFake()
	f.results["pivot:obama"] = rank.Scores{instance("ex:BarackObama", 1)}
	r := New(f, WithNamespaces(entity.Namespaces{"ex": "http://example.org/"}))

	pivot, ok, err := r.ResolvePivot(context.Background(), binding(model.Instance, "obama", "INSTANCE_1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "http://example.org/BarackObama", pivot.ID)
}

func TestResolvePivotKeepsBestOnly(t *testing.T) {
	f := newFake()
	f.results["pivot:obama"] = rank.Scores{instance("http://ex.org/a", 0.4), instance("http://ex.org/b", 0.8)}
	r := New(f)
	b := binding(model.Instance, "obama", "INSTANCE_1")

	pivot, ok, err := r.ResolvePivot(context.Background(), b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "http://ex.org/b", pivot.ID)
	assert.Len(t, r.Mappings()[b], 1)

	_, ok, err = r.ResolvePivot(context.Background(), binding(model.Class, "obama", "CLASS_1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveInstanceUsesCallerLimit(t *testing.T) {
	f := newFake()
	f.results["instance:obama"] = rank.Scores{instance("http://ex.org/a", 0.4), instance("http://ex.org/b", 0.8), instance("http://ex.org/c", 0.6)}
	r := New(f)
	b := binding(model.Instance, "obama", "INSTANCE_1")

	require.NoError(t, r.ResolveInstance(context.Background(), b, 2))
	assert.Len(t, r.Mappings()[b], 2)
}

func TestResolveTypeTriple(t *testing.T) {
	f := newFake()
	f.results["class:city"] = rank.Scores{instance("http://ex.org/City", 1)}
	r := New(f)
	cls := binding(model.Class, "city", "CLASS_1")
	triple := model.BoundTriple{
		Subject:   binding(model.Variable, "?VAR_1", "?VAR_1"),
		Predicate: binding(model.Type, "TYPE_1", "TYPE_1"),
		Object:    cls,
	}

	require.NoError(t, r.ResolveTriple(context.Background(), triple))
	assert.True(t, r.HasMappings(cls))
	assert.Empty(t, f.predicates)
}

func TestResolveTriplePivotDirection(t *testing.T) {
	f := newFake()
	f.results["pivot:obama"] = rank.Scores{instance("http://ex.org/Obama", 1)}
	f.results["predicate:wife"] = rank.Scores{{Entry: entity.Property("http://ex.org/spouse", "spouse"), Value: 1}}
	prop := binding(model.Class, "wife", "CLASS_1")
	inst := binding(model.Instance, "obama", "INSTANCE_1")
	v := binding(model.Variable, "?VAR_1", "?VAR_1")

	r := New(f)
	require.NoError(t, r.ResolveTriple(context.Background(), model.BoundTriple{Subject: inst, Predicate: prop, Object: v}))
	require.Len(t, f.predicates, 1)
	assert.Equal(t, predicateCall{pivot: "http://ex.org/Obama", incoming: false, outgoing: true}, f.predicates[0])
	assert.True(t, r.HasMappings(prop))

	r = New(f)
	require.NoError(t, r.ResolveTriple(context.Background(), model.BoundTriple{Subject: v, Predicate: prop, Object: inst}))
	require.Len(t, f.predicates, 2)
	assert.Equal(t, predicateCall{pivot: "http://ex.org/Obama", incoming: true, outgoing: false}, f.predicates[1])
}

func TestResolveTripleWithoutPivot(t *testing.T) {
	f := newFake()
	r := New(f)
	prop := binding(model.Property, "born", "PROPERTY_1")
	triple := model.BoundTriple{
		Subject:   binding(model.Instance, "nobody", "INSTANCE_1"),
		Predicate: prop,
		Object:    binding(model.Variable, "?VAR_1", "?VAR_1"),
	}

	require.NoError(t, r.ResolveTriple(context.Background(), triple))
	assert.False(t, r.HasMappings(prop))
	assert.Empty(t, f.predicates)
}

func TestCustomMappings(t *testing.T) {
	s := memstore.New()
	storetest.Load(t, s)
	f := newFake()
	f.results["class:town"] = rank.Scores{instance(storetest.City, 0.5)}

	custom := NewCustomMappings(f, s, map[string][]string{
		"First Lady": {storetest.Michelle},
		"town":       {storetest.NS + "Nowhere"},
	}, nil)
	ctx := context.Background()

	got, err := custom.PivotSearch(ctx, "first  lady", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, storetest.Michelle, got[0].Entry.(entity.Entity).ID)
	assert.Zero(t, f.calls["pivot:first  lady"])

	got, err = custom.ClassSearch(ctx, "town", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls["class:town"])
	require.Len(t, got, 1)
	assert.Equal(t, storetest.City, got[0].Entry.(entity.Entity).ID)

	_, err = custom.InstanceSearch(ctx, "Berlin", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls["instance:Berlin"])
}

func TestResolveAgainstGraph(t *testing.T) {
	s := memstore.New()
	storetest.Load(t, s)
	lex := lexicon.New()
	lex.AddSynonymGroup("spouse", []string{"wife", "husband"})
	engine := search.NewEngine(s, rank.JaroWinkler(), search.WithLexicon(lex))
	r := New(engine)

	inst := binding(model.Instance, "Barack Obama", "INSTANCE_1")
	cls := binding(model.Class, "wife", "CLASS_1")
	triple := model.BoundTriple{Subject: inst, Predicate: cls, Object: binding(model.Variable, "?VAR_1", "?VAR_1")}

	require.NoError(t, r.ResolveTriple(context.Background(), triple))

	pivot := r.Mappings()[inst]
	require.Len(t, pivot, 1)
	assert.Equal(t, storetest.Obama, pivot[0].Entry.(entity.Entity).ID)

	paths := r.Mappings()[cls]
	require.NotEmpty(t, paths)
	assert.LessOrEqual(t, len(paths), DefaultLimits().Predicate)
	top := paths[0].Entry.(entity.Entity)
	assert.Equal(t, entity.KindPath, top.Kind)
	assert.Equal(t, storetest.Spouse, top.Path[0].Property.ID)
}

func TestResolveObjectPivotPathsReadFromSubject(t *testing.T) {
	f := newFake()
	f.results["pivot:malia"] = rank.Scores{instance("http://ex.org/Malia", 1)}
	f.results["predicate:grandparent"] = rank.Scores{{Entry: entity.Path(entity.PropertyPath{
		{Property: entity.Property("http://ex.org/child", "child"), Direction: entity.Incoming},
		{Property: entity.Property("http://ex.org/spouse", "spouse"), Direction: entity.Outgoing},
	}), Value: 1}}
	prop := binding(model.Property, "grandparent", "PROPERTY_1")
	inst := binding(model.Instance, "malia", "INSTANCE_1")
	triple := model.BoundTriple{Subject: binding(model.Variable, "?VAR_1", "?VAR_1"), Predicate: prop, Object: inst}

	r := New(f)
	require.NoError(t, r.ResolveTriple(context.Background(), triple))
	require.NoError(t, r.ResolveTriple(context.Background(), triple))

	paths := r.Mappings()[prop]
	require.Len(t, paths, 1)
	assert.Equal(t, "in:http://ex.org/spouse out:http://ex.org/child", paths[0].Entry.(entity.Entity).Path.Key())
}

func TestResolveAsymmetricFactFromObject(t *testing.T) {
	s := memstore.New()
	storetest.Load(t, s)
	r := New(search.NewEngine(s, rank.JaroWinkler()))

	prop := binding(model.Property, "birth place", "PROPERTY_1")
	inst := binding(model.Instance, "Honolulu", "INSTANCE_1")
	v := binding(model.Variable, "?VAR_1", "?VAR_1")
	require.NoError(t, r.ResolveTriple(context.Background(), model.BoundTriple{Subject: v, Predicate: prop, Object: inst}))

	paths := r.Mappings()[prop]
	require.NotEmpty(t, paths)
	top := paths[0].Entry.(entity.Entity)
	require.Len(t, top.Path, 1)
	assert.Equal(t, storetest.BirthPlace, top.Path[0].Property.ID)
	assert.Equal(t, entity.Outgoing, top.Path[0].Direction)

	qp, err := model.ParseQueryPlan([]string{"?VAR_1 PROPERTY_1 INSTANCE_1"})
	require.NoError(t, err)
	lines, err := querybuild.New(querybuild.DefaultConfig()).Patterns(qp,
		model.BindingPool{"PROPERTY_1": prop, "INSTANCE_1": inst}, model.Mappings{prop: paths[:1], inst: r.Mappings()[inst]})
	require.NoError(t, err)
	assert.Equal(t, []string{"?VAR_1 <" + storetest.BirthPlace + "> <" + storetest.Honolulu + ">"}, lines)
}
