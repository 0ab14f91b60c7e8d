package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/nli/pkg/nli/internalerr"
)

func TestDataModelTypeNames(t *testing.T) {
	for _, dt := range AllTypes() {
		parsed, err := ParseDataModelType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)
	}

	_, err := ParseDataModelType("NOUN")
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestDataModelTypeFromYAML(t *testing.T) {
	var doc struct {
		Target DataModelType `yaml:"target"`
		Kind   QueryType     `yaml:"kind"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("target: complex_class\nkind: ask\n"), &doc))
	assert.Equal(t, ComplexClass, doc.Target)
	assert.Equal(t, Ask, doc.Kind)
}

func TestBindingPoolBind(t *testing.T) {
	pool := BindingPool{
		"INSTANCE_1": {Type: Instance, Term: "Barack Obama", Placeholder: "INSTANCE_1"},
		"CLASS_1":    {Type: Class, Term: "wife", Placeholder: "CLASS_1"},
	}

	tp, err := ParseTriplePattern("INSTANCE_1 CLASS_1 ?VAR_1")
	require.NoError(t, err)

	bt, err := pool.Bind(tp)
	require.NoError(t, err)
	assert.Equal(t, "Barack Obama", bt.Subject.Term)
	assert.Equal(t, Class, bt.Predicate.Type)
	assert.Equal(t, Variable, bt.Object.Type)

	tp, err = ParseTriplePattern("?VAR_1 TYPE_1 CLASS_2")
	require.NoError(t, err)
	_, err = pool.Bind(tp)
	assert.ErrorIs(t, err, internalerr.ErrUnmappedPlaceholder)
}

func TestParseTriplePatternRejectsWrongArity(t *testing.T) {
	_, err := ParseTriplePattern("?VAR_1 TYPE_1")
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestQueryPlanVariables(t *testing.T) {
	plan, err := ParseQueryPlan([]string{"?VAR_1 TYPE_1 CLASS_1", "?VAR_1 PROPERTY_1 ?VAR_2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"?VAR_1", "?VAR_2"}, plan.Variables())
}
