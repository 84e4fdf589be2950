package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePathBasicSteps(t *testing.T) {
	steps, err := compilePath("$.store.book[0].title")
	require.NoError(t, err)

	require.Len(t, steps, 5)
	assert.Equal(t, stepRoot, steps[0].kind)
	assert.Equal(t, stepChild, steps[1].kind)
	assert.Equal(t, "store", steps[1].key)
	assert.Equal(t, stepChild, steps[2].kind)
	assert.Equal(t, "book", steps[2].key)
	assert.Equal(t, stepIndex, steps[3].kind)
	assert.Equal(t, []int{0}, steps[3].indices)
	assert.Equal(t, stepChild, steps[4].kind)
	assert.Equal(t, "title", steps[4].key)
}

func TestCompilePathWildcardAndDescendant(t *testing.T) {
	steps, err := compilePath("$..book[*].author")
	require.NoError(t, err)

	require.Len(t, steps, 5)
	assert.Equal(t, stepDescendant, steps[1].kind)
	assert.Equal(t, stepChild, steps[2].kind)
	assert.Equal(t, "book", steps[2].key)
}

func TestCompilePathParentAndPropertyName(t *testing.T) {
	steps, err := compilePath("$.a.b^^~")
	require.NoError(t, err)

	require.Len(t, steps, 6)
	assert.Equal(t, stepParent, steps[3].kind)
	assert.Equal(t, stepParent, steps[4].kind)
	assert.Equal(t, stepPropertyName, steps[5].kind)

	steps, err = compilePath("$.a.b^~")
	require.NoError(t, err)
	require.Len(t, steps, 5)
	assert.Equal(t, stepParent, steps[3].kind)
	assert.Equal(t, stepPropertyName, steps[4].kind)
}

func TestCompilePathLiteralPropertyBypassesOperators(t *testing.T) {
	steps, err := compilePath("$.`a.b[0]`")
	require.NoError(t, err)

	require.Len(t, steps, 2)
	assert.Equal(t, stepLiteralProperty, steps[1].kind)
	assert.Equal(t, "a.b[0]", steps[1].key)
}

func TestCompilePathTypePredicate(t *testing.T) {
	steps, err := compilePath("$.items[*]@string()")
	require.NoError(t, err)

	last := steps[len(steps)-1]
	assert.Equal(t, stepTypePredicate, last.kind)
	assert.Equal(t, "string", last.key)
}

func TestCompilePathUnknownTypePredicate(t *testing.T) {
	_, err := compilePath("$.items@bogus()")
	require.Error(t, err)
	assert.True(t, IsPathError(err))
}

func TestCompilePathFilterAndScript(t *testing.T) {
	steps, err := compilePath("$.items[?(@.n>1)][(@.length-1)]")
	require.NoError(t, err)

	require.Len(t, steps, 4)
	assert.Equal(t, stepFilter, steps[2].kind)
	assert.Equal(t, "@.n>1", steps[2].expr)
	assert.Equal(t, stepScript, steps[3].kind)
	assert.Equal(t, "@.length-1", steps[3].expr)
}

func TestCompilePathUnionIndicesAndKeys(t *testing.T) {
	steps, err := compilePath("$.items[0,2,4]")
	require.NoError(t, err)
	assert.Equal(t, stepUnion, steps[2].kind)
	assert.Equal(t, []int{0, 2, 4}, steps[2].indices)

	steps, err = compilePath("$.store['book','bicycle']")
	require.NoError(t, err)
	assert.Equal(t, stepUnion, steps[2].kind)
	assert.Equal(t, []string{"book", "bicycle"}, steps[2].keys)
}

func TestCompilePathSlice(t *testing.T) {
	steps, err := compilePath("$.items[1:4:2]")
	require.NoError(t, err)

	s := steps[2]
	require.Equal(t, stepSlice, s.kind)
	require.NotNil(t, s.slice[0])
	require.NotNil(t, s.slice[1])
	require.NotNil(t, s.slice[2])
	assert.Equal(t, 1, *s.slice[0])
	assert.Equal(t, 4, *s.slice[1])
	assert.Equal(t, 2, *s.slice[2])
}

func TestCompilePathRejectsMissingRoot(t *testing.T) {
	_, err := compilePath("store.book")
	require.Error(t, err)
	assert.True(t, IsPathError(err))
}

func TestCompilePathRejectsEmpty(t *testing.T) {
	_, err := compilePath("   ")
	require.Error(t, err)
}

func TestStepsToStringRoundTrip(t *testing.T) {
	steps, err := compilePath("$.store.book[0]")
	require.NoError(t, err)
	assert.Equal(t, "$['store']['book'][0]", stepsToString(steps))
}

func TestStepsToStringOmitsNonLocatingSteps(t *testing.T) {
	steps, err := compilePath("$.a^~@string()")
	require.NoError(t, err)
	assert.Equal(t, "$['a']", stepsToString(steps))
}

func TestFindBracketEndHandlesNestedFilterIndex(t *testing.T) {
	steps, err := compilePath("$.items[?(@.arr[0]>1)]")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, stepFilter, steps[2].kind)
	assert.Equal(t, "@.arr[0]>1", steps[2].expr)
}
