package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShapeWrapTrueAlwaysReturnsSlice(t *testing.T) {
	matches := []Match{{Path: []string{"$", "a"}, Value: 7.0}}
	out := shape(matches, ResultValue, true, false, nil)
	assert.Equal(t, []interface{}{7.0}, out)
}

func TestShapeWrapFalseUnwrapsSingleMatch(t *testing.T) {
	matches := []Match{{Path: []string{"$", "a"}, Value: 7.0}}
	out := shape(matches, ResultValue, false, false, nil)
	assert.Equal(t, 7.0, out)
}

func TestShapeWrapFalseKeepsMultiMatchAsSlice(t *testing.T) {
	matches := []Match{
		{Path: []string{"$", "a", "0"}, Value: 1.0, HasArrExpr: true},
		{Path: []string{"$", "a", "1"}, Value: 2.0, HasArrExpr: true},
	}
	out := shape(matches, ResultValue, false, false, nil)
	assert.Equal(t, []interface{}{1.0, 2.0}, out)
}

func TestShapeWrapFalseNoMatchesReturnsNotFound(t *testing.T) {
	out := shape(nil, ResultValue, false, false, nil)
	assert.True(t, IsNotFoundResult(out))
}

func TestShapeFlattenSpreadsNestedArrays(t *testing.T) {
	matches := []Match{
		{Path: []string{"$", "a"}, Value: []interface{}{1.0, 2.0}},
		{Path: []string{"$", "b"}, Value: 3.0},
	}
	out := shape(matches, ResultValue, true, true, nil)
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, out)
}

func TestShapePathResultType(t *testing.T) {
	matches := []Match{{Path: []string{"$", "store", "0"}, Value: "x"}}
	out := shape(matches, ResultPath, true, false, nil)
	assert.Equal(t, []interface{}{"$['store'][0]"}, out)
}

func TestShapePointerResultType(t *testing.T) {
	matches := []Match{{Path: []string{"$", "a/b", "0"}, Value: "x"}}
	out := shape(matches, ResultPointer, true, false, nil)
	assert.Equal(t, []interface{}{"/a~1b/0"}, out)
}

func TestShapeAllResultType(t *testing.T) {
	matches := []Match{{
		Path:           []string{"$", "a"},
		Value:          1.0,
		Parent:         map[string]interface{}{"a": 1.0},
		ParentProperty: "a",
	}}
	out := shape(matches, ResultAll, true, false, nil)
	all := out.([]interface{})[0].(AllResult)
	assert.Equal(t, "$['a']", all.Path)
	assert.Equal(t, "/a", all.Pointer)
	assert.Equal(t, 1.0, all.Value)
	assert.Equal(t, "a", all.ParentProperty)
}

func TestShapeInvokesCallbackPerMatch(t *testing.T) {
	var kinds []string
	matches := []Match{
		{Path: []string{"$", "a"}, Value: 1.0},
		{Path: []string{"$", "a"}, Value: "a", IsProperty: true},
	}
	shape(matches, ResultValue, true, false, func(value interface{}, kind string, m Match) {
		kinds = append(kinds, kind)
	})
	assert.Equal(t, []string{"value", "property"}, kinds)
}

func TestJSONPointerEscaping(t *testing.T) {
	assert.Equal(t, "", jsonPointer([]string{"$"}))
	assert.Equal(t, "/a~0b", jsonPointer([]string{"$", "a~b"}))
	assert.Equal(t, "/a~1b", jsonPointer([]string{"$", "a/b"}))
	assert.Equal(t, "/x/0/y", jsonPointer([]string{"$", "x", "0", "y"}))
}
