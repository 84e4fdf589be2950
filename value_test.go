package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePreservesObjectOrder(t *testing.T) {
	v, err := Decode([]byte(`{"z":1,"a":2,"m":3}`))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())
}

func TestDecodeNestedStructures(t *testing.T) {
	v, err := Decode([]byte(`{"items":[1,2,{"n":"x"}],"ok":true,"nil":null}`))
	require.NoError(t, err)

	obj := v.(*Object)
	items, ok := obj.Get("items")
	require.True(t, ok)
	arr := items.([]interface{})
	require.Len(t, arr, 3)
	assert.Equal(t, 1.0, arr[0])

	inner := arr[2].(*Object)
	val, _ := inner.Get("n")
	assert.Equal(t, "x", val)

	ok2, _ := obj.Get("ok")
	assert.Equal(t, true, ok2)
	nilVal, present := obj.Get("nil")
	assert.True(t, present)
	assert.Nil(t, nilVal)
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	require.Error(t, err)
	assert.True(t, IsJSONError(err))
}

func TestObjectSetOverwritesInPlace(t *testing.T) {
	o := NewObject()
	o.Set("a", 1)
	o.Set("b", 2)
	o.Set("a", 99)

	assert.Equal(t, []string{"a", "b"}, o.Keys())
	v, _ := o.Get("a")
	assert.Equal(t, 99, v)
}

func TestObjectMarshalJSONPreservesOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", 1)
	o.Set("a", 2)

	b, err := o.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2}`, string(b))
}

func TestToPlainConvertsOrderedObjectsToMaps(t *testing.T) {
	v, err := Decode([]byte(`{"a":{"b":[1,2]},"c":3}`))
	require.NoError(t, err)

	plain := toPlain(v)
	m, ok := plain.(map[string]interface{})
	require.True(t, ok)

	inner, ok := m["a"].(map[string]interface{})
	require.True(t, ok)
	arr, ok := inner["b"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{1.0, 2.0}, arr)
}

func TestIsContainer(t *testing.T) {
	assert.True(t, isContainer(NewObject()))
	assert.True(t, isContainer([]interface{}{}))
	assert.False(t, isContainer("x"))
	assert.False(t, isContainer(nil))
}
