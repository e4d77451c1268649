package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"Book":        "book",
		"BookModel":   "book_model",
		"APIKeyModel": "api_key_model",
		"UserV2":      "user_v2",
		"order_item":  "order_item",
	} {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, keyOf(int32(7)), keyOf(int64(7)))
	assert.Equal(t, keyOf(7), keyOf("7"))
	assert.Equal(t, "", keyOf(nil))
}

func TestToSlice(t *testing.T) {
	assert.Equal(t, []any{1, 2}, toSlice([]int{1, 2}))
	assert.Equal(t, []any{"a"}, toSlice([1]string{"a"}))
	assert.Equal(t, []any{"x"}, toSlice("x"))
	assert.False(t, isCollection([]byte("x")))
}

func TestFoldConditionsAnd(t *testing.T) {
	assert.Nil(t, foldConditionsAnd())
	assert.Nil(t, foldConditionsAnd(nil, nil))

	single := Field("a").Eq(1)
	assert.Same(t, single, foldConditionsAnd(nil, single))

	folded := foldConditionsAnd(single, Field("b").Eq(2))
	assert.Equal(t, OpAnd, *folded.Operator)
	assert.Len(t, folded.Leaves(), 2)
}
