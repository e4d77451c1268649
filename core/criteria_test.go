package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteria(t *testing.T) {
	tests := []struct {
		name   string
		args   []any
		assert func(t *testing.T, cond *Condition)
	}{
		{
			name: "no arguments",
			args: nil,
			assert: func(t *testing.T, cond *Condition) {
				assert.Nil(t, cond)
			},
		},
		{
			name: "raw string",
			args: []any{"a = b"},
			assert: func(t *testing.T, cond *Condition) {
				assert.Equal(t, OpRaw, *cond.Operator)
				assert.Equal(t, Raw("a = b"), cond.Value)
			},
		},
		{
			name: "field and scalar",
			args: []any{"name", "Jamie"},
			assert: func(t *testing.T, cond *Condition) {
				assert.Equal(t, OpEq, *cond.Operator)
				assert.Equal(t, "name", cond.FieldName)
				assert.Equal(t, "Jamie", cond.Value)
			},
		},
		{
			name: "field and collection",
			args: []any{"id", []int64{1, 2}},
			assert: func(t *testing.T, cond *Condition) {
				assert.Equal(t, OpIn, *cond.Operator)
				assert.Equal(t, []any{int64(1), int64(2)}, cond.Value)
			},
		},
		{
			name: "field and bytes stays scalar",
			args: []any{"hash", []byte("ab")},
			assert: func(t *testing.T, cond *Condition) {
				assert.Equal(t, OpEq, *cond.Operator)
			},
		},
		{
			name: "condition passthrough",
			args: []any{Field("age").Gt(30)},
			assert: func(t *testing.T, cond *Condition) {
				assert.Equal(t, OpGt, *cond.Operator)
			},
		},
		{
			name: "unordered map is sorted by key",
			args: []any{map[string]any{"b": 2, "a": []string{"x"}}},
			assert: func(t *testing.T, cond *Condition) {
				leaves := cond.Leaves()
				require.Len(t, leaves, 2)
				assert.Equal(t, "a", leaves[0].FieldName)
				assert.Equal(t, OpIn, *leaves[0].Operator)
				assert.Equal(t, "b", leaves[1].FieldName)
				assert.Equal(t, OpEq, *leaves[1].Operator)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := Criteria(tt.args...)
			require.NoError(t, err)
			tt.assert(t, cond)
		})
	}
}

func TestCriteria_MixedOrderedMapping(t *testing.T) {
	cond, err := Criteria(D{Raw("a == b"), E{Key: "c", Value: []int{1, 2}}, E{Key: "d", Value: "v"}})
	require.NoError(t, err)

	assert.Equal(t, OpAnd, *cond.Operator)
	leaves := cond.Leaves()
	require.Len(t, leaves, 3)

	assert.Equal(t, OpRaw, *leaves[0].Operator)
	assert.Equal(t, Raw("a == b"), leaves[0].Value)

	assert.Equal(t, OpIn, *leaves[1].Operator)
	assert.Equal(t, "c", leaves[1].FieldName)
	assert.Equal(t, []any{1, 2}, leaves[1].Value)

	assert.Equal(t, OpEq, *leaves[2].Operator)
	assert.Equal(t, "d", leaves[2].FieldName)
	assert.Equal(t, "v", leaves[2].Value)
}

func TestCriteria_Invalid(t *testing.T) {
	for name, args := range map[string][]any{
		"non string field": {1, 2},
		"too many":         {"a", 1, 2},
		"unsupported":      {3.14},
		"nested mapping":   {D{D{}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Criteria(args...)
			assert.ErrorIs(t, err, ErrInvalidCriteria)
		})
	}
}
