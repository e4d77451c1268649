package mongo

import (
	"testing"

	"github.com/leandroluk/recordkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name      string
		condition *core.Condition
		want      bson.M
	}{
		{name: "none", condition: nil, want: bson.M{}},
		{name: "equality", condition: core.Field("title").Eq("Dune"), want: bson.M{"title": "Dune"}},
		{name: "null", condition: core.Field("deleted_at").Nil(), want: bson.M{"deleted_at": bson.M{"$eq": nil}}},
		{name: "membership", condition: core.Field("_id").In(1, 2), want: bson.M{"_id": bson.M{"$in": []any{1, 2}}}},
		{
			name:      "and",
			condition: core.Field("a").Eq(1).And(core.Field("b").Gte(2)),
			want:      bson.M{"$and": []bson.M{{"a": 1}, {"b": bson.M{"$gte": 2}}}},
		},
		{
			name:      "or",
			condition: core.Field("a").Lt(1).Or(core.Field("b").Lte(2)),
			want:      bson.M{"$or": []bson.M{{"a": bson.M{"$lt": 1}}, {"b": bson.M{"$lte": 2}}}},
		},
		{
			name:      "not",
			condition: core.Field("a").Gt(1).Not(),
			want:      bson.M{"$nor": []bson.M{{"a": bson.M{"$gt": 1}}}},
		},
		{
			name:      "like",
			condition: core.Field("title").Like("Du_e%"),
			want:      bson.M{"title": primitive.Regex{Pattern: "^Du.e.*$", Options: "i"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := buildFilter(tt.condition)
			require.NoError(t, err)
			assert.Equal(t, tt.want, filter)
		})
	}
}

func TestBuildFilter_Raw(t *testing.T) {
	filter, err := buildFilter(core.RawCondition(`{"pages": {"$gt": 100}}`).And(core.Field("a").Eq("b")))
	require.NoError(t, err)

	out, err := bson.MarshalExtJSON(filter, false, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$and": [{"pages": {"$gt": 100}}, {"a": "b"}]}`, string(out))

	_, err = buildFilter(core.RawCondition("pages > 100"))
	assert.ErrorIs(t, err, core.ErrInvalidCriteria)
}

func TestLikePattern_EscapesLiterals(t *testing.T) {
	assert.Equal(t, `^a\.b\(c\).*$`, likePattern("a.b(c)%"))
}

func TestProjection(t *testing.T) {
	assert.Nil(t, projection(nil))
	assert.Equal(t, bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 0}}, projection([]string{"title"}))
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}, {Key: "title", Value: 1}}, projection([]string{"_id", "title"}))
}

func TestSortDocument(t *testing.T) {
	assert.Equal(t,
		bson.D{{Key: "year", Value: -1}, {Key: "title", Value: 1}},
		sortDocument([]core.Sort{{FieldName: "year", Order: -1}, {FieldName: "title", Order: 1}}))
}

func TestPrepareKey(t *testing.T) {
	d := New(nil, "library")
	oid := primitive.NewObjectID()

	key, err := d.PrepareKey(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, key)

	key, err = d.PrepareKey("slug")
	require.NoError(t, err)
	assert.Equal(t, "slug", key)

	key, err = d.PrepareKey(oid)
	require.NoError(t, err)
	assert.Equal(t, oid, key)
}
