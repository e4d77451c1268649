package core

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	previous := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = previous })
}

func TestTimestamps(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	freezeClock(t, at)

	backend := newFakeBackend(KindRelational)
	records := NewModel[Record](backend, Timestamps("created_at", "updated_at"))

	_, err := records.Insert(ctx, Record{"name": "a"})
	require.NoError(t, err)
	assert.Equal(t, Record{"name": "a", "created_at": at, "updated_at": at}, backend.callsOf("Insert")[0].Data)

	_, err = records.Update(ctx, 1, Record{"name": "b"})
	require.NoError(t, err)
	assert.Equal(t, Record{"name": "b", "updated_at": at}, backend.callsOf("Update")[0].Data)
}

func TestUUIDKey(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(KindRelational)
	records := NewModel[Record](backend, Observe(BeforeCreate, UUIDKey("id")))

	id, err := records.Insert(ctx, Record{"name": "a"})
	require.NoError(t, err)
	_, parseErr := uuid.Parse(id.(string))
	assert.NoError(t, parseErr)

	id, err = records.Insert(ctx, Record{"id": "fixed", "name": "b"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
}

func TestSerializeRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(KindRelational)
	records := NewModel[Record](backend,
		Observe(BeforeCreate, Serialize("tags")),
		Observe(BeforeUpdate, Serialize("tags")),
		Observe(AfterGet, Unserialize("tags")),
	)

	id, err := records.Insert(ctx, Record{"tags": []string{"go", "sql"}})
	require.NoError(t, err)
	assert.Equal(t, `["go","sql"]`, backend.callsOf("Insert")[0].Data["tags"])

	got, err := records.AsArray().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []any{"go", "sql"}, (*got)["tags"])

	_, err = records.Update(ctx, id, Record{"tags": map[string]int{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, backend.callsOf("Update")[0].Data["tags"])
}

func TestUnserialize_LeavesInvalidJSON(t *testing.T) {
	out, err := Unserialize("blob")(context.Background(), &Payload{Data: Record{"blob": "not json"}})
	require.NoError(t, err)
	assert.Equal(t, "not json", out["blob"])
}
