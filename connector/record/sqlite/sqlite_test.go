package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/connector"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(":memory:")
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestStoreWriteBatchThenRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteBatch(ctx, []connector.Record{
		{Key: "a", Value: []byte("hello"), Attributes: map[string]string{"kind": "greeting"}},
	}))

	rec, err := s.Read(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), rec.Value)
	require.Equal(t, "greeting", rec.Attributes["kind"])
}

func TestStoreWriteBatchUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteBatch(ctx, []connector.Record{{Key: "a", Value: []byte("v1")}}))
	require.NoError(t, s.WriteBatch(ctx, []connector.Record{{Key: "a", Value: []byte("v2")}}))

	rec, err := s.Read(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), rec.Value)
}

func TestStoreReadMissingKey(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Read(context.Background(), "missing")
	require.Error(t, err)
}
