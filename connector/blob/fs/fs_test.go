package fs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	require.NoError(t, s.Open(context.Background()))
	return s
}

func writeString(t *testing.T, s *Store, uri, contents string) {
	t.Helper()
	w, err := s.OpenWrite(context.Background(), uri)
	require.NoError(t, err)
	_, err = io.WriteString(w, contents)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestStoreWriteThenRead(t *testing.T) {
	s := newTestStore(t)
	writeString(t, s, "a/b.txt", "hello")

	r, err := s.OpenRead(context.Background(), "a/b.txt")
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestStoreExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	require.False(t, ok)

	writeString(t, s, "a/b.txt", "x")

	ok, err = s.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStoreListNonRecursive(t *testing.T) {
	s := newTestStore(t)
	writeString(t, s, "a/one.txt", "1")
	writeString(t, s, "a/two.txt", "2")
	writeString(t, s, "a/sub/three.txt", "3")

	entries, err := s.List(context.Background(), "a", false)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var sawDir bool
	for _, e := range entries {
		if e.IsDirectory {
			sawDir = true
			require.Equal(t, "a/sub", e.URI)
		}
	}
	require.True(t, sawDir)
}

func TestStoreListRecursive(t *testing.T) {
	s := newTestStore(t)
	writeString(t, s, "a/one.txt", "1")
	writeString(t, s, "a/sub/two.txt", "22")

	entries, err := s.List(context.Background(), "a", true)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.False(t, e.IsDirectory)
	}
}

func TestStoreListMissingPrefixReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.List(context.Background(), "missing", true)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStoreResolveRejectsEscape(t *testing.T) {
	s := newTestStore(t)
	_, err := s.OpenRead(context.Background(), "../escape.txt")
	require.Error(t, err)
}
