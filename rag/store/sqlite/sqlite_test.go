package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/ragrouter/rag"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), Options{Path: filepath.Join(t.TempDir(), "vectors.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(id, content string, vec ...float32) rag.Record {
	return rag.Record{
		ID: id,
		Document: rag.Document{
			ID:        id,
			Content:   content,
			Metadata:  map[string]any{rag.MetaSource: "https://example.com/" + id, rag.MetaOffset: 3},
			CreatedAt: time.Date(2024, 6, 23, 0, 0, 0, 0, time.UTC),
		},
		Embedding: vec,
	}
}

func TestSqliteStoreUpsertSearchCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.Upsert(ctx, []rag.Record{
		record("agents", "LLM powered agents", 1, 0, 0),
		record("prompts", "prompt engineering", 0, 1, 0),
		record("attacks", "adversarial attacks", 0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	res, err := s.Search(ctx, []float32{0.1, 0.9, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "prompt engineering", res[0].Document.Content)
	assert.Equal(t, "https://example.com/prompts", res[0].Document.Source())
	assert.Equal(t, 3, res[0].Document.Offset())
	assert.Equal(t, 2024, res[0].Document.CreatedAt.Year())
	assert.Greater(t, res[0].Score, 0.9)
}

func TestSqliteStoreUpsertReplacesSameID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Upsert(ctx, []rag.Record{record("a", "old", 1, 0)})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, []rag.Record{record("a", "new", 1, 0)})
	require.NoError(t, err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, err := s.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "new", res[0].Document.Content)
}

func TestSqliteStoreEmptySearch(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Search(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, res)

	n, err := s.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSqliteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	s, err := New(ctx, Options{Path: path, TableName: "docs"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, []rag.Record{record("a", "kept", 1)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(ctx, Options{Path: path, TableName: "docs"})
	require.NoError(t, err)
	defer s.Close()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	out, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
