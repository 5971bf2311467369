package qdrant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/smallnest/ragrouter/rag"
)

// --- Mocks ---

type mockPoints struct {
	upserted  *pb.UpsertPoints
	upsertErr error
	searched  *pb.SearchPoints
	searchRes *pb.SearchResponse
	searchErr error
	count     uint64
	countErr  error
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upserted = in
	return &pb.PointsOperationResponse{}, m.upsertErr
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.searched = in
	return m.searchRes, m.searchErr
}

func (m *mockPoints) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	return &pb.CountResponse{Result: &pb.CountResult{Count: m.count}}, m.countErr
}

type mockCollections struct {
	existing []string
	listErr  error
	created  *pb.CreateCollection
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	resp := &pb.ListCollectionsResponse{}
	for _, name := range m.existing {
		resp.Collections = append(resp.Collections, &pb.CollectionDescription{Name: name})
	}
	return resp, nil
}

func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = in
	return &pb.CollectionOperationResponse{Result: true}, nil
}

// --- Tests ---

func TestEnsureCollectionCreatesCosineCollection(t *testing.T) {
	cols := &mockCollections{}
	s := NewWithClients(&mockPoints{}, cols, "", 0)

	require.NoError(t, s.EnsureCollection(context.Background()))
	require.NotNil(t, cols.created)
	assert.Equal(t, "gen_ai_table", cols.created.GetCollectionName())
	params := cols.created.GetVectorsConfig().GetParams()
	assert.Equal(t, uint64(384), params.GetSize())
	assert.Equal(t, pb.Distance_Cosine, params.GetDistance())
}

func TestEnsureCollectionExisting(t *testing.T) {
	cols := &mockCollections{existing: []string{"gen_ai_table"}}
	s := NewWithClients(&mockPoints{}, cols, "gen_ai_table", 4)

	require.NoError(t, s.EnsureCollection(context.Background()))
	assert.Nil(t, cols.created)
}

func TestEnsureCollectionListError(t *testing.T) {
	s := NewWithClients(&mockPoints{}, &mockCollections{listErr: errors.New("rpc fail")}, "c", 4)
	assert.ErrorContains(t, s.EnsureCollection(context.Background()), "rpc fail")
}

func TestUpsertBuildsPoints(t *testing.T) {
	points := &mockPoints{}
	s := NewWithClients(points, &mockCollections{}, "gen_ai_table", 2)

	id := uuid.NewString()
	created := time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC)
	n, err := s.Upsert(context.Background(), []rag.Record{
		{
			ID: id,
			Document: rag.Document{
				Content:   "jailbreak prompts",
				Metadata:  map[string]any{rag.MetaSource: "https://example.com", rag.MetaChunkIndex: 2, "tags": []string{"a"}},
				CreatedAt: created,
			},
			Embedding: []float32{0.6, 0.8},
		},
		{ID: "not-a-uuid", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, points.upserted.GetPoints(), 2)
	first := points.upserted.GetPoints()[0]
	assert.Equal(t, id, first.GetId().GetUuid())
	assert.Equal(t, "jailbreak prompts", first.GetPayload()[payloadContent].GetStringValue())
	assert.Equal(t, int64(2), first.GetPayload()[rag.MetaChunkIndex].GetIntegerValue())
	assert.True(t, points.upserted.GetWait())

	second := points.upserted.GetPoints()[1]
	assert.Equal(t, PointID("not-a-uuid"), second.GetId().GetUuid())
	assert.Equal(t, "not-a-uuid", second.GetPayload()[payloadDocID].GetStringValue())
}

func TestUpsertError(t *testing.T) {
	s := NewWithClients(&mockPoints{upsertErr: errors.New("unavailable")}, &mockCollections{}, "c", 1)
	_, err := s.Upsert(context.Background(), []rag.Record{{ID: "a", Embedding: []float32{1}}})
	assert.ErrorContains(t, err, "unavailable")
}

func TestSearchDecodesPayload(t *testing.T) {
	points := &mockPoints{
		searchRes: &pb.SearchResponse{Result: []*pb.ScoredPoint{{
			Id:    pb.NewIDUUID("0b0e2a8e-5f55-4b3e-9d3f-2f3b8f1c7a10"),
			Score: 0.87,
			Payload: pb.NewValueMap(map[string]any{
				payloadContent:   "Chain of thought prompting",
				payloadDocID:     "chunk-7",
				payloadCreatedAt: "2023-03-15T00:00:00Z",
				rag.MetaSource:   "https://lilianweng.github.io/posts/2023-03-15-prompt-engineering/",
				rag.MetaOffset:   120,
			}),
		}}},
	}
	s := NewWithClients(points, &mockCollections{}, "gen_ai_table", 2)

	res, err := s.Search(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)

	doc := res[0].Document
	assert.Equal(t, "chunk-7", doc.ID)
	assert.Equal(t, "Chain of thought prompting", doc.Content)
	assert.Equal(t, 120, doc.Offset())
	assert.Equal(t, 2023, doc.CreatedAt.Year())
	assert.InDelta(t, 0.87, res[0].Score, 1e-6)

	assert.Equal(t, uint64(1), points.searched.GetLimit())
	assert.Equal(t, "gen_ai_table", points.searched.GetCollectionName())
}

func TestCount(t *testing.T) {
	s := NewWithClients(&mockPoints{count: 9}, &mockCollections{}, "c", 1)
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestPointID(t *testing.T) {
	id := uuid.NewString()
	assert.Equal(t, id, PointID(id))
	assert.Equal(t, PointID("chunk-1"), PointID("chunk-1"))
	assert.NotEqual(t, PointID("chunk-1"), PointID("chunk-2"))
}

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in     string
		host   string
		port   int
		useTLS bool
	}{
		{"localhost", "localhost", 6334, false},
		{"localhost:7000", "localhost", 7000, false},
		{"https://xyz.cloud.qdrant.io:6334", "xyz.cloud.qdrant.io", 6334, true},
		{"http://qdrant/", "qdrant", 6334, false},
	}
	for _, tt := range tests {
		host, port, useTLS, err := parseAddr(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.host, host, tt.in)
		assert.Equal(t, tt.port, port, tt.in)
		assert.Equal(t, tt.useTLS, useTLS, tt.in)
	}

	_, _, _, err := parseAddr("")
	assert.Error(t, err)
	_, _, _, err = parseAddr("host:abc")
	assert.Error(t, err)
}
