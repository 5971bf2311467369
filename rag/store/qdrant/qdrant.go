// Package qdrant stores vector records in a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/smallnest/ragrouter/rag"
)

// Payload keys the document fields are stored under.
const (
	payloadContent   = "content"
	payloadDocID     = "doc_id"
	payloadCreatedAt = "created_at"
)

// pointsAPI is the part of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// collectionsAPI is the part of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store implements rag.VectorStore on a Qdrant collection with cosine distance.
type Store struct {
	client      *pb.Client
	points      pointsAPI
	collections collectionsAPI
	collection  string
	dimensions  int
}

// Options configures the connection.
type Options struct {
	// Addr is host[:port] of the gRPC endpoint, optionally prefixed with
	// https:// to enable TLS. The port defaults to 6334.
	Addr       string
	APIKey     string
	Collection string // Default "gen_ai_table"
	Dimensions int    // Default 384
}

// New connects to Qdrant and creates the collection if it doesn't exist.
func New(ctx context.Context, opts Options) (*Store, error) {
	host, port, useTLS, err := parseAddr(opts.Addr)
	if err != nil {
		return nil, err
	}

	client, err := pb.NewClient(&pb.Config{
		Host:                   host,
		Port:                   port,
		APIKey:                 opts.APIKey,
		UseTLS:                 useTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect %s: %w", opts.Addr, err)
	}

	s := NewWithClients(client.GetPointsClient(), client.GetCollectionsClient(), opts.Collection, opts.Dimensions)
	s.client = client
	if err := s.EnsureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// NewWithClients creates a store over existing gRPC clients.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, dimensions int) *Store {
	if collection == "" {
		collection = "gen_ai_table"
	}
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Store{
		points:      points,
		collections: collections,
		collection:  collection,
		dimensions:  dimensions,
	}
}

func parseAddr(addr string) (host string, port int, useTLS bool, err error) {
	port = 6334
	switch {
	case strings.HasPrefix(addr, "https://"):
		useTLS = true
		addr = strings.TrimPrefix(addr, "https://")
	case strings.HasPrefix(addr, "http://"):
		addr = strings.TrimPrefix(addr, "http://")
	}
	addr = strings.TrimSuffix(addr, "/")
	if addr == "" {
		return "", 0, false, fmt.Errorf("qdrant: address is required")
	}

	h, p, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		return addr, port, useTLS, nil
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, false, fmt.Errorf("qdrant: invalid port %q: %w", p, err)
	}
	return h, port, useTLS, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (s *Store) EnsureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
			Size:     uint64(s.dimensions),
			Distance: pb.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", s.collection, err)
	}
	return nil
}

// PointID maps a record id to a Qdrant point id. Qdrant only accepts UUIDs
// and integers, so other ids are hashed into a UUID.
func PointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

// Upsert implements rag.VectorStore.
func (s *Store) Upsert(ctx context.Context, records []rag.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload, err := toPayload(r)
		if err != nil {
			return 0, fmt.Errorf("qdrant: payload for %s: %w", r.ID, err)
		}
		points[i] = &pb.PointStruct{
			Id:      pb.NewIDUUID(PointID(r.ID)),
			Vectors: pb.NewVectorsDense(r.Embedding),
			Payload: payload,
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: upsert %d points: %w", len(records), err)
	}
	return len(records), nil
}

// Search implements rag.VectorStore.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]rag.SearchResult, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload:    pb.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	results := make([]rag.SearchResult, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		results = append(results, rag.SearchResult{
			Document: fromPayload(p.GetId().GetUuid(), p.GetPayload()),
			Score:    float64(p.GetScore()),
		})
	}
	return results, nil
}

// Count implements rag.VectorStore.
func (s *Store) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func toPayload(r rag.Record) (map[string]*pb.Value, error) {
	m := make(map[string]any, len(r.Document.Metadata)+3)
	for k, v := range r.Document.Metadata {
		m[k] = normalizeValue(v)
	}
	m[payloadContent] = r.Document.Content
	m[payloadDocID] = r.ID
	if !r.Document.CreatedAt.IsZero() {
		m[payloadCreatedAt] = r.Document.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return pb.TryValueMap(m)
}

// normalizeValue converts values the qdrant value builder rejects.
func normalizeValue(v any) any {
	switch tv := v.(type) {
	case nil, bool, int, int32, int64, uint, uint32, uint64, float32, float64, string, []byte:
		return v
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, x := range tv {
			out[k] = normalizeValue(x)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, x := range tv {
			out[i] = normalizeValue(x)
		}
		return out
	case []string:
		out := make([]any, len(tv))
		for i, x := range tv {
			out[i] = x
		}
		return out
	case time.Time:
		return tv.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func fromPayload(pointID string, payload map[string]*pb.Value) rag.Document {
	doc := rag.Document{ID: pointID, Metadata: make(map[string]any, len(payload))}
	for k, v := range payload {
		switch k {
		case payloadContent:
			doc.Content = v.GetStringValue()
		case payloadDocID:
			doc.ID = v.GetStringValue()
		case payloadCreatedAt:
			if t, err := time.Parse(time.RFC3339Nano, v.GetStringValue()); err == nil {
				doc.CreatedAt = t
			}
		default:
			doc.Metadata[k] = valueToAny(v)
		}
	}
	return doc
}

func valueToAny(v *pb.Value) any {
	switch kind := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_IntegerValue:
		return int(kind.IntegerValue)
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_StructValue:
		out := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, f := range kind.StructValue.GetFields() {
			out[k] = valueToAny(f)
		}
		return out
	case *pb.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, len(values))
		for i, x := range values {
			out[i] = valueToAny(x)
		}
		return out
	default:
		return nil
	}
}
