// Package postgres stores vector records in PostgreSQL using the pgvector
// extension and its cosine distance operator.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/ragrouter/rag"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements rag.VectorStore using PostgreSQL and pgvector
type Store struct {
	pool       DBPool
	tableName  string
	dimensions int
}

// Options configuration for Postgres connection
type Options struct {
	ConnString string
	// Password overrides the password in ConnString when set.
	Password   string
	TableName  string // Default "gen_ai_table"
	Dimensions int    // Default 384
}

// New connects to Postgres and creates the extension and table if needed.
func New(ctx context.Context, opts Options) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	if opts.Password != "" {
		poolCfg.ConnConfig.Password = opts.Password
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := NewWithPool(pool, opts.TableName, opts.Dimensions)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool creates a store with an existing pool
// Useful for testing with mocks
func NewWithPool(pool DBPool, tableName string, dimensions int) *Store {
	if tableName == "" {
		tableName = "gen_ai_table"
	}
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Store{
		pool:       pool,
		tableName:  tableName,
		dimensions: dimensions,
	}
}

// InitSchema creates the pgvector extension and the table if they don't exist
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`, s.tableName, s.dimensions)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Upsert implements rag.VectorStore.
func (s *Store) Upsert(ctx context.Context, records []rag.Record) (int, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4::vector, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			created_at = EXCLUDED.created_at
	`, s.tableName)

	written := 0
	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Document.Metadata)
		if err != nil {
			return written, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		createdAt := r.Document.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := s.pool.Exec(ctx, query, r.ID, r.Document.Content, metadataJSON, VectorLiteral(r.Embedding), createdAt); err != nil {
			return written, fmt.Errorf("failed to upsert record %s: %w", r.ID, err)
		}
		written++
	}
	return written, nil
}

// Search implements rag.VectorStore. The score is 1 minus the pgvector
// cosine distance.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]rag.SearchResult, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata, created_at, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, VectorLiteral(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	defer rows.Close()

	var results []rag.SearchResult
	for rows.Next() {
		var (
			doc          rag.Document
			metadataJSON []byte
			score        float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &doc.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		results = append(results, rag.SearchResult{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// Count implements rag.VectorStore.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.tableName)
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(n), nil
}

// VectorLiteral formats v in pgvector's text representation.
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
