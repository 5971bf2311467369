// Package store opens the vector store backing the corpus.
//
// Four backends are available: an in-process memory store, a SQLite file
// with brute-force cosine search, PostgreSQL with the pgvector extension and
// Qdrant over gRPC. All of them store records in a single fixed-name table or
// collection that accumulates across runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/rag/store/postgres"
	"github.com/smallnest/ragrouter/rag/store/qdrant"
	"github.com/smallnest/ragrouter/rag/store/sqlite"
)

// DefaultTableName is the table or collection records are written to.
const DefaultTableName = "gen_ai_table"

// Backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
)

// ErrUnknownBackend is returned by Open for an unsupported backend.
var ErrUnknownBackend = errors.New("unknown vector store backend")

// Config selects and configures a backend. DBID identifies the database
// (sqlite path, postgres DSN, qdrant host[:port]) and DBToken authenticates
// against it (postgres password, qdrant API key).
type Config struct {
	Backend    string
	TableName  string
	DBID       string
	DBToken    string
	Dimensions int
	Logger     log.Logger
}

// Open connects to the configured backend and makes sure its table or
// collection exists. The caller must Close the store.
func Open(ctx context.Context, cfg Config) (rag.VectorStore, error) {
	table := cfg.TableName
	if table == "" {
		table = DefaultTableName
	}
	logger := log.OrDefault(cfg.Logger)

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil

	case BackendSQLite, "":
		s, err := sqlite.New(ctx, sqlite.Options{Path: cfg.DBID, TableName: table})
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite vector store %s (table %s)", cfg.DBID, table)
		return s, nil

	case BackendPostgres:
		s, err := postgres.New(ctx, postgres.Options{
			ConnString: cfg.DBID,
			Password:   cfg.DBToken,
			TableName:  table,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres vector store (table %s)", table)
		return s, nil

	case BackendQdrant:
		s, err := qdrant.New(ctx, qdrant.Options{
			Addr:       cfg.DBID,
			APIKey:     cfg.DBToken,
			Collection: table,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using qdrant vector store %s (collection %s)", cfg.DBID, table)
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
