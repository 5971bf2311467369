package store

import (
	"crypto/sha256"
	"strconv"

	"github.com/google/uuid"

	"github.com/smallnest/ragrouter/rag"
)

// Namespace scopes content-derived record ids.
var Namespace = uuid.MustParse("6f1c5e0a-3b1d-4c53-9d1e-5a8f2b7c9e41")

// RecordID returns the id a chunk is stored under. Without dedup every call
// yields a fresh random UUID, so ingesting the same chunk twice stores it
// twice. With dedup the id is a UUID derived from the SHA-256 of the chunk's
// source, offset and text, so re-ingestion overwrites instead.
func RecordID(doc rag.Document, dedup bool) string {
	if !dedup {
		return uuid.NewString()
	}
	return ContentID(doc.Source(), doc.Offset(), doc.Content)
}

// ContentID is the deterministic id for a chunk.
func ContentID(source string, offset int, text string) string {
	key := make([]byte, 0, len(source)+len(text)+24)
	key = append(key, source...)
	key = append(key, 0)
	key = strconv.AppendInt(key, int64(offset), 10)
	key = append(key, 0)
	key = append(key, text...)
	return uuid.NewHash(sha256.New(), Namespace, key, 5).String()
}
