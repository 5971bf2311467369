// Package cache stores short text values, such as Wikipedia summaries, keyed
// by a normalized lookup string.
package cache

import (
	"context"
	"strings"
)

// Cache is a string key/value cache with per-implementation expiry.
type Cache interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// NormalizeKey lowercases key and collapses whitespace so trivially different
// spellings of a query share an entry.
func NormalizeKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}
