package loader

import (
	"context"
	"fmt"
	"maps"
	"os"
	"time"

	"github.com/smallnest/ragrouter/rag"
)

// TextLoader loads a local text file as one document.
type TextLoader struct {
	filePath string
	metadata map[string]any
}

// TextLoaderOption configures the TextLoader
type TextLoaderOption func(*TextLoader)

// WithMetadata sets additional metadata for loaded documents
func WithMetadata(metadata map[string]any) TextLoaderOption {
	return func(l *TextLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewTextLoader creates a new TextLoader
func NewTextLoader(filePath string, opts ...TextLoaderOption) *TextLoader {
	l := &TextLoader{
		filePath: filePath,
		metadata: map[string]any{
			rag.MetaSource: filePath,
			"type":         "text",
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the file.
func (l *TextLoader) Load(ctx context.Context) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", l.filePath, err)
	}

	metadata := make(map[string]any, len(l.metadata))
	maps.Copy(metadata, l.metadata)

	return []rag.Document{{
		ID:        fmt.Sprintf("text_%s", l.filePath),
		Content:   string(content),
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}}, nil
}

// MultiLoader concatenates the output of several loaders in order.
type MultiLoader []rag.DocumentLoader

// Load runs every loader and stops at the first error.
func (m MultiLoader) Load(ctx context.Context) ([]rag.Document, error) {
	var docs []rag.Document
	for _, l := range m {
		d, err := l.Load(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d...)
	}
	return docs, nil
}
