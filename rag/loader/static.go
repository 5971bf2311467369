package loader

import (
	"context"

	"github.com/smallnest/ragrouter/rag"
)

// StaticDocumentLoader loads documents from a static list
type StaticDocumentLoader struct {
	Documents []rag.Document
}

// NewStaticDocumentLoader creates a new StaticDocumentLoader
func NewStaticDocumentLoader(documents []rag.Document) *StaticDocumentLoader {
	return &StaticDocumentLoader{
		Documents: documents,
	}
}

// Load returns the static list of documents
func (l *StaticDocumentLoader) Load(_ context.Context) ([]rag.Document, error) {
	return l.Documents, nil
}
