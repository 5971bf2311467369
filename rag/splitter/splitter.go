// Package splitter cuts documents into token-bounded, overlapping chunks.
package splitter

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/smallnest/ragrouter/log"
	"github.com/smallnest/ragrouter/rag"
)

// Defaults used by the ingestion command.
const (
	DefaultChunkSize    = 200
	DefaultChunkOverlap = 10
	DefaultEncoding     = "r50k_base"
)

// ErrInvalidOverlap is returned when the overlap is negative or not smaller
// than the chunk size, or the chunk size is not positive.
var ErrInvalidOverlap = errors.New("invalid chunk size or overlap")

// Splitter splits documents with langchaingo's recursive character splitter,
// measuring length in tokens.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	encoding     string
	lenFunc      func(string) int
	logger       log.Logger

	inner textsplitter.RecursiveCharacter
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithSeparators overrides the separators tried in order.
func WithSeparators(separators []string) Option {
	return func(s *Splitter) {
		s.separators = separators
	}
}

// WithEncoding selects the tiktoken encoding used to count tokens.
func WithEncoding(name string) Option {
	return func(s *Splitter) {
		s.encoding = name
	}
}

// WithLengthFunction replaces token counting with fn.
func WithLengthFunction(fn func(string) int) Option {
	return func(s *Splitter) {
		s.lenFunc = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Splitter) {
		s.logger = logger
	}
}

// New creates a Splitter. When the tiktoken encoding cannot be loaded (it is
// downloaded on first use) length falls back to the rune count.
func New(chunkSize, chunkOverlap int, opts ...Option) (*Splitter, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidOverlap, chunkSize, chunkOverlap)
	}

	s := &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   []string{"\n\n", "\n", " ", ""},
		encoding:     DefaultEncoding,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrDefault(s.logger)

	if s.lenFunc == nil {
		s.lenFunc = tokenCounter(s.encoding, s.logger)
	}

	s.inner = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
		textsplitter.WithSeparators(s.separators),
		textsplitter.WithLenFunc(s.lenFunc),
	)
	return s, nil
}

// SplitText splits text into chunks, dropping blank ones.
func (s *Splitter) SplitText(text string) ([]string, error) {
	chunks, err := s.inner.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// SplitDocuments splits every document. Each chunk copies the parent metadata
// and adds chunk_index, chunk_total, offset (byte offset in the parent) and
// parent_id. The output depends only on the input and the configuration.
func (s *Splitter) SplitDocuments(docs []rag.Document) ([]rag.Document, error) {
	var out []rag.Document
	for di, doc := range docs {
		parentID := doc.ID
		if parentID == "" {
			parentID = fmt.Sprintf("doc_%d", di)
		}

		chunks, err := s.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", parentID, err)
		}

		searchFrom := 0
		for i, chunk := range chunks {
			offset := locate(doc.Content, chunk, searchFrom)
			if offset >= 0 {
				searchFrom = offset + 1
			}

			metadata := make(map[string]any, len(doc.Metadata)+4)
			maps.Copy(metadata, doc.Metadata)
			metadata[rag.MetaChunkIndex] = i
			metadata[rag.MetaChunkTotal] = len(chunks)
			metadata[rag.MetaOffset] = offset
			metadata[rag.MetaParentID] = parentID

			out = append(out, rag.Document{
				ID:        fmt.Sprintf("%s_chunk_%d", parentID, i),
				Content:   chunk,
				Metadata:  metadata,
				CreatedAt: doc.CreatedAt,
			})
		}
	}
	return out, nil
}

// locate finds chunk in content at or after from, falling back to a search
// from the start. It returns -1 when the chunk is not a substring, which
// happens when the splitter trimmed joined pieces.
func locate(content, chunk string, from int) int {
	if from < len(content) {
		if i := strings.Index(content[from:], chunk); i >= 0 {
			return from + i
		}
	}
	return strings.Index(content, chunk)
}

var (
	encodingsMu sync.Mutex
	encodings   = map[string]*tiktoken.Tiktoken{}
)

func tokenCounter(name string, logger log.Logger) func(string) int {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()

	enc, ok := encodings[name]
	if !ok {
		var err error
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			logger.Warn("tiktoken encoding %s unavailable, counting runes instead: %v", name, err)
			return utf8.RuneCountInString
		}
		encodings[name] = enc
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}
