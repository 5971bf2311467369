// Package loader produces rag.Documents from web pages, local text files or
// an in-memory list.
package loader
