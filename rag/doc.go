// Package rag defines the document, vector record and answer types shared by
// the ingestion and answering code, together with the interfaces each stage
// implements.
//
// The stages live in subpackages:
//
//   - loader: fetches web pages and local files into Documents
//   - splitter: cuts Documents into token-bounded overlapping chunks
//   - embedder: turns chunk text into L2-normalized vectors
//   - store: persists Records and runs similarity search (memory, sqlite, postgres, qdrant)
//   - retriever: embeds a query and returns the closest chunks
//   - ingest: runs load, split, embed and upsert end to end
//
// A typical ingestion run:
//
//	docs, _ := loader.NewWebLoader(urls).Load(ctx)
//	sp, _ := splitter.New(200, 10)
//	emb, _ := embedder.New(embedder.Config{Provider: "huggingface"})
//	vs, _ := store.Open(ctx, cfg)
//	defer vs.Close()
//
//	stats, err := ingest.New(loader.NewStaticDocumentLoader(docs), sp, emb, vs).Run(ctx)
package rag
