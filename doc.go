// Package ragrouter answers questions from one of two sources: a vector store
// built from a small set of web pages, or Wikipedia.
//
// An LLM reads each query and picks a data source through a forced tool call
// with a single enumerated field. Queries about LLM agents, prompt engineering
// and adversarial attacks go to the vector store and get the most similar
// stored chunk back. Everything else gets a short Wikipedia summary.
//
// # Packages
//
//   - config: settings from the environment and an optional .env file (viper)
//   - rag/loader, rag/splitter: fetch pages and split them into token-bounded chunks
//   - rag/embedder: HuggingFace, OpenAI or local hash embeddings, L2-normalized
//   - rag/store: memory, SQLite, PostgreSQL (pgvector) and Qdrant vector stores
//   - rag/ingest: load, split, embed and upsert in batches
//   - rag/retriever: top-k similarity search for a query
//   - tool: the Wikipedia lookup, with an optional cache
//   - cache: Redis and in-memory caches
//   - graph: the typed state graph the answer flow runs on
//   - router: the LLM router and the Answerer that dispatches to a source
//   - server, tui: web and terminal front ends
//   - metrics, log: prometheus collectors and leveled logging
//
// # Quick Start
//
//	export GROQ_API_KEY=...
//	export DB_ID=./vectors.db
//	ragrouter --query "What is chain-of-thought prompting?"
//	ragrouter --query "Who was Alan Turing?" --skip-ingest
//
// Programmatic use:
//
//	llm, _ := openai.New(
//		openai.WithToken(key),
//		openai.WithBaseURL("https://api.groq.com/openai/v1"),
//		openai.WithModel("llama-3.1-70b-versatile"),
//	)
//	answerer, _ := router.NewAnswerer(
//		router.New(llm),
//		retriever.NewVectorRetriever(vs, emb),
//		tool.NewWikipedia(),
//	)
//	ans, err := answerer.GetAnswer(ctx, "Who was Alan Turing?")
//	fmt.Println(ans.Content)
package ragrouter
