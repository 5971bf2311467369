package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/smallnest/ragrouter/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const promptPage = `<!DOCTYPE html>
<html lang="en"><head><title>Prompt Engineering</title></head>
<body><article>
<p>Prompt engineering, also known as in-context prompting, refers to methods for how to communicate with an LLM to steer its behavior for desired outcomes without updating the model weights.</p>
<p>Chain-of-thought prompting generates a sequence of short sentences to describe reasoning logics step by step.</p>
</article></body></html>`

// isolate runs the test in an empty directory with a clean configuration.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, name := range []string{
		"DB_TOKEN", "db_token", "ASTRA_DB_APPLICATION_TOKEN",
		"DB_ID", "db_id", "ASTRA_DB_ID",
		"GROQ_API_KEY", "groq_api_key",
		"RAGROUTER_DB_TOKEN", "RAGROUTER_DB_ID", "RAGROUTER_LLM_API_KEY", "RAGROUTER_REDIS_ADDR",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("RAGROUTER_STORE_BACKEND", "memory")
	t.Setenv("RAGROUTER_EMBEDDING_PROVIDER", "hash")
	t.Setenv("RAGROUTER_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeBackend serves the corpus page and an OpenAI-compatible chat endpoint
// that always routes to route.
func fakeBackend(t *testing.T, route string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/posts/prompt-engineering/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(promptPage))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, ok := req["tools"]; !ok {
			t.Errorf("request has no tools: %v", req)
		}
		args := fmt.Sprintf(`{"datasource":%q}`, route)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "llama-3.1-70b-versatile",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "tool_calls",
				"message": map[string]any{
					"role":    "assistant",
					"content": "",
					"tool_calls": []map[string]any{{
						"id":       "call_1",
						"type":     "function",
						"function": map[string]any{"name": "RouteQuery", "arguments": args},
					}},
				},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestQueryRequired(t *testing.T) {
	isolate(t)
	_, err := execute(t)
	assert.ErrorIs(t, err, errQueryRequired)
}

func TestMissingDBCredentials(t *testing.T) {
	isolate(t)
	t.Setenv("RAGROUTER_STORE_BACKEND", "postgres")

	_, err := execute(t, "--query", "What is prompt engineering?")
	assert.ErrorIs(t, err, config.ErrMissingDBCredentials)
}

func TestMissingLLMKey(t *testing.T) {
	isolate(t)

	_, err := execute(t, "--query", "What is prompt engineering?", "--skip-ingest")
	assert.ErrorIs(t, err, config.ErrMissingLLMKey)
}

func TestMissingLLMKeyBeforeNetwork(t *testing.T) {
	isolate(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("RAGROUTER_URLS", srv.URL+"/posts/agent/")
	t.Setenv("RAGROUTER_STORE_BACKEND", "postgres")
	t.Setenv("RAGROUTER_DB_TOKEN", "secret")
	t.Setenv("RAGROUTER_DB_ID", "postgres://ragrouter@127.0.0.1:1/ragrouter?connect_timeout=1")

	_, err := execute(t, "--query", "What is prompt engineering?")
	assert.ErrorIs(t, err, config.ErrMissingLLMKey)
	assert.Zero(t, hits.Load())
}

func TestQueryVectorStore(t *testing.T) {
	isolate(t)
	srv := fakeBackend(t, "vectorstore")
	t.Setenv("RAGROUTER_URLS", srv.URL+"/posts/prompt-engineering/")
	t.Setenv("RAGROUTER_LLM_API_KEY", "test-key")
	t.Setenv("RAGROUTER_LLM_BASE_URL", srv.URL+"/v1")

	out, err := execute(t, "--query", "What is chain-of-thought prompting?")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
	assert.NotEqual(t, "No relevant documents found.", strings.TrimSpace(out))
}

func TestQueryEmptyStore(t *testing.T) {
	isolate(t)
	srv := fakeBackend(t, "vectorstore")
	t.Setenv("RAGROUTER_LLM_API_KEY", "test-key")
	t.Setenv("RAGROUTER_LLM_BASE_URL", srv.URL+"/v1")

	out, err := execute(t, "--query", "What is prompt engineering?", "--skip-ingest")
	require.NoError(t, err)
	assert.Equal(t, "No relevant documents found.", strings.TrimSpace(out))
}

func TestQueryUnroutable(t *testing.T) {
	isolate(t)
	srv := fakeBackend(t, "web_search")
	t.Setenv("RAGROUTER_LLM_API_KEY", "test-key")
	t.Setenv("RAGROUTER_LLM_BASE_URL", srv.URL+"/v1")

	out, err := execute(t, "--query", "What's the weather?", "--skip-ingest")
	require.NoError(t, err)
	assert.Equal(t, "Could not route the question.", strings.TrimSpace(out))
}

func TestIngestFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv("RAGROUTER_STORE_BACKEND", "sqlite")
	t.Setenv("RAGROUTER_DB_TOKEN", "local")
	t.Setenv("RAGROUTER_DB_ID", filepath.Join(dir, "vectors.db"))
	t.Setenv("RAGROUTER_CHUNK_SIZE", "20")

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte(strings.Repeat("Adversarial attacks can trigger LLMs to output something undesired. ", 10)), 0o644))

	out, err := execute(t, "ingest", "--skip-urls", "--file", notes)
	require.NoError(t, err)
	assert.Contains(t, out, "Inserted ")
	assert.NotContains(t, out, "Inserted 0 ")

	// Without dedup a second run appends the same chunks again.
	out2, err := execute(t, "ingest", "--skip-urls", "--file", notes)
	require.NoError(t, err)
	assert.NotEqual(t, out, out2)
}
