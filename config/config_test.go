package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gen_ai_table", cfg.TableName)
	assert.Equal(t, 200, cfg.ChunkSize)
	assert.Equal(t, 10, cfg.ChunkOverlap)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.LLMModel)
	assert.Equal(t, DefaultURLs, cfg.URLs)
	assert.Equal(t, 1, cfg.WikiTopK)
	assert.Equal(t, 400, cfg.WikiMaxChars)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.False(t, cfg.Dedup)
	assert.False(t, cfg.RerouteOnLowScore)
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_TOKEN", "tok")
	t.Setenv("DB_ID", "db-1")
	t.Setenv("GROQ_API_KEY", "gsk")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.DBToken)
	assert.Equal(t, "db-1", cfg.DBID)
	assert.Equal(t, "gsk", cfg.LLMAPIKey)
}

func TestLoadPrefixedEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RAGROUTER_STORE_BACKEND", "memory")
	t.Setenv("RAGROUTER_URLS", "https://a.example, https://b.example")
	t.Setenv("RAGROUTER_CHUNK_SIZE", "50")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.URLs)
	assert.Equal(t, 50, cfg.ChunkSize)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_TOKEN=from-file\nDB_ID=file-db\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DBToken)
	assert.Equal(t, "file-db", cfg.DBID)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "ragrouter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_backend: qdrant\ntable_name: docs\ndedup: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendQdrant, cfg.StoreBackend)
	assert.Equal(t, "docs", cfg.TableName)
	assert.True(t, cfg.Dedup)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"memory needs nothing", Config{StoreBackend: BackendMemory}, nil},
		{"sqlite needs a path", Config{StoreBackend: BackendSQLite, DBToken: "t"}, ErrMissingDBCredentials},
		{"sqlite without token", Config{StoreBackend: BackendSQLite, DBID: "x.db"}, ErrMissingDBCredentials},
		{"sqlite ok", Config{StoreBackend: BackendSQLite, DBToken: "t", DBID: "x.db"}, nil},
		{"postgres without token", Config{StoreBackend: BackendPostgres, DBID: "dsn"}, ErrMissingDBCredentials},
		{"qdrant without id", Config{StoreBackend: BackendQdrant, DBToken: "k"}, ErrMissingDBCredentials},
		{"qdrant ok", Config{StoreBackend: BackendQdrant, DBToken: "k", DBID: "localhost:6334"}, nil},
		{"unknown backend", Config{StoreBackend: "cassandra"}, ErrUnknownBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateLLM(t *testing.T) {
	assert.ErrorIs(t, (&Config{}).ValidateLLM(), ErrMissingLLMKey)
	assert.NoError(t, (&Config{LLMAPIKey: "k"}).ValidateLLM())
}
