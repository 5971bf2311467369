// Package config loads ragrouter settings from the environment, an optional
// .env file and an optional yaml/json config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingDBCredentials is returned when the vector database token or identifier is unset.
	ErrMissingDBCredentials = errors.New("vector database token or id is missing from environment variables")

	// ErrMissingLLMKey is returned when the router LLM API key is unset.
	ErrMissingLLMKey = errors.New("llm api key is missing from environment variables")

	// ErrUnknownBackend is returned for an unsupported store backend.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
)

// DefaultURLs is the corpus ingested when no urls are configured.
var DefaultURLs = []string{
	"https://lilianweng.github.io/posts/2023-06-23-agent/",
	"https://lilianweng.github.io/posts/2023-03-15-prompt-engineering/",
	"https://lilianweng.github.io/posts/2023-10-25-adv-attack-llm/",
}

// Config holds every setting the binary needs.
type Config struct {
	// Vector database credentials. DBID is the database identifier: a DSN for
	// postgres, a host[:port] for qdrant, a file path for sqlite.
	DBToken      string        `mapstructure:"db_token"`
	DBID         string        `mapstructure:"db_id"`
	StoreBackend string        `mapstructure:"store_backend"`
	TableName    string        `mapstructure:"table_name"`
	Dedup        bool          `mapstructure:"dedup"`
	VectorDim    int           `mapstructure:"vector_dim"`

	// Router LLM, reached through an OpenAI-compatible endpoint (Groq by default).
	LLMAPIKey  string `mapstructure:"llm_api_key"`
	LLMBaseURL string `mapstructure:"llm_base_url"`
	LLMModel   string `mapstructure:"llm_model"`

	EmbeddingProvider string `mapstructure:"embedding_provider"`
	EmbeddingModel    string `mapstructure:"embedding_model"`
	EmbeddingAPIKey   string `mapstructure:"embedding_api_key"`

	URLs           []string      `mapstructure:"urls"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	ChunkOverlap   int           `mapstructure:"chunk_overlap"`
	UseReadability bool          `mapstructure:"use_readability"`
	FetchRPS       float64       `mapstructure:"fetch_rps"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`

	WikiTopK     int    `mapstructure:"wiki_top_k"`
	WikiMaxChars int    `mapstructure:"wiki_max_chars"`
	WikiLanguage string `mapstructure:"wiki_language"`

	ScoreThreshold    float64 `mapstructure:"score_threshold"`
	RerouteOnLowScore bool    `mapstructure:"reroute_on_low_score"`

	RedisAddr string        `mapstructure:"redis_addr"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`

	HTTPAddr string `mapstructure:"http_addr"`
	LogLevel string `mapstructure:"log_level"`
}

// legacyEnv maps config keys to the bare variable names the first version of
// this tool read, so existing .env files keep working.
var legacyEnv = map[string][]string{
	"db_token":    {"DB_TOKEN", "db_token", "ASTRA_DB_APPLICATION_TOKEN"},
	"db_id":       {"DB_ID", "db_id", "ASTRA_DB_ID"},
	"llm_api_key": {"GROQ_API_KEY", "groq_api_key"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store_backend", BackendSQLite)
	v.SetDefault("table_name", "gen_ai_table")
	v.SetDefault("dedup", false)
	v.SetDefault("vector_dim", 384)
	v.SetDefault("llm_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm_model", "llama-3.1-70b-versatile")
	v.SetDefault("embedding_provider", "huggingface")
	v.SetDefault("embedding_model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedding_api_key", "")
	v.SetDefault("urls", DefaultURLs)
	v.SetDefault("chunk_size", 200)
	v.SetDefault("chunk_overlap", 10)
	v.SetDefault("use_readability", false)
	v.SetDefault("fetch_rps", 0)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("wiki_top_k", 1)
	v.SetDefault("wiki_max_chars", 400)
	v.SetDefault("wiki_language", "en")
	v.SetDefault("score_threshold", 0)
	v.SetDefault("reroute_on_low_score", false)
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
}

// Load reads configuration. path may point at a yaml, json or .env file; when
// empty, a .env file in the working directory is read if present. Environment
// variables (RAGROUTER_<KEY>, plus the legacy bare names) always win.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RAGROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		args := append([]string{key, "RAGROUTER_" + strings.ToUpper(key)}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if strings.HasSuffix(path, ".env") {
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(err) {
				return nil, fmt.Errorf("read .env: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.URLs = splitList(cfg.URLs)
	return &cfg, nil
}

// Validate checks the settings needed before any network activity: the
// vector database credentials. The memory backend needs none.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
		return nil
	case BackendSQLite, BackendPostgres, BackendQdrant:
		if c.DBToken == "" || c.DBID == "" {
			return ErrMissingDBCredentials
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.StoreBackend)
	}
}

// ValidateLLM checks that the router can be built.
func (c *Config) ValidateLLM() error {
	if c.LLMAPIKey == "" {
		return ErrMissingLLMKey
	}
	return nil
}

// splitList accepts both a real list and a single comma separated value, which
// is what an env var yields.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
