// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, includes .env via godotenv)
//  2. Config file (./config.yaml or ~/.lev/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Ingestion: corpus directory, ledger path, chunking and batching knobs
//   - Vector store: Chroma Cloud credentials and collection name
//   - Inference: Groq endpoint, model, sampling and timeout settings
//   - Chat: retrieval depth, memory and context bounds
//   - Storage/serve: sqlite path and HTTP listen address
//
// Sensitive fields (API keys) are masked in String()/MarshalJSON().
// Validation uses sentinel errors so callers can check with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrInvalidChunkSize indicates chunk_size is not positive.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates chunk_overlap is negative or >= chunk_size.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidBatchSize indicates batch_size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidTopK indicates top_k is not positive.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidMemoryTurns indicates max_memory_turns is not positive.
	ErrInvalidMemoryTurns = errors.New("invalid max memory turns")

	// ErrInvalidContextChars indicates max_context_chars is not positive.
	ErrInvalidContextChars = errors.New("invalid max context chars")

	// ErrInvalidTimeout indicates a timeout value is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrMissingAPIKey indicates a required API key is missing.
	// Returned by client constructors, not by Load: a missing credential
	// skips the dependent step rather than failing startup.
	ErrMissingAPIKey = errors.New("missing API key")
)

// ChromaConfig holds Chroma Cloud connection settings.
type ChromaConfig struct {
	APIKey   string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	Tenant   string `mapstructure:"tenant" json:"tenant"`
	Database string `mapstructure:"database" json:"database"`
	BaseURL  string `mapstructure:"base_url" json:"base_url"`
}

// GroqConfig holds inference endpoint settings.
type GroqConfig struct {
	APIKey         string  `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	APIURL         string  `mapstructure:"api_url" json:"api_url"`
	Model          string  `mapstructure:"model" json:"model"`
	Temperature    float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" json:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" json:"timeout_seconds"`
}

// Config stores application configuration.
type Config struct {
	// Ingestion
	ProtocolsDir string `mapstructure:"protocols_dir" json:"protocols_dir"`
	LedgerPath   string `mapstructure:"ledger_path" json:"ledger_path"`
	ChunkSize    int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	BatchSize    int    `mapstructure:"batch_size" json:"batch_size"`

	// Vector store
	Collection string       `mapstructure:"collection" json:"collection"`
	Chroma     ChromaConfig `mapstructure:"chroma" json:"chroma"`

	// Inference
	Groq GroqConfig `mapstructure:"groq" json:"groq"`

	// Chat
	TopK            int `mapstructure:"top_k" json:"top_k"`
	MaxMemoryTurns  int `mapstructure:"max_memory_turns" json:"max_memory_turns"`
	MaxContextChars int `mapstructure:"max_context_chars" json:"max_context_chars"`

	// Storage and serving
	DBPath string `mapstructure:"db_path" json:"db_path"`
	Addr   string `mapstructure:"addr" json:"addr"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values.
func Load() (*Config, error) {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".lev"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Ingestion defaults
	v.SetDefault("protocols_dir", "protocols_data")
	v.SetDefault("ledger_path", filepath.Join("processed_data", "all_chunks.json"))
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("batch_size", 100)

	// Vector store defaults
	v.SetDefault("collection", "lev_protocols")
	v.SetDefault("chroma.base_url", "https://api.trychroma.com")

	// Inference defaults
	v.SetDefault("groq.api_url", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("groq.model", "llama-3.1-8b-instant")
	v.SetDefault("groq.temperature", 0.3)
	v.SetDefault("groq.max_tokens", 800)
	v.SetDefault("groq.timeout_seconds", 40)

	// Chat defaults
	v.SetDefault("top_k", 3)
	v.SetDefault("max_memory_turns", 10)
	v.SetDefault("max_context_chars", 3000)

	// Storage and serve defaults
	v.SetDefault("db_path", "lev.db")
	v.SetDefault("addr", "127.0.0.1:8000")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets come only from the environment, never from the config file search
// path of a shared machine.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("chroma.api_key", "CHROMA_API_KEY")
	mustBind("chroma.tenant", "CHROMA_TENANT_ID")
	mustBind("chroma.database", "CHROMA_DATABASE")

	mustBind("groq.api_key", "GROQ_API_KEY")
	mustBind("groq.api_url", "GROQ_API_URL")
	mustBind("groq.timeout_seconds", "BACKGROUND_TIMEOUT")

	mustBind("protocols_dir", "LEV_PROTOCOLS_DIR")
	mustBind("ledger_path", "LEV_LEDGER_PATH")
	mustBind("db_path", "LEV_DB_PATH")
	mustBind("addr", "LEV_ADDR")
}

// Validate checks configuration invariants. API keys are deliberately not
// validated here: the pipeline and engine degrade gracefully without them.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: %d (chunk size %d)", ErrInvalidChunkOverlap, c.ChunkOverlap, c.ChunkSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.BatchSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, c.TopK)
	}
	if c.MaxMemoryTurns <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMemoryTurns, c.MaxMemoryTurns)
	}
	if c.MaxContextChars <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidContextChars, c.MaxContextChars)
	}
	if c.Groq.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: groq timeout %d", ErrInvalidTimeout, c.Groq.TimeoutSeconds)
	}
	return nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "********"

// maskSecret masks a secret string for safe logging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return maskedValue
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new secret fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.Chroma.APIKey = maskSecret(a.Chroma.APIKey)
	a.Groq.APIKey = maskSecret(a.Groq.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
