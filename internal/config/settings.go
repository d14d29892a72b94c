package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docq-ai/docq-go/internal/embedder"
	"github.com/docq-ai/docq-go/internal/provider"
)

// Settings is the fully resolved runtime configuration, assembled from the
// environment after Load has applied any YAML file. Every component receives
// its slice of this struct; nothing else in the codebase reads env vars.
type Settings struct {
	// Provider is the chat model backend configuration.
	Provider provider.Config

	// Embedding is the embedding backend configuration.
	Embedding embedder.Config

	// IndexDir is the directory holding per-user index files.
	IndexDir string

	// RecordsDB is the SQLite path for documents and chunks.
	RecordsDB string

	// AnalyticsDB is the SQLite path for query events, or "disabled".
	AnalyticsDB string

	// TopK is the number of context chunks retrieved per query.
	TopK int

	// MaxContextTokens is the estimated prompt token budget.
	MaxContextTokens int

	// GenerateTimeout bounds each LLM generation call.
	GenerateTimeout time.Duration

	// ChunkSize and ChunkOverlap configure document chunking.
	ChunkSize    int
	ChunkOverlap int

	// Host and Port are the HTTP server bind address.
	Host string
	Port int

	// APIKey is the Bearer token required on API requests. Empty disables auth.
	APIKey string
}

// Resolve reads the environment into a Settings struct, applying defaults.
// Call after Load so YAML values are visible through the env.
func Resolve() (*Settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: could not determine home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".docq")

	backend := provider.Backend(getEnvOrDefault("MODEL_PROVIDER", string(provider.BackendOllama)))

	s := &Settings{
		Provider: provider.Config{
			Backend:     backend,
			MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 4096),
			Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.2),
		},
		Embedding: embedder.Config{
			Backend:         getEnvOrDefault("EMBEDDING_PROVIDER", "ollama"),
			Model:           os.Getenv("EMBEDDING_MODEL"),
			Dimensions:      getEnvInt("EMBEDDING_DIMENSIONS", 0),
			APIKey:          os.Getenv("EMBEDDING_API_KEY"),
			Endpoint:        os.Getenv("EMBEDDING_ENDPOINT"),
			AzureAPIVersion: os.Getenv("AZURE_OPENAI_API_VERSION"),
		},
		IndexDir:         getEnvOrDefault("DOCQ_INDEX_DIR", filepath.Join(dataDir, "index")),
		RecordsDB:        getEnvOrDefault("DOCQ_RECORDS_DB", filepath.Join(dataDir, "records.db")),
		AnalyticsDB:      getEnvOrDefault("DOCQ_ANALYTICS_DB", filepath.Join(dataDir, "analytics.db")),
		TopK:             getEnvInt("DOCQ_TOP_K", 8),
		MaxContextTokens: getEnvInt("DOCQ_MAX_CONTEXT_TOKENS", 0),
		GenerateTimeout:  time.Duration(getEnvInt("DOCQ_GENERATE_TIMEOUT", 60)) * time.Second,
		ChunkSize:        getEnvInt("DOCQ_CHUNK_SIZE", 0),
		ChunkOverlap:     getEnvInt("DOCQ_CHUNK_OVERLAP", 0),
		Host:             getEnvOrDefault("DOCQ_HOST", "0.0.0.0"),
		Port:             getEnvInt("DOCQ_PORT", 8080),
		APIKey:           os.Getenv("DOCQ_API_KEY"),
	}

	// Per-backend credential resolution mirrors the backend's native env vars.
	switch backend {
	case provider.BackendOllama:
		s.Provider.BaseURL = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		s.Provider.Model = getEnvOrDefault("OLLAMA_MODEL", "llama3")
	case provider.BackendOpenAI:
		s.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		s.Provider.Model = getEnvOrDefault("OPENAI_MODEL", "gpt-4o")
	case provider.BackendAzure:
		s.Provider.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		s.Provider.BaseURL = os.Getenv("AZURE_OPENAI_ENDPOINT")
		s.Provider.AzureDeployment = os.Getenv("AZURE_OPENAI_DEPLOYMENT")
		s.Provider.AzureAPIVersion = getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01")
	case provider.BackendBedrock:
		s.Provider.AWSRegion = getEnvOrDefault("AWS_REGION", "us-east-1")
		s.Provider.Model = os.Getenv("BEDROCK_MODEL_ID")
	case provider.BackendGemini:
		s.Provider.APIKey = os.Getenv("GOOGLE_API_KEY")
		s.Provider.Model = getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-pro")
	}

	return s, nil
}

// AnalyticsEnabled reports whether query analytics recording is on.
func (s *Settings) AnalyticsEnabled() bool {
	return s.AnalyticsDB != "" && s.AnalyticsDB != "disabled"
}

// Addr returns the host:port bind address for the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
