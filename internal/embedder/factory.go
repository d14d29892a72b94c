package embedder

import (
	"fmt"

	"github.com/docq-ai/docq-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ — override with Config.Dimensions.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// Config holds embedding backend configuration, resolved by the config layer.
type Config struct {
	// Backend selects the embedding provider: ollama, openai, or azure.
	Backend string
	// Endpoint is the backend base URL. Defaults per backend when empty.
	Endpoint string
	// APIKey authenticates against openai/azure backends. Unused for ollama.
	APIKey string
	// Model is the embedding model name. Defaults per backend when empty.
	Model string
	// Dimensions is the desired vector length (0 = backend default).
	Dimensions int
	// AzureAPIVersion is the Azure OpenAI API version (azure only).
	AzureAPIVersion string
}

// DefaultDimensions returns the default embedding vector size for the given
// backend name. Callers that need to size an index up front should use this
// rather than hard-coding a value; Config.Dimensions takes precedence when set.
func DefaultDimensions(backend string, override int) int {
	if override > 0 {
		return override
	}
	if backend == "ollama" {
		return defaultOllamaDimensions
	}
	return defaultOpenAIDimensions
}

// New constructs a rag.Embedder from the given config. Missing endpoint and
// model fields fall back to per-backend defaults; a missing API key for a
// hosted backend is an error here so operators find out at startup.
func New(cfg *Config) (rag.Embedder, error) {
	switch cfg.Backend {
	case "", "ollama":
		host := cfg.Endpoint
		if host == "" {
			host = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai backend requires an api key")
		}
		baseURL := cfg.Endpoint
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: DefaultDimensions("openai", cfg.Dimensions),
		}), nil

	case "azure":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an api key")
		}
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an endpoint")
		}
		apiVersion := cfg.AzureAPIVersion
		if apiVersion == "" {
			apiVersion = "2025-04-01-preview"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint + "/openai",
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: DefaultDimensions("azure", cfg.Dimensions),
			Azure:      true,
			APIVersion: apiVersion,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid: ollama, openai, azure)", cfg.Backend)
	}
}
