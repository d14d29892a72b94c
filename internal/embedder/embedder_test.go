package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func Test_OllamaEmbedder_ParsesBatchResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		resp := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			resp.Embeddings[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	got, err := emb.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 || got[1][0] != 1 {
		t.Fatalf("embeddings = %v", got)
	}
}

func Test_OllamaEmbedder_SurfacesBackendError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not found"})
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "missing"})
	_, err := emb.Embed(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected backend error message, got %v", err)
	}
}

func Test_OpenAIEmbedder_ReordersByIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		// Return data out of order; the client must sort by index.
		_, _ = w.Write([]byte(`{"data":[
			{"embedding":[2],"index":1},
			{"embedding":[1],"index":0}
		]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "text-embedding-3-small"})
	got, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Fatalf("embeddings not reordered: %v", got)
	}
}

func Test_OpenAIEmbedder_AzureModeUsesDeploymentPathAndHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/deployments/embed-dep/embeddings") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "2025-04-01-preview" {
			t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
		}
		if r.Header.Get("api-key") != "azkey" {
			t.Errorf("api-key header = %q", r.Header.Get("api-key"))
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5],"index":0}]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    srv.URL,
		APIKey:     "azkey",
		Model:      "embed-dep",
		Azure:      true,
		APIVersion: "2025-04-01-preview",
	})
	if _, err := emb.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func Test_New_BackendSelectionAndValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(&Config{Backend: "ollama"}); err != nil {
		t.Errorf("ollama: %v", err)
	}
	if _, err := New(&Config{}); err != nil {
		t.Errorf("empty backend should default to ollama: %v", err)
	}
	if _, err := New(&Config{Backend: "openai"}); err == nil {
		t.Error("openai without api key should fail")
	}
	if _, err := New(&Config{Backend: "azure", APIKey: "k"}); err == nil {
		t.Error("azure without endpoint should fail")
	}
	if _, err := New(&Config{Backend: "sentencepiece"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

func Test_DefaultDimensions(t *testing.T) {
	t.Parallel()

	if got := DefaultDimensions("ollama", 0); got != 768 {
		t.Errorf("ollama default = %d", got)
	}
	if got := DefaultDimensions("openai", 0); got != 1536 {
		t.Errorf("openai default = %d", got)
	}
	if got := DefaultDimensions("ollama", 384); got != 384 {
		t.Errorf("override ignored: %d", got)
	}
}

func Test_looksLikeChatModel(t *testing.T) {
	t.Parallel()

	if !looksLikeChatModel("Llama3:8b") {
		t.Error("llama3 should look like a chat model")
	}
	if looksLikeChatModel("nomic-embed-text") {
		t.Error("nomic-embed-text should not look like a chat model")
	}
}
