// Package embedding provides the text embedding contract used by memory
// recall, with providers for local Ollama and OpenAI-compatible endpoints.
// Embeddings have a fixed dimension declared up front; callers enforce the
// dimension contract at store construction, not per embed call.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// Embedder generates fixed-dimension embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}

// ModelError indicates the embedding backend failed.
type ModelError struct {
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s embedding: %v", e.Provider, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// CosineSimilarity computes cosine similarity between two vectors. Returns
// 0 for mismatched or zero-length inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Ollama is an Embedder backed by a local Ollama instance.
type Ollama struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

// NewOllama creates an Ollama embedder. The base URL defaults to
// ANIMUS_EMBED_URL, then http://localhost:11434. Known dims: all-minilm is
// 384, nomic-embed-text is 768.
func NewOllama(model string, dims int) *Ollama {
	baseURL := os.Getenv("ANIMUS_EMBED_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if dims == 0 {
		switch model {
		case "all-minilm":
			dims = 384
		default:
			dims = 768
		}
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{e.model, text})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &ModelError{Provider: "ollama", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &ModelError{Provider: "ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &ModelError{Provider: "ollama", Err: fmt.Errorf("status %d: %s", resp.StatusCode, b)}
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ModelError{Provider: "ollama", Err: err}
	}
	return result.Embedding, nil
}

func (e *Ollama) Dims() int { return e.dims }

// OpenAI is an Embedder for any OpenAI-compatible embeddings API.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	dims    int
	client  *http.Client
}

// NewOpenAI creates an OpenAI-compatible embedder.
func NewOpenAI(baseURL, apiKey, model string, dims int) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dims == 0 {
		dims = 1536
	}
	return &OpenAI{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(struct {
		Input string `json:"input"`
		Model string `json:"model"`
	}{text, e.model})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &ModelError{Provider: "openai", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &ModelError{Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &ModelError{Provider: "openai", Err: fmt.Errorf("status %d: %s", resp.StatusCode, b)}
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ModelError{Provider: "openai", Err: err}
	}
	if len(result.Data) == 0 {
		return nil, &ModelError{Provider: "openai", Err: fmt.Errorf("no embedding returned")}
	}
	return result.Data[0].Embedding, nil
}

func (e *OpenAI) Dims() int { return e.dims }
