package cortex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// OllamaGenerator generates text via a local Ollama instance.
type OllamaGenerator struct {
	baseURL string
	config  Config
	client  *http.Client
}

// NewOllamaGenerator creates a generator for the configured model. The base
// URL defaults to ANIMUS_CORTEX_URL, then http://localhost:11434.
func NewOllamaGenerator(cfg Config) (*OllamaGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	baseURL := os.Getenv("ANIMUS_CORTEX_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		config:  cfg,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (g *OllamaGenerator) Infer(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = g.config.MaxTokens
	}
	body, _ := json.Marshal(ollamaGenerateRequest{
		Model:  g.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"num_predict": maxTokens,
			"temperature": g.config.Temperature,
			"top_k":       g.config.TopK,
			"top_p":       g.config.TopP,
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &ModelError{Model: g.config.Model, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &ModelError{Model: g.config.Model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", &ModelError{Model: g.config.Model, Err: fmt.Errorf("status %d: %s", resp.StatusCode, b)}
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ModelError{Model: g.config.Model, Err: err}
	}
	return result.Response, nil
}
