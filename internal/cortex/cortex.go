// Package cortex wraps the local text-generation engine behind a narrow
// interface. Generation is an opaque black box to the rest of the system;
// only prompt in, text out.
package cortex

import (
	"context"
	"fmt"
)

// Generator produces dialogue text from a prompt.
type Generator interface {
	Infer(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ModelError indicates the generation backend failed or is unavailable.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ConfigurationError indicates an invalid generation configuration,
// surfaced at construction time.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cortex config %s: %s", e.Field, e.Detail)
}

// Config holds generation settings.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopK        int
	TopP        float64
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Model:       "smollm2-135m",
		MaxTokens:   512,
		Temperature: 0.7,
		TopK:        40,
		TopP:        0.9,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.Model == "" {
		return &ConfigurationError{Field: "model", Detail: "must not be empty"}
	}
	if c.MaxTokens < 1 || c.MaxTokens > 2048 {
		return &ConfigurationError{Field: "max_tokens", Detail: "must be between 1 and 2048"}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return &ConfigurationError{Field: "temperature", Detail: "must be between 0.0 and 2.0"}
	}
	return nil
}
