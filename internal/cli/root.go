// Package cli implements the animus CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/animus-ai/animus/internal/config"
	"github.com/animus-ai/animus/internal/cortex"
	"github.com/animus-ai/animus/internal/embedding"
	"github.com/animus-ai/animus/internal/protocol"
	"github.com/animus-ai/animus/internal/store"
)

var (
	configPath   string
	endpointFlag string
	dbFlag       string
	verboseFlag  bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "animus",
	Short: "Neuro-symbolic game agent protocol client",
	Long:  "Coordinates autonomous game agents: remote directives and verdicts, local generation, and rule-based admission control.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: $ANIMUS_CONFIG or ~/.animus/animus.yaml)")
	RootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Policy service endpoint override")
	RootCmd.PersistentFlags().StringVarP(&dbFlag, "db", "d", "", "Database path override")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging")
}

func loadConfig() config.Config {
	path := configPath
	if path == "" {
		path = os.Getenv("ANIMUS_CONFIG")
	}
	if path == "" {
		home, _ := os.UserHomeDir()
		path = home + "/.animus/animus.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		exitErr("load config", err)
	}
	if endpointFlag != "" {
		cfg.Endpoint = endpointFlag
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	return cfg
}

func newLogger() *zap.Logger {
	if verboseFlag {
		l, _ := zap.NewDevelopment()
		return l
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	l, _ := cfg.Build()
	return l
}

func openRegistry(cfg config.Config) store.Registry {
	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		exitErr("open registry", err)
	}
	return s
}

func newPolicyClient(cfg config.Config) *protocol.Client {
	return protocol.NewClient(cfg.Endpoint, cfg.AuthToken, cfg.Timeout())
}

func newGenerator(cfg config.Config) cortex.Generator {
	if cfg.Cortex.Provider != "ollama" {
		return cortex.TemplateGenerator{}
	}
	gen, err := cortex.NewOllamaGenerator(cortex.Config{
		Model:       cfg.Cortex.Model,
		MaxTokens:   cfg.Cortex.MaxTokens,
		Temperature: cfg.Cortex.Temperature,
		TopK:        40,
		TopP:        0.9,
	})
	if err != nil {
		exitErr("cortex config", err)
	}
	return gen
}

// newEmbedder builds the recall embedder selected by the embedding config.
// Returns nil when no provider is configured; recall then falls back to
// recency ordering.
func newEmbedder(cfg config.Config) embedding.Embedder {
	switch cfg.Embedding.Provider {
	case "ollama":
		model := cfg.Embedding.Model
		if model == "" {
			model = "all-minilm"
		}
		return embedding.NewOllama(model, cfg.Embedding.Dims)
	case "openai":
		return embedding.NewOpenAI(os.Getenv("ANIMUS_EMBED_URL"), os.Getenv("OPENAI_API_KEY"),
			cfg.Embedding.Model, cfg.Embedding.Dims)
	default:
		return nil
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
