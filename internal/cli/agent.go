package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/animus-ai/animus/internal/agent"
	"github.com/animus-ai/animus/internal/bridge"
	"github.com/animus-ai/animus/internal/config"
	"github.com/animus-ai/animus/internal/memory"
	"github.com/animus-ai/animus/internal/model"
	"github.com/animus-ai/animus/internal/protocol"
	"github.com/animus-ai/animus/internal/store"
)

// recallLimit bounds how many recalled memories ride along as world context.
const recallLimit = 3

func init() {
	agentCmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage and run agents",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		Run:   runAgentList,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create and register an agent",
		Run:   runAgentCreate,
	}
	createCmd.Flags().StringP("persona", "p", "", "Agent persona (required)")
	createCmd.MarkFlagRequired("persona")

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Run one input through the agent protocol",
		Run:   runAgentProcess,
	}
	processCmd.Flags().String("id", "", "Agent id (required)")
	processCmd.Flags().StringP("input", "i", "", "Input text (required)")
	processCmd.Flags().StringToString("context", nil, "World context key=value pairs")
	processCmd.Flags().String("rules", "", "Local rule preset (e.g. rpg)")
	processCmd.MarkFlagRequired("id")
	processCmd.MarkFlagRequired("input")

	agentCmd.AddCommand(listCmd, createCmd, processCmd)
	RootCmd.AddCommand(agentCmd)
}

func runAgentList(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	reg := openRegistry(cfg)
	defer reg.Close()

	agents, err := reg.List(cmd.Context())
	if err != nil {
		exitErr("list agents", err)
	}
	if len(agents) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(agents, "", "  ")
	fmt.Println(string(b))
}

func runAgentCreate(cmd *cobra.Command, args []string) {
	persona, _ := cmd.Flags().GetString("persona")
	cfg := loadConfig()
	reg := openRegistry(cfg)
	defer reg.Close()

	ag := agent.New(agent.Config{
		Persona:  persona,
		Endpoint: cfg.Endpoint,
	})
	if err := reg.Create(cmd.Context(), ag); err != nil {
		exitErr("create agent", err)
	}

	b, _ := json.MarshalIndent(ag, "", "  ")
	fmt.Println(string(b))
}

func runAgentProcess(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	input, _ := cmd.Flags().GetString("input")
	worldCtx, _ := cmd.Flags().GetStringToString("context")
	preset, _ := cmd.Flags().GetString("rules")

	cfg := loadConfig()
	logger := newLogger()
	defer logger.Sync()

	reg := openRegistry(cfg)
	defer reg.Close()

	ag, err := reg.Get(cmd.Context(), id)
	if err != nil {
		exitErr("load agent", err)
	}

	memStore, err := newMemoryStore(cfg, ag)
	if err != nil {
		exitErr("memory config", err)
	}
	worldCtx = withRecall(cmd.Context(), memStore, input, worldCtx)

	var rules []bridge.Rule
	switch strings.ToLower(preset) {
	case "":
	case "rpg":
		rules = bridge.RPGRules()
	default:
		exitErr("rules", fmt.Errorf("unknown preset %q", preset))
	}

	opts := []protocol.Option{protocol.WithLogger(logger)}
	if len(rules) > 0 {
		opts = append(opts, protocol.WithRules(rules))
		registry := bridge.NewRegistry(cfg.Endpoint, cfg.AuthToken, logger)
		for _, rule := range rules {
			registry.RegisterAsync(rule)
		}
	}

	orch := protocol.New(newPolicyClient(cfg), newGenerator(cfg), opts...)
	resp := orch.Process(cmd.Context(), ag, input, worldCtx)

	if resp.Action.Type != model.ActionError {
		rememberExchange(cmd.Context(), reg, memStore, ag.ID, input, resp, logger)
	}

	b, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(b))

	if resp.Action.Type == model.ActionError {
		os.Exit(1)
	}
}

// newMemoryStore loads the agent's persisted memories into a store value,
// with the embedder selected by the embedding config.
func newMemoryStore(cfg config.Config, ag model.Agent) (memory.Store, error) {
	emb := newEmbedder(cfg)
	memCfg := memory.DefaultConfig()
	if emb != nil {
		memCfg.VectorDim = emb.Dims()
	}
	s, err := memory.New(memCfg, emb)
	if err != nil {
		return memory.Store{}, err
	}
	for _, item := range ag.Memories {
		s = s.Add(item)
	}
	return s, nil
}

// withRecall merges the memories most relevant to the input into the world
// context sent with the directive request. The caller's map is not modified.
func withRecall(ctx context.Context, s memory.Store, input string, worldCtx map[string]string) map[string]string {
	recalled := s.Recall(ctx, input, recallLimit)
	if len(recalled) == 0 {
		return worldCtx
	}
	out := make(map[string]string, len(worldCtx)+len(recalled))
	for k, v := range worldCtx {
		out[k] = v
	}
	for i, item := range recalled {
		out[fmt.Sprintf("memory_%d", i+1)] = item.Text
	}
	return out
}

// rememberExchange records the finished exchange as a new memory and
// persists it to the registry. Memory failures never fail the command.
func rememberExchange(ctx context.Context, reg store.Registry, s memory.Store, agentID, input string, resp model.Response, logger *zap.Logger) {
	text := fmt.Sprintf("Heard %q and replied %q", input, resp.Dialogue)
	next, err := s.Remember(ctx, text, "exchange", 0.5)
	if err != nil {
		logger.Warn("memory write failed", zap.Error(err))
		return
	}
	item := next.Items[len(next.Items)-1]
	if err := reg.AppendMemory(ctx, agentID, item); err != nil {
		logger.Warn("memory persist failed", zap.Error(err))
	}
}
