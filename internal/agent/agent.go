// Package agent provides construction of agents and the pure update
// operations over them. Agents are never mutated: every operation returns a
// new value and leaves its inputs untouched.
package agent

import (
	"sort"

	"github.com/google/uuid"

	"github.com/animus-ai/animus/internal/model"
	"github.com/animus-ai/animus/internal/soul"
)

// DefaultEndpoint is used when a config or soul carries no service endpoint.
const DefaultEndpoint = "http://localhost:8080"

// Config describes a new agent.
type Config struct {
	Persona      string
	Endpoint     string
	InitialState model.AgentState
}

// New creates an agent from configuration. IDs are generated, unique, and
// immutable after creation.
func New(cfg Config) model.Agent {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return model.Agent{
		ID:       "agent_" + uuid.New().String(),
		Persona:  cfg.Persona,
		State:    cfg.InitialState,
		Endpoint: endpoint,
	}
}

// FromSoul rehydrates an agent from a portable soul snapshot, binding it to
// the given service endpoint.
func FromSoul(s model.Soul, endpoint string) model.Agent {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return model.Agent{
		ID:       s.ID,
		Persona:  s.Persona,
		State:    s.State,
		Memories: append([]model.MemoryItem(nil), s.Memories...),
		Endpoint: endpoint,
	}
}

// WithState returns a copy of the agent with its state replaced. The input
// agent is not modified.
func WithState(a model.Agent, state model.AgentState) model.Agent {
	a.State = state
	return a
}

// WithMemories returns a copy of the agent with its memory sequence
// replaced. The provided slice is copied so later caller mutations cannot
// leak into the returned agent.
func WithMemories(a model.Agent, memories []model.MemoryItem) model.Agent {
	a.Memories = append([]model.MemoryItem(nil), memories...)
	return a
}

// ExportSoul projects the agent into a portable soul snapshot. Lossless:
// id, persona, state and memories are carried through verbatim, with the
// format version stamped to the current constant.
func ExportSoul(a model.Agent) model.Soul {
	return soul.New(a.State, a.Memories, a.ID, a.Persona)
}

// MergeState applies a partial update document onto the current state.
//
// Updates are always treated as partial: a zero update returns current
// unchanged, non-zero scalars override, and collection fields are unioned
// with updates winning per key. Keys absent from updates are preserved.
// Whole-document replacement is deliberately not offered here; build a fresh
// state and use WithState instead.
func MergeState(current, updates model.AgentState) model.AgentState {
	if updates.IsZero() {
		return current
	}

	next := current
	if updates.Mood != "" {
		next.Mood = updates.Mood
	}
	next.Inventory = unionStrings(current.Inventory, updates.Inventory)
	next.Skills = mergeByKey(current.Skills, updates.Skills)
	next.Relationships = mergeByKey(current.Relationships, updates.Relationships)
	return next
}

func unionStrings(current, updates []string) []string {
	if len(updates) == 0 {
		return current
	}
	seen := make(map[string]bool, len(current)+len(updates))
	out := make([]string, 0, len(current)+len(updates))
	for _, v := range current {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range updates {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func mergeByKey(current, updates map[string]float64) map[string]float64 {
	if len(updates) == 0 {
		return current
	}
	out := make(map[string]float64, len(current)+len(updates))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}
