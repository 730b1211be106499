// Package store provides the agent registry interface and its SQLite
// implementation. The registry gives the CLI durable agents; the in-memory
// aggregates stay immutable and are rehydrated from here on demand.
package store

import (
	"context"

	"github.com/animus-ai/animus/internal/model"
)

// Registry defines durable agent storage.
type Registry interface {
	// Create persists a new agent. Fails if the id already exists.
	Create(ctx context.Context, ag model.Agent) error

	// Get returns an agent with its memories loaded.
	Get(ctx context.Context, id string) (model.Agent, error)

	// List returns all agents, newest first, without memories.
	List(ctx context.Context) ([]model.Agent, error)

	// SaveState replaces an agent's persisted state snapshot.
	SaveState(ctx context.Context, id string, state model.AgentState) error

	// AppendMemory persists one memory item for an agent.
	AppendMemory(ctx context.Context, agentID string, item model.MemoryItem) error

	// Memories returns an agent's memories in insertion order.
	Memories(ctx context.Context, agentID string) ([]model.MemoryItem, error)

	// Close closes the registry.
	Close() error
}
