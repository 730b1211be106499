// Package model defines the core agent data types.
package model

// SoulFormatVersion is stamped on every exported soul snapshot.
const SoulFormatVersion = "1.0.0"

// Action type sentinels produced by the protocol itself. Any other action
// type is domain-defined and flows through unchanged.
const (
	ActionIdle    = "IDLE"
	ActionBlocked = "BLOCKED"
	ActionError   = "ERROR"
)

// AgentState is an immutable snapshot of an agent's mutable attributes.
// Updates never modify a state in place; see agent.MergeState.
type AgentState struct {
	Mood          string             `json:"mood,omitempty"`
	Inventory     []string           `json:"inventory,omitempty"`
	Skills        map[string]float64 `json:"skills,omitempty"`
	Relationships map[string]float64 `json:"relationships,omitempty"`
}

// IsZero reports whether the state carries no data at all.
func (s AgentState) IsZero() bool {
	return s.Mood == "" && len(s.Inventory) == 0 && len(s.Skills) == 0 && len(s.Relationships) == 0
}

// MemoryItem is a single stored memory. Immutable once created.
type MemoryItem struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Type       string    `json:"type"`
	Importance float64   `json:"importance"`
	Timestamp  int64     `json:"timestamp"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Action is a proposed (or approved) agent action.
type Action struct {
	Type    string         `json:"type"`
	Target  string         `json:"target"`
	Reason  string         `json:"reason,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ValidationResult is the outcome of admission control over an action.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Valid builds a passing result.
func Valid(reason string) ValidationResult {
	return ValidationResult{Valid: true, Reason: reason}
}

// Invalid builds a failing result.
func Invalid(reason string) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason}
}

// Agent is the immutable agent aggregate. Every mutation produces a new
// value; see the agent package for the copy-constructors.
type Agent struct {
	ID       string       `json:"id"`
	Persona  string       `json:"persona"`
	State    AgentState   `json:"state"`
	Memories []MemoryItem `json:"memories,omitempty"`
	Endpoint string       `json:"endpoint"`
}

// Response is the terminal outcome of one Process invocation.
type Response struct {
	Dialogue string `json:"dialogue"`
	Action   Action `json:"action"`
	Thought  string `json:"thought"`
}

// Soul is a portable, versioned snapshot of an agent's identity,
// independent of any running agent instance.
type Soul struct {
	ID            string       `json:"id"`
	FormatVersion string       `json:"formatVersion"`
	Name          string       `json:"name"`
	Persona       string       `json:"persona"`
	State         AgentState   `json:"state"`
	Memories      []MemoryItem `json:"memories"`
}
