// Package soul converts agent identity into a versioned, transferable
// snapshot and back. Serialization is strict: malformed input produces an
// explicit error, never a silently-empty soul.
package soul

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/animus-ai/animus/internal/model"
)

// DefaultName is used for souls exported without an explicit display name.
const DefaultName = "Agent Soul"

// SerializationError indicates a soul could not be encoded.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize soul: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError indicates input text is not a valid soul.
type DeserializationError struct {
	Detail string
	Err    error
}

func (e *DeserializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deserialize soul: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("deserialize soul: %s", e.Detail)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// New builds a soul from agent data. Pure construction; the format version
// is fixed at construction time.
func New(state model.AgentState, memories []model.MemoryItem, agentID, persona string) model.Soul {
	return model.Soul{
		ID:            agentID,
		FormatVersion: model.SoulFormatVersion,
		Name:          DefaultName,
		Persona:       persona,
		State:         state,
		Memories:      append([]model.MemoryItem(nil), memories...),
	}
}

// Serialize encodes a soul as deterministic JSON text.
func Serialize(s model.Soul) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", &SerializationError{Err: err}
	}
	return string(b), nil
}

// Deserialize decodes soul text. Returns a DeserializationError when the
// text is malformed JSON or is missing required fields; it never returns a
// partial or zeroed soul alongside a nil error.
func Deserialize(text string) (model.Soul, error) {
	if strings.TrimSpace(text) == "" {
		return model.Soul{}, &DeserializationError{Detail: "empty input"}
	}

	var s model.Soul
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return model.Soul{}, &DeserializationError{Detail: "invalid JSON", Err: err}
	}

	var missing []string
	if s.ID == "" {
		missing = append(missing, "id")
	}
	if s.FormatVersion == "" {
		missing = append(missing, "formatVersion")
	}
	if s.Persona == "" {
		missing = append(missing, "persona")
	}
	if len(missing) > 0 {
		return model.Soul{}, &DeserializationError{
			Detail: "missing required fields: " + strings.Join(missing, ", "),
		}
	}

	return s, nil
}

// Validate checks a soul for domain consistency beyond parseability.
func Validate(s model.Soul) model.ValidationResult {
	if s.ID == "" {
		return model.Invalid("Missing Soul ID")
	}
	if s.Persona == "" {
		return model.Invalid("Missing Persona")
	}
	return model.Valid("Valid Soul")
}
