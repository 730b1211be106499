package cortex

import (
	"context"
	"fmt"
	"strings"
)

// TemplateGenerator is a deterministic generator that requires no model
// backend. It echoes the directive carried in the prompt as a first-person
// sentence, which keeps the protocol usable on hosts without a local model.
type TemplateGenerator struct{}

// Infer scans the prompt for "Instruction:" and "Reason:" lines (the format
// used by the orchestrator's prompt builder) and renders them as dialogue.
func (TemplateGenerator) Infer(_ context.Context, prompt string, _ int) (string, error) {
	instruction := promptField(prompt, "Instruction:")
	reason := promptField(prompt, "Reason:")
	if instruction == "" {
		instruction = "IDLE"
	}
	if reason == "" {
		reason = "no directive"
	}
	return fmt.Sprintf("I will %s because %s.", instruction, reason), nil
}

func promptField(prompt, label string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), label); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
