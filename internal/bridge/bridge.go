// Package bridge performs symbolic admission control: the final rule-based
// gate an action passes before it is allowed to execute, independent of the
// generative layer that proposed it.
package bridge

import (
	"fmt"

	"github.com/animus-ai/animus/internal/model"
)

// Context is the read-only view a rule evaluates against. Assembled per
// validation call and borrowed by rules for the duration of Validate.
type Context struct {
	AgentState *model.AgentState
	WorldState map[string]string
}

// EvaluateFunc is the core rule logic. Implementations must be pure with
// respect to the action and context, and signal "invalid" through the
// result value rather than panicking.
type EvaluateFunc func(model.Action, Context) model.ValidationResult

// Rule is a tagged validation closure. ActionTypes scopes which action
// types the rule applies to; a rule never sees actions outside its scope.
type Rule struct {
	ID          string
	Name        string
	ActionTypes []string
	Evaluate    EvaluateFunc
}

func (r Rule) appliesTo(actionType string) bool {
	for _, t := range r.ActionTypes {
		if t == actionType {
			return true
		}
	}
	return false
}

// Validate runs the action through the rules in sequence order. The first
// rule that rejects short-circuits the whole evaluation; if no applicable
// rule rejects (including the empty rule set), the action passes.
func Validate(action model.Action, rules []Rule, ctx Context) model.ValidationResult {
	for _, r := range rules {
		if r.Evaluate == nil || !r.appliesTo(action.Type) {
			continue
		}
		if res := evaluate(r, action, ctx); !res.Valid {
			return res
		}
	}
	return model.Valid("All rules passed")
}

// evaluate shields Validate's caller from panicking rules: a panic is
// converted into a failed result instead of propagating.
func evaluate(r Rule, action model.Action, ctx Context) (res model.ValidationResult) {
	defer func() {
		if p := recover(); p != nil {
			res = model.Invalid(fmt.Sprintf("rule %s failed: %v", r.ID, p))
		}
	}()
	return r.Evaluate(action, ctx)
}

// DefaultRules returns the rule set enforced with no domain configuration.
// The protocol is game-agnostic, so this is empty: host games must register
// rules or select a preset such as RPGRules explicitly.
func DefaultRules() []Rule {
	return nil
}
