package bridge

import "github.com/animus-ai/animus/internal/model"

// RPGRules is the movement/attack preset for RPG-style hosts.
func RPGRules() []Rule {
	return []Rule{
		{
			ID:          "rpg_movement",
			Name:        "Movement coordinates",
			ActionTypes: []string{"MOVE", "FLEE"},
			Evaluate:    validateMovement,
		},
		{
			ID:          "rpg_attack",
			Name:        "Attack target",
			ActionTypes: []string{"ATTACK"},
			Evaluate:    validateAttack,
		},
	}
}

func validateMovement(action model.Action, _ Context) model.ValidationResult {
	_, hasX := action.Payload["x"]
	_, hasY := action.Payload["y"]
	if hasX && hasY {
		return model.Valid("Valid coordinates")
	}
	return model.Invalid("Missing x,y in payload")
}

func validateAttack(action model.Action, _ Context) model.ValidationResult {
	if action.Target == "" {
		return model.Invalid("Missing target")
	}
	return model.Valid("Target specified")
}
