// Package ghost runs scenario tests against an agent by driving real
// Process calls through the orchestrator and scoring the responses.
package ghost

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/animus-ai/animus/internal/model"
	"github.com/animus-ai/animus/internal/protocol"
)

// Config describes a scenario run.
type Config struct {
	// Scenarios are free-text situations to put the agent in.
	Scenarios []string
	// Expected maps a scenario to a substring the response dialogue must
	// contain for the scenario to pass. Scenarios without an entry pass on
	// any non-empty dialogue.
	Expected map[string]string
	Verbose  bool
}

// Result is the outcome of a single scenario.
type Result struct {
	Scenario string `json:"scenario"`
	Passed   bool   `json:"passed"`
	Response string `json:"response"`
	Expected string `json:"expected,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Report aggregates a full run.
type Report struct {
	Results     []Result `json:"results"`
	Total       int      `json:"total"`
	Passed      int      `json:"passed"`
	Failed      int      `json:"failed"`
	SuccessRate float64  `json:"successRate"`
	Summary     string   `json:"summary"`
}

// Runner executes scenarios through an orchestrator.
type Runner struct {
	orch   *protocol.Orchestrator
	config Config
	logger *zap.Logger
}

// NewRunner creates a scenario runner.
func NewRunner(orch *protocol.Orchestrator, cfg Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{orch: orch, config: cfg, logger: logger}
}

// RunScenario runs a single scenario against the agent.
func (r *Runner) RunScenario(ctx context.Context, ag model.Agent, scenario string) Result {
	if scenario == "" {
		return Result{Scenario: scenario, Err: "scenario cannot be empty"}
	}

	input := "Test scenario: " + scenario
	resp := r.orch.Process(ctx, ag, input, nil)

	res := Result{
		Scenario: scenario,
		Response: resp.Dialogue,
		Expected: r.config.Expected[scenario],
	}
	switch {
	case resp.Action.Type == model.ActionError:
		res.Err = resp.Action.Reason
	case resp.Dialogue == "":
		res.Err = "empty dialogue"
	case res.Expected != "" && !strings.Contains(resp.Dialogue, res.Expected):
		res.Err = fmt.Sprintf("dialogue does not contain %q", res.Expected)
	default:
		res.Passed = true
	}

	if r.config.Verbose {
		r.logger.Info("scenario finished",
			zap.String("scenario", scenario),
			zap.Bool("passed", res.Passed))
	}
	return res
}

// RunAll runs every configured scenario sequentially and aggregates a
// report. Stops early only when ctx is cancelled.
func (r *Runner) RunAll(ctx context.Context, ag model.Agent) Report {
	report := Report{Total: len(r.config.Scenarios)}

	for _, scenario := range r.config.Scenarios {
		if ctx.Err() != nil {
			break
		}
		res := r.RunScenario(ctx, ag, scenario)
		report.Results = append(report.Results, res)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if report.Total > 0 {
		report.SuccessRate = float64(report.Passed) / float64(report.Total)
	}
	report.Summary = fmt.Sprintf("%d/%d scenarios passed", report.Passed, report.Total)
	return report
}
