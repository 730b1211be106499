package protocol

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/animus-ai/animus/internal/bridge"
	"github.com/animus-ai/animus/internal/cortex"
	"github.com/animus-ai/animus/internal/model"
)

// Stage names the steps of one Process run, for logging and diagnostics.
type Stage string

const (
	StageStart         Stage = "START"
	StageDirective     Stage = "DIRECTIVE"
	StageGenerating    Stage = "GENERATING"
	StageVerdict       Stage = "VERDICT"
	StageApproved      Stage = "APPROVED"
	StageRejected      Stage = "REJECTED"
	StageFailed        Stage = "FAILED"
	StageVerdictFailed Stage = "VERDICT_FAILED"
)

// Orchestrator runs the directive -> generation -> verdict exchange. It
// holds no mutable state across calls; concurrent Process invocations are
// independent.
type Orchestrator struct {
	policy    *Client
	generator cortex.Generator
	rules     []bridge.Rule
	maxTokens int
	logger    *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRules adds local admission-control rules that run after a verdict
// approves an action. A local rejection blocks the action even when the
// remote verdict passed it.
func WithRules(rules []bridge.Rule) Option {
	return func(o *Orchestrator) { o.rules = rules }
}

// WithMaxTokens bounds generation length per call.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) { o.maxTokens = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator over a policy client and a local generator.
func New(policy *Client, generator cortex.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		policy:    policy,
		generator: generator,
		maxTokens: 256,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process turns one input into a validated response.
//
// The stages run strictly in sequence: the directive is requested from the
// policy service, dialogue is generated locally under that directive, and
// the bundle is submitted for a verdict. Cancelling ctx aborts the in-flight
// request and no later stage runs.
//
// Process always returns a value, never an error: transport and model
// failures degrade to an ERROR action, rejections to a BLOCKED action.
func (o *Orchestrator) Process(ctx context.Context, ag model.Agent, input string, worldCtx map[string]string) model.Response {
	log := o.logger.With(zap.String("agent", ag.ID))
	log.Debug("process start", zap.String("stage", string(StageStart)))

	d, err := o.policy.Directive(ctx, ag.ID, worldCtx)
	if err != nil {
		log.Warn("directive failed", zap.String("stage", string(StageFailed)), zap.Error(err))
		return errorResponse("could not reach the policy service", err)
	}
	log.Debug("directive received",
		zap.String("stage", string(StageDirective)),
		zap.String("instruction", d.Instruction))

	prompt := buildPrompt(ag.Persona, d, input)
	dialogue, err := o.generator.Infer(ctx, prompt, o.maxTokens)
	if err != nil {
		log.Warn("generation failed", zap.String("stage", string(StageFailed)), zap.Error(err))
		return errorResponse("local generation failed", err)
	}
	log.Debug("dialogue generated", zap.String("stage", string(StageGenerating)))

	// A generator is free to ignore cancellation; recheck before entering
	// the verdict stage so a cancelled run never reaches the policy service.
	if err := ctx.Err(); err != nil {
		log.Warn("run cancelled", zap.String("stage", string(StageFailed)), zap.Error(err))
		return errorResponse("run cancelled", err)
	}

	action := model.Action{
		Type:   d.Instruction,
		Target: d.Target,
		Reason: d.Reason,
	}

	verdict, err := o.policy.Verdict(ctx, ag.ID, d, action, dialogue)
	if err != nil {
		log.Warn("verdict failed", zap.String("stage", string(StageVerdictFailed)), zap.Error(err))
		return blockedResponse(fmt.Sprintf("verdict unavailable: %v", err))
	}
	if !verdict.Valid {
		log.Info("action rejected", zap.String("stage", string(StageRejected)),
			zap.String("action", action.Type))
		return blockedResponse("rejected by verdict")
	}

	if len(o.rules) > 0 {
		res := bridge.Validate(action, o.rules, bridge.Context{
			AgentState: &ag.State,
			WorldState: worldCtx,
		})
		if !res.Valid {
			log.Info("action blocked by local rules",
				zap.String("stage", string(StageRejected)),
				zap.String("reason", res.Reason))
			return blockedResponse(res.Reason)
		}
	}

	log.Debug("action approved", zap.String("stage", string(StageApproved)),
		zap.String("action", action.Type))
	return model.Response{
		Dialogue: dialogue,
		Action:   action,
		Thought:  "Signed: " + verdict.Signature,
	}
}

// buildPrompt renders the directive and user input into the generation
// prompt. The labelled lines are also what cortex.TemplateGenerator reads.
func buildPrompt(persona string, d Directive, input string) string {
	var b strings.Builder
	if persona != "" {
		fmt.Fprintf(&b, "You are: %s\n", persona)
	}
	fmt.Fprintf(&b, "Instruction: %s\n", d.Instruction)
	fmt.Fprintf(&b, "Reason: %s\n", d.Reason)
	if d.Target != "" {
		fmt.Fprintf(&b, "Target: %s\n", d.Target)
	}
	fmt.Fprintf(&b, "Input: %s\n", input)
	b.WriteString("Respond in character with one short line of dialogue.")
	return b.String()
}

func errorResponse(summary string, err error) model.Response {
	return model.Response{
		Dialogue: "I... I can't reach my thoughts right now.",
		Action: model.Action{
			Type:   model.ActionError,
			Reason: summary,
		},
		Thought: fmt.Sprintf("Protocol failure: %v", err),
	}
}

func blockedResponse(reason string) model.Response {
	return model.Response{
		Dialogue: "...",
		Action: model.Action{
			Type:   model.ActionBlocked,
			Target: "Protocol",
			Reason: reason,
		},
		Thought: "Blocked by Protocol: " + reason,
	}
}
