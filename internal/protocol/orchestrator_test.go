package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animus-ai/animus/internal/bridge"
	"github.com/animus-ai/animus/internal/cortex"
	"github.com/animus-ai/animus/internal/model"
)

// policyMock is a fake policy service tracking per-endpoint call counts.
type policyMock struct {
	directiveCalls atomic.Int32
	verdictCalls   atomic.Int32

	directiveStatus int
	directiveBody   string
	verdictStatus   int
	verdictBody     string

	lastVerdictRequest map[string]any
}

func newPolicyMock() *policyMock {
	return &policyMock{
		directiveStatus: http.StatusOK,
		directiveBody:   `{"instruction":"FLEE","reason":"low HP","target":""}`,
		verdictStatus:   http.StatusOK,
		verdictBody:     `{"valid":true,"signature":"sig123"}`,
	}
}

func (m *policyMock) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/agents/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/directive"):
			m.directiveCalls.Add(1)
			w.WriteHeader(m.directiveStatus)
			fmt.Fprint(w, m.directiveBody)
		case strings.HasSuffix(r.URL.Path, "/verdict"):
			m.verdictCalls.Add(1)
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			m.lastVerdictRequest = body
			w.WriteHeader(m.verdictStatus)
			fmt.Fprint(w, m.verdictBody)
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func testAgent() model.Agent {
	return model.Agent{
		ID:      "agent_test",
		Persona: "village guard",
		State:   model.AgentState{Mood: "tense"},
	}
}

func TestProcessHappyPath(t *testing.T) {
	mock := newPolicyMock()
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	orch := New(NewClient(srv.URL, "", 0), cortex.TemplateGenerator{})
	resp := orch.Process(context.Background(), testAgent(), "what do I do?", map[string]string{"hp": "10"})

	require.Equal(t, "FLEE", resp.Action.Type)
	assert.Equal(t, "low HP", resp.Action.Reason)
	assert.Contains(t, resp.Thought, "sig123")
	assert.Equal(t, "I will FLEE because low HP.", resp.Dialogue)
	assert.Equal(t, int32(1), mock.directiveCalls.Load())
	assert.Equal(t, int32(1), mock.verdictCalls.Load())
}

func TestProcessVerdictRequestBundle(t *testing.T) {
	mock := newPolicyMock()
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	orch := New(NewClient(srv.URL, "", 0), cortex.TemplateGenerator{})
	orch.Process(context.Background(), testAgent(), "run?", nil)

	require.NotNil(t, mock.lastVerdictRequest)

	// directive passed through opaquely, exactly as received
	directive, ok := mock.lastVerdictRequest["directive"].(map[string]any)
	require.True(t, ok, "verdict request carries the directive")
	assert.Equal(t, "FLEE", directive["instruction"])
	assert.Equal(t, "low HP", directive["reason"])

	action, ok := mock.lastVerdictRequest["action"].(map[string]any)
	require.True(t, ok, "verdict request carries the action")
	assert.Equal(t, "FLEE", action["type"])

	thought, _ := mock.lastVerdictRequest["thought"].(string)
	assert.NotEmpty(t, thought)
}

func TestProcessRejection(t *testing.T) {
	mock := newPolicyMock()
	mock.verdictBody = `{"valid":false,"signature":""}`
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	orch := New(NewClient(srv.URL, "", 0), cortex.TemplateGenerator{})
	resp := orch.Process(context.Background(), testAgent(), "attack!", nil)

	assert.Equal(t, model.ActionBlocked, resp.Action.Type)
	assert.Equal(t, "Protocol", resp.Action.Target)
	assert.Equal(t, "...", resp.Dialogue)
	assert.Contains(t, resp.Thought, "Blocked by Protocol")
}

func TestProcessDirectiveTransportFailure(t *testing.T) {
	mock := newPolicyMock()
	srv := httptest.NewServer(mock.handler())
	srv.Close() // unreachable from the start

	orch := New(NewClient(srv.URL, "", time.Second), cortex.TemplateGenerator{})
	resp := orch.Process(context.Background(), testAgent(), "hello?", nil)

	assert.Equal(t, model.ActionError, resp.Action.Type)
	assert.Contains(t, resp.Thought, "Protocol failure")
	// no verdict request is ever sent after a directive failure
	assert.Equal(t, int32(0), mock.verdictCalls.Load())
}

func TestProcessDirectiveErrorStatus(t *testing.T) {
	mock := newPolicyMock()
	mock.directiveStatus = http.StatusInternalServerError
	mock.directiveBody = "boom"
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	orch := New(NewClient(srv.URL, "", 0), cortex.TemplateGenerator{})
	resp := orch.Process(context.Background(), testAgent(), "hello?", nil)

	assert.Equal(t, model.ActionError, resp.Action.Type)
	assert.Equal(t, int32(0), mock.verdictCalls.Load())
}

func TestProcessVerdictTransportFailure(t *testing.T) {
	mock := newPolicyMock()
	mock.verdictStatus = http.StatusBadGateway
	mock.verdictBody = ""
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	orch := New(NewClient(srv.URL, "", 0), cortex.TemplateGenerator{})
	resp := orch.Process(context.Background(), testAgent(), "hello?", nil)

	// verdict failure is indistinguishable from rejection for the caller
	assert.Equal(t, model.ActionBlocked, resp.Action.Type)
	assert.Equal(t, "Protocol", resp.Action.Target)
}

type failingGenerator struct{}

func (failingGenerator) Infer(context.Context, string, int) (string, error) {
	return "", &cortex.ModelError{Model: "test", Err: fmt.Errorf("engine unloaded")}
}

func TestProcessGenerationFailure(t *testing.T) {
	mock := newPolicyMock()
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	orch := New(NewClient(srv.URL, "", 0), failingGenerator{})
	resp := orch.Process(context.Background(), testAgent(), "speak", nil)

	assert.Equal(t, model.ActionError, resp.Action.Type)
	// verdict over content that was never generated would be meaningless
	assert.Equal(t, int32(0), mock.verdictCalls.Load())
}

func TestProcessLocalRuleRejection(t *testing.T) {
	mock := newPolicyMock()
	mock.directiveBody = `{"instruction":"ATTACK","reason":"hostile","target":""}`
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	// RPG preset rejects ATTACK without a target even though the remote
	// verdict approved it
	orch := New(NewClient(srv.URL, "", 0), cortex.TemplateGenerator{},
		WithRules(bridge.RPGRules()))
	resp := orch.Process(context.Background(), testAgent(), "fight!", nil)

	assert.Equal(t, model.ActionBlocked, resp.Action.Type)
	assert.Equal(t, "Missing target", resp.Action.Reason)
}

func TestProcessLocalRulePass(t *testing.T) {
	mock := newPolicyMock()
	mock.directiveBody = `{"instruction":"ATTACK","reason":"hostile","target":"goblin"}`
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	orch := New(NewClient(srv.URL, "", 0), cortex.TemplateGenerator{},
		WithRules(bridge.RPGRules()))
	resp := orch.Process(context.Background(), testAgent(), "fight!", nil)

	require.Equal(t, "ATTACK", resp.Action.Type)
	assert.Equal(t, "goblin", resp.Action.Target)
}

// cancellingGenerator ignores its context and cancels the run mid-inference,
// the way an in-process engine that predates context plumbing would.
type cancellingGenerator struct{ cancel context.CancelFunc }

func (g cancellingGenerator) Infer(context.Context, string, int) (string, error) {
	g.cancel()
	return "fine words", nil
}

func TestProcessCancelledDuringGeneration(t *testing.T) {
	mock := newPolicyMock()
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	orch := New(NewClient(srv.URL, "", 0), cancellingGenerator{cancel: cancel})
	resp := orch.Process(ctx, testAgent(), "hello?", nil)

	// a cancelled run is an error, not a verdict rejection
	assert.Equal(t, model.ActionError, resp.Action.Type)
	assert.Equal(t, int32(0), mock.verdictCalls.Load())
}

func TestProcessCancellation(t *testing.T) {
	mock := newPolicyMock()
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(NewClient(srv.URL, "", 0), cortex.TemplateGenerator{})
	resp := orch.Process(ctx, testAgent(), "hello?", nil)

	assert.Equal(t, model.ActionError, resp.Action.Type)
	assert.Equal(t, int32(0), mock.verdictCalls.Load())
}
