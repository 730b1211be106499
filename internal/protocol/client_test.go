package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animus-ai/animus/internal/model"
)

func TestDirectiveRequestShape(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody struct {
		Context [][2]string `json:"context"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"instruction":"IDLE","reason":"quiet night","target":""}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_key", 0)
	d, err := c.Directive(context.Background(), "agent_1", map[string]string{
		"weather": "rain",
		"hp":      "10",
	})
	require.NoError(t, err)

	assert.Equal(t, "/agents/agent_1/directive", gotPath)
	assert.Equal(t, "Bearer sk_test_key", gotAuth)
	// pairs sorted by key for deterministic bodies
	require.Len(t, gotBody.Context, 2)
	assert.Equal(t, [2]string{"hp", "10"}, gotBody.Context[0])
	assert.Equal(t, [2]string{"weather", "rain"}, gotBody.Context[1])

	assert.Equal(t, "IDLE", d.Instruction)
	assert.Equal(t, "quiet night", d.Reason)
	assert.NotEmpty(t, d.Raw)
}

func TestDirectiveNoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"instruction":"IDLE","reason":"","target":""}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	_, err := c.Directive(context.Background(), "agent_1", nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestDirectiveMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{{{`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	_, err := c.Directive(context.Background(), "agent_1", nil)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestDirectiveMissingInstruction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"reason":"?","target":""}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	_, err := c.Directive(context.Background(), "agent_1", nil)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestDirectiveTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "", 0)
	_, err := c.Directive(context.Background(), "agent_1", nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.False(t, errors.As(err, new(*ProtocolError)))
}

func TestVerdictParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"valid":true,"signature":"abc"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	v, err := c.Verdict(context.Background(), "agent_1",
		Directive{Instruction: "MOVE", Raw: json.RawMessage(`{"instruction":"MOVE"}`)},
		model.Action{Type: "MOVE"}, "thinking")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "abc", v.Signature)
}

func TestExportSoul(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"cid", `{"cid":"bafy123"}`, "bafy123"},
		{"txId", `{"txId":"tx789"}`, "tx789"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotBody map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&gotBody)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", 0)
			id, err := c.ExportSoul(context.Background(), "agent_9")
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
			assert.Equal(t, "agent_9", gotBody["agentIdRef"])
		})
	}
}

func TestExportSoulNeitherIdentifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	_, err := c.ExportSoul(context.Background(), "agent_9")

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestStatusDistinguishesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "maintenance")
	}))
	c := NewClient(srv.URL, "", 0)

	code, body, err := c.Status(context.Background())
	require.NoError(t, err, "an HTTP error status is not a connectivity failure")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "maintenance", body)

	srv.Close()
	_, _, err = c.Status(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}
