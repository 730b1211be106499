// Package protocol implements the directive/verdict exchange with the
// remote policy service and the orchestrator that drives one input through
// it. Each Process invocation is an independent run with no state shared
// across calls.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/animus-ai/animus/internal/model"
)

// DefaultTimeout bounds each individual round-trip to the policy service.
const DefaultTimeout = 10 * time.Second

// Client is the policy service HTTP client. Safe for concurrent use.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient creates a policy client for the given endpoint. An empty token
// means unauthenticated requests. A zero timeout uses DefaultTimeout.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

// Directive is an instruction issued by the policy service. Raw preserves
// the full response body so the verdict request can pass the directive back
// opaquely, exactly as received.
type Directive struct {
	Instruction string `json:"instruction"`
	Reason      string `json:"reason"`
	Target      string `json:"target"`

	Raw json.RawMessage `json:"-"`
}

// Verdict is the policy service's accept/reject decision over a proposed
// action. The signature is an opaque authenticity token; it is carried
// through for audit, never interpreted locally.
type Verdict struct {
	Valid     bool   `json:"valid"`
	Signature string `json:"signature"`
}

// Directive requests the next directive for an agent. The world context is
// sent as ordered key/value pairs, sorted by key so identical contexts
// produce identical request bodies.
func (c *Client) Directive(ctx context.Context, agentID string, worldCtx map[string]string) (Directive, error) {
	keys := make([]string, 0, len(worldCtx))
	for k := range worldCtx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, worldCtx[k]})
	}

	body, err := c.post(ctx, "directive", fmt.Sprintf("/agents/%s/directive", agentID),
		map[string]any{"context": pairs})
	if err != nil {
		return Directive{}, err
	}

	var d Directive
	if err := json.Unmarshal(body, &d); err != nil {
		return Directive{}, &ProtocolError{Op: "directive", Detail: "malformed response", Err: err}
	}
	if d.Instruction == "" {
		return Directive{}, &ProtocolError{Op: "directive", Detail: "missing instruction"}
	}
	d.Raw = body
	return d, nil
}

// Verdict submits the directive, the proposed action and the generated
// content for review.
func (c *Client) Verdict(ctx context.Context, agentID string, d Directive, action model.Action, thought string) (Verdict, error) {
	body, err := c.post(ctx, "verdict", fmt.Sprintf("/agents/%s/verdict", agentID),
		map[string]any{
			"directive": d.Raw,
			"action": map[string]string{
				"type":   action.Type,
				"target": action.Target,
			},
			"thought": thought,
		})
	if err != nil {
		return Verdict{}, err
	}

	var v Verdict
	if err := json.Unmarshal(body, &v); err != nil {
		return Verdict{}, &ProtocolError{Op: "verdict", Detail: "malformed response", Err: err}
	}
	return v, nil
}

// ExportSoul asks the policy service to publish an agent's soul and returns
// the resulting content identifier (cid or txId, whichever the service
// reports).
func (c *Client) ExportSoul(ctx context.Context, agentID string) (string, error) {
	body, err := c.post(ctx, "soul export", fmt.Sprintf("/agents/%s/soul/export", agentID),
		map[string]string{"agentIdRef": agentID})
	if err != nil {
		return "", err
	}

	var resp struct {
		CID  string `json:"cid"`
		TxID string `json:"txId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ProtocolError{Op: "soul export", Detail: "malformed response", Err: err}
	}
	switch {
	case resp.CID != "":
		return resp.CID, nil
	case resp.TxID != "":
		return resp.TxID, nil
	}
	return "", &ProtocolError{Op: "soul export", Detail: "response carries neither cid nor txId"}
}

// Status probes the service health endpoint. The returned code is the HTTP
// status (0 when the service was unreachable); err is non-nil only for
// connectivity failures, so callers can distinguish the two.
func (c *Client) Status(ctx context.Context) (code int, body string, err error) {
	url := c.endpoint + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", &TransportError{Op: "status", URL: url, Err: err}
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", &TransportError{Op: "status", URL: url, Err: err}
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b), nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any) (json.RawMessage, error) {
	url := c.endpoint + path

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProtocolError{Op: op, Detail: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{Op: op, Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return b, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
