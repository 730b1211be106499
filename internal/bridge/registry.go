package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Registry publishes rule definitions to the remote policy service so other
// processes can validate against the same rule set. Registration is
// fire-and-forget: it runs off the caller's goroutine and never blocks or
// influences a Validate call.
type Registry struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *zap.Logger
}

// NewRegistry creates a registry client for the given policy endpoint.
func NewRegistry(endpoint, token string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

type ruleRegistration struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ActionTypes []string `json:"actionTypes"`
}

// RegisterAsync announces a rule to the policy service on a background
// goroutine. Failures are logged and dropped.
func (r *Registry) RegisterAsync(rule Rule) {
	go func() {
		if err := r.register(rule); err != nil {
			r.logger.Warn("rule registration failed",
				zap.String("rule", rule.ID), zap.Error(err))
			return
		}
		r.logger.Debug("rule registered", zap.String("rule", rule.ID))
	}()
}

func (r *Registry) register(rule Rule) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.client.Timeout)
	defer cancel()

	body, _ := json.Marshal(ruleRegistration{
		ID:          rule.ID,
		Name:        rule.Name,
		ActionTypes: rule.ActionTypes,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.endpoint+"/rules/register", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
