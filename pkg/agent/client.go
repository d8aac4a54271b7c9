package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured indicates the agent client has no endpoint configured
	ErrNotConfigured = errors.New("agent client not configured")
	// ErrAgentUnavailable indicates the drafting endpoint returned a non-success response
	ErrAgentUnavailable = errors.New("agent request failed")
)

// PropertyContext is one business-context record handed to the agent.
type PropertyContext struct {
	Address  string  `json:"address"`
	Rent     float64 `json:"rent_monthly"`
	Bedrooms int     `json:"bedrooms"`
	Status   string  `json:"status"`
}

// DraftRequest carries the inbound email plus the mailbox owner's context.
type DraftRequest struct {
	OwnerID    string            `json:"owner_id"`
	OwnerKind  string            `json:"owner_kind"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Sender     string            `json:"sender"`
	ReceivedAt time.Time         `json:"received_at"`
	Properties []PropertyContext `json:"properties,omitempty"`
}

// DraftResponse is the agent's reply. An empty ReplyBody means the agent
// chose not to answer; callers treat that as "no reply", not an error.
type DraftResponse struct {
	ReplyBody  string  `json:"reply_body"`
	Subject    string  `json:"subject,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Validation string  `json:"validation,omitempty"`
}

// Client talks to the external drafting agent over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Draft calls the agent synchronously and returns its composed reply.
func (c *Client) Draft(ctx context.Context, req DraftRequest) (*DraftResponse, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/draft-reply", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrAgentUnavailable, resp.StatusCode, string(respBody))
	}

	var result DraftResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse agent response: %w", err)
	}
	return &result, nil
}
