package telephony

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

	"dialer-platform/internal/tenant"
)

const DefaultRetellBaseURL = "https://api.retellai.com"

var ErrVendor = errors.New("telephony: vendor request failed")

// OutboundCall is one call the voice agent should place.
type OutboundCall struct {
	FromNumber string            `json:"from_number"`
	ToNumber   string            `json:"to_number"`
	AgentID    string            `json:"override_agent_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// RetellClient places outbound calls through the Retell API.
// Credentials come from the tenant on each call, never from the client.
type RetellClient struct {
	httpClient *http.Client
}

func NewRetellClient(timeout time.Duration) *RetellClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RetellClient{httpClient: &http.Client{Timeout: timeout}}
}

// WithHTTPClient swaps the transport; tests point it at httptest servers.
func (c *RetellClient) WithHTTPClient(hc *http.Client) *RetellClient {
	c.httpClient = hc
	return c
}

type createCallResponse struct {
	CallID string `json:"call_id"`
}

// CreatePhoneCall starts the call and returns the vendor call id.
func (c *RetellClient) CreatePhoneCall(ctx context.Context, creds tenant.Credentials, call OutboundCall) (string, error) {
	if err := creds.RequireRetell(); err != nil {
		return "", err
	}
	if call.FromNumber == "" || call.ToNumber == "" {
		return "", fmt.Errorf("%w: from_number and to_number required", ErrVendor)
	}
	base := strings.TrimRight(creds.RetellBaseURL, "/")
	if base == "" {
		base = DefaultRetellBaseURL
	}

	body, err := json.Marshal(call)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v2/create-phone-call", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+creds.RetellAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVendor, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: retell %d: %s", ErrVendor, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out createCallResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrVendor, err)
	}
	if out.CallID == "" {
		return "", fmt.Errorf("%w: response has no call_id", ErrVendor)
	}
	return out.CallID, nil
}
