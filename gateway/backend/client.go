// Package backend implements opaque RPC client stubs for the five back-end
// services the gateway forwards to: event-manager, rsvp, guild-manager,
// photo-vibe-check, vibe-canvas. Each is an HTTP JSON-RPC-style client (spec
// §1, §6). The exception is photo-vibe-check as wired by cmd/coordinator:
// VibeCheckAdapter serves it in-process instead of over RPC.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// rpcRequest mirrors the JSON-RPC 2.0 envelope the back-ends accept.
type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	ID      int64          `json:"id"`
	Params  map[string]any `json:"params"`
}

// rpcError is the JSON-RPC error object, when present.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) asError() error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("backend rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// Client is a gateway.BackendClient implementation talking JSON-RPC over a
// plain HTTP POST to one back-end service's base URL.
type Client struct {
	service  string
	endpoint string
	http     *http.Client
	nextID   func() int64
}

// New constructs a Client for service, reachable at baseURL. baseURL is the
// service's RPC endpoint (spec §6 "tlt_service_url_<tag>").
func New(service, baseURL string) *Client {
	var id int64
	return &Client{
		service:  service,
		endpoint: baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		nextID:   func() int64 { id++; return id },
	}
}

// Call implements gateway.BackendClient: it issues a tools/call-equivalent
// JSON-RPC request named after tool and decodes the result map.
func (c *Client) Call(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  tool,
		ID:      c.nextID(),
		Params:  args,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", c.service, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.service, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.service, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", c.service, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: http status %d: %s", c.service, resp.StatusCode, string(raw))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error.asError()
	}

	var result map[string]any
	if len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
			return nil, fmt.Errorf("%s: decode result: %w", c.service, err)
		}
	}
	return result, nil
}
