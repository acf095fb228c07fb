package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CallDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "create_event", req.Method)
		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"event_id":"42"}`)}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New("event-manager", srv.URL)
	result, err := c.Call(context.Background(), "create_event", map[string]any{"title": "Launch"})
	require.NoError(t, err)
	assert.Equal(t, "42", result["event_id"])
}

func TestClient_CallSurfacesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New("rsvp", srv.URL)
	_, err := c.Call(context.Background(), "process_rsvp", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid params")
}

func TestClient_CallSurfacesTransportFailure(t *testing.T) {
	c := New("guild-manager", "http://127.0.0.1:0")
	_, err := c.Call(context.Background(), "register_guild", map[string]any{})
	require.Error(t, err)
}

func TestTools_ReturnsKnownServiceTools(t *testing.T) {
	assert.Contains(t, Tools("event-manager"), "create_event")
	assert.Nil(t, Tools("unknown-service"))
}
