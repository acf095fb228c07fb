package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	result map[string]any
	err    error
	calls  int
}

func (s *stubBackend) Call(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestGateway(t *testing.T, client BackendClient) *Gateway {
	t.Helper()
	reg := NewRegistry()
	reg.Register(ServiceEntry{Service: "event-manager", Tools: []string{"create_event"}, Client: client})
	policy := NewPolicyEngine("")
	require.NoError(t, policy.AddRule(RoleEventOwner, "create_event", "invoke", true))
	return New(reg, policy, nil, nil, Options{RetryBudget: 200 * time.Millisecond})
}

func TestGateway_AdminDefaultAllowsAnyTool(t *testing.T) {
	backend := &stubBackend{result: map[string]any{"event_id": "1"}}
	gw := newTestGateway(t, backend)

	res, err := gw.Invoke(context.Background(), "create_event", map[string]any{}, map[string]any{"role": "admin"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "1", res.Result["event_id"])
}

func TestGateway_UserDeniedWithoutExplicitRule(t *testing.T) {
	backend := &stubBackend{result: map[string]any{"event_id": "1"}}
	gw := newTestGateway(t, backend)

	res, err := gw.Invoke(context.Background(), "create_event", map[string]any{}, map[string]any{"role": "user"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "access-denied")
	assert.Equal(t, 0, backend.calls)
}

func TestGateway_ExplicitRuleGrantsEventOwner(t *testing.T) {
	backend := &stubBackend{result: map[string]any{"event_id": "1"}}
	gw := newTestGateway(t, backend)

	res, err := gw.Invoke(context.Background(), "create_event", map[string]any{}, map[string]any{"role": "event-owner"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestGateway_AbsentAuthContextRejectedOutsideDevMode(t *testing.T) {
	backend := &stubBackend{result: map[string]any{}}
	gw := newTestGateway(t, backend)

	res, err := gw.Invoke(context.Background(), "create_event", map[string]any{}, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestGateway_DevModeBypassesAbsentAuthContext(t *testing.T) {
	backend := &stubBackend{result: map[string]any{"event_id": "9"}}
	reg := NewRegistry()
	reg.Register(ServiceEntry{Service: "event-manager", Tools: []string{"create_event"}, Client: backend})
	policy := NewPolicyEngine("")
	gw := New(reg, policy, nil, nil, Options{DevMode: true})

	res, err := gw.Invoke(context.Background(), "create_event", map[string]any{}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestGateway_DegradesToServiceUnavailableWithinBudget(t *testing.T) {
	backend := &stubBackend{err: errors.New("connection refused")}
	gw := newTestGateway(t, backend)

	start := time.Now()
	res, err := gw.Invoke(context.Background(), "create_event", map[string]any{}, map[string]any{"role": "admin"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "service unavailable")
	assert.Less(t, elapsed, 5*time.Second)
}

func TestGateway_UnknownToolReturnsNotFound(t *testing.T) {
	backend := &stubBackend{result: map[string]any{}}
	gw := newTestGateway(t, backend)

	res, err := gw.Invoke(context.Background(), "no-such-tool", map[string]any{}, map[string]any{"role": "admin"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not-found")
}

func TestGateway_PingManagementToolHandledInProcess(t *testing.T) {
	backend := &stubBackend{}
	gw := newTestGateway(t, backend)

	res, err := gw.Invoke(context.Background(), "ping", nil, map[string]any{"role": "user"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ok", res.Result["status"])
}

func TestGateway_PolicyMutationRequiresAdmin(t *testing.T) {
	backend := &stubBackend{}
	gw := newTestGateway(t, backend)

	res, err := gw.Invoke(context.Background(), "add-policy", map[string]any{
		"role": "user", "tool": "create_event", "action": "invoke", "allow": true,
	}, map[string]any{"role": "event-owner"})
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = gw.Invoke(context.Background(), "add-policy", map[string]any{
		"role": "user", "tool": "create_event", "action": "invoke", "allow": true,
	}, map[string]any{"role": "admin"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}
