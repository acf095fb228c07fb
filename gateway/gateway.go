// Package gateway implements the single authenticated RPC front-end (C7):
// it exposes every back-end service's tools as its own, authorizes each call
// against a role-policy engine, forwards to the resolved back-end with
// bounded retry, and degrades gracefully to a structured
// service-unavailable result rather than propagating a transport failure.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tltguild/tlt-core/internal/apierr"
	"github.com/tltguild/tlt-core/internal/telemetry"
	"github.com/tltguild/tlt-core/toolexec"
)

// Result is an alias for the uniform envelope toolexec expects back from
// every tool call (spec §4.7 step 2: success carries {result}; failure
// carries {error}). Defined in toolexec since that package declares the
// GatewayCaller seam; Gateway implements it here.
type Result = toolexec.GatewayResult

// Options configures Gateway behavior; zero values fall back to spec §6/§9
// defaults.
type Options struct {
	DevMode     bool
	RetryBudget time.Duration
}

func (o Options) withDefaults() Options {
	if o.RetryBudget <= 0 {
		o.RetryBudget = 4 * time.Second
	}
	return o
}

// Gateway implements toolexec.GatewayCaller.
type Gateway struct {
	registry *Registry
	policy   *PolicyEngine
	log      telemetry.Logger
	metrics  telemetry.Metrics
	opts     Options

	management map[string]managementTool
	startedAt  time.Time
}

type managementTool func(ctx context.Context, args map[string]any, authCtx map[string]any) (map[string]any, error)

// New constructs a Gateway bound to registry and policy.
func New(registry *Registry, policy *PolicyEngine, log telemetry.Logger, metrics telemetry.Metrics, opts Options) *Gateway {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	g := &Gateway{
		registry:  registry,
		policy:    policy,
		log:       log,
		metrics:   metrics,
		opts:      opts.withDefaults(),
		startedAt: time.Now(),
	}
	g.registerManagementTools()
	return g
}

// Invoke implements toolexec.GatewayCaller: it authorizes, forwards, and
// uniformly envelopes the result of a tool call (spec §4.7).
func (g *Gateway) Invoke(ctx context.Context, toolName string, args map[string]any, authCtx map[string]any) (Result, error) {
	role, hasAuth := authRole(authCtx)
	if !hasAuth {
		if !g.opts.DevMode {
			return g.denied(toolName, "no authentication context"), nil
		}
		role = RoleAdmin // dev mode treats absent context as fully trusted
	}

	// Management tools (ping, policy CRUD, tool discovery) are handled
	// in-process and open to every role; the policy-mutating ones enforce
	// the admin role themselves via adminOnly, independent of the general
	// (role, tool, invoke) lookup below.
	if tool, ok := g.management[toolName]; ok {
		result, err := tool(ctx, args, authCtx)
		if err != nil {
			return Result{Success: false, Error: err.Error()}, nil
		}
		return Result{Success: true, Result: result}, nil
	}

	if !g.policy.Allow(role, toolName, "invoke") {
		return g.denied(toolName, string(role)), nil
	}

	client, service, ok := g.registry.Resolve(toolName)
	if !ok {
		return Result{Success: false, Error: "not-found: unknown tool " + toolName}, nil
	}

	result, err := g.forward(ctx, client, toolName, args)
	if err != nil {
		g.log.Warn(ctx, "gateway: back-end call degraded", "tool", toolName, "service", service, "error", err)
		g.metrics.IncCounter("gateway.degraded", 1, "service", service)
		return Result{Success: false, Error: "service unavailable: " + err.Error()}, nil
	}
	return Result{Success: true, Result: result}, nil
}

// denied returns the access-denied result named in spec §4.7 step 1.
func (g *Gateway) denied(toolName, role string) Result {
	return Result{
		Success: false,
		Error:   apierr.New(apierr.KindAccessDenied, "role "+role+" may not invoke "+toolName).Error(),
	}
}

// forward retries the back-end call with bounded exponential backoff before
// the caller degrades to service-unavailable (spec §4.7 step 3, P6 "< 5s").
func (g *Gateway) forward(ctx context.Context, client BackendClient, toolName string, args map[string]any) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.RetryBudget)
	defer cancel()

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	var result map[string]any
	err := backoff.Retry(func() error {
		r, callErr := client.Call(ctx, toolName, args)
		if callErr != nil {
			return callErr
		}
		result = r
		return nil
	}, bo)
	if err != nil {
		return nil, errors.Join(apierr.New(apierr.KindServiceUnavailable, "back-end unreachable"), err)
	}
	return result, nil
}

func authRole(authCtx map[string]any) (Role, bool) {
	if authCtx == nil {
		return "", false
	}
	roleStr, ok := authCtx["role"].(string)
	if !ok || roleStr == "" {
		return "", false
	}
	role := Role(roleStr)
	if !IsValidRole(role) {
		return RoleUser, true
	}
	return role, true
}
