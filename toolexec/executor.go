// Package toolexec implements the tool-dispatch executor (C6): it consumes
// one queued ToolRequest from the agent graph, shapes its arguments per the
// fixed per-service policy in spec §4.6, invokes the gateway, records the
// outcome, and — for create_event — synthesizes the save_event_to_guild_data
// follow-on call.
package toolexec

import (
	"context"
	"time"

	"github.com/tltguild/tlt-core/agentgraph"
	"github.com/tltguild/tlt-core/internal/telemetry"
)

// GatewayCaller is implemented by the gateway (C7). The executor never talks
// to back-end services directly; every tool invocation passes through this
// single seam.
type GatewayCaller interface {
	Invoke(ctx context.Context, toolName string, args map[string]any, authCtx map[string]any) (GatewayResult, error)
}

// GatewayResult mirrors the gateway's uniform success/failure envelope
// (spec §4.7).
type GatewayResult struct {
	Success bool
	Result  map[string]any
	Error   string
}

const (
	minCacheSize = 50
	maxCacheSize = 100
)

// Executor implements agentgraph.ToolExecutor.
type Executor struct {
	gateway GatewayCaller
	log     telemetry.Logger
	metrics telemetry.Metrics

	eventCache map[string]map[string]any
	cacheOrder []string
}

// New constructs an Executor bound to gateway, the single authenticated
// RPC front-end every tool call is routed through.
func New(gateway GatewayCaller, log telemetry.Logger, metrics telemetry.Metrics) *Executor {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Executor{gateway: gateway, log: log, metrics: metrics, eventCache: make(map[string]map[string]any)}
}

// serviceTags are the logical service tags the reasoning analysis table
// (spec §4.5) puts in Decision.ToolName; the gateway resolves calls by
// actual tool name (spec §4.7 "route tool invocations to back-end
// services"), so resolveToolName swaps them for the action. A tag that
// arrives with an empty action (the vibe-action row) is passed to Invoke
// unchanged.
var serviceTags = map[string]bool{
	"event-manager":    true,
	"rsvp":             true,
	"guild-manager":    true,
	"photo-vibe-check": true,
	"vibe-canvas":      true,
}

// resolveToolName maps a (service tag, action) pair from the reasoning
// analysis table to the actual back-end tool name the gateway registry
// indexes (spec §4.6 step (i) "map a logical service tag plus action to an
// actual tool name"). When toolName already names a real tool — the model
// chose it directly for a trigger with no fixed table row — it is used
// unchanged.
func resolveToolName(toolName, action string) string {
	if serviceTags[toolName] && action != "" {
		return action
	}
	return toolName
}

// Execute implements agentgraph.ToolExecutor: map request to a concrete tool
// call, shape its arguments, invoke the gateway, and record the outcome.
func (e *Executor) Execute(ctx context.Context, state *agentgraph.State, event *agentgraph.IncomingEvent, req agentgraph.ToolRequest) agentgraph.ToolResult {
	action, _ := req.Metadata["action"].(string)
	shaped := ShapeArguments(req.ToolName, action, req.Arguments)
	toolName := resolveToolName(req.ToolName, action)

	result, err := e.gateway.Invoke(ctx, toolName, shaped, authContextFrom(req.Metadata))
	if err != nil {
		e.log.Error(ctx, "toolexec: gateway invoke failed", "tool", toolName, "error", err)
		return agentgraph.ToolResult{Success: false, Error: err.Error()}
	}
	if !result.Success {
		return agentgraph.ToolResult{Success: false, Error: result.Error}
	}

	out := agentgraph.ToolResult{Success: true, Result: result.Result}

	if req.ToolName == "event-manager" && action == "create_event" {
		e.scheduleSaveToGuildData(ctx, req, shaped, result.Result)
	}

	e.refreshEventCache(event, result.Result)
	return out
}

// scheduleSaveToGuildData fires the follow-on save_event_to_guild_data call
// on a successful create_event (spec §4.6 "on success emit a follow-on
// save_event_to_guild_data call with the produced event identifier and the
// full merged payload"). It runs fire-and-forget: a failure here does not
// fail the create_event result already returned to the caller.
func (e *Executor) scheduleSaveToGuildData(ctx context.Context, req agentgraph.ToolRequest, shapedArgs map[string]any, result map[string]any) {
	eventID, _ := result["event_id"].(string)
	if eventID == "" {
		eventID, _ = result["id"].(string)
	}
	if eventID == "" {
		e.log.Warn(ctx, "toolexec: create_event result missing event id, skipping save_event_to_guild_data")
		return
	}
	merged := make(map[string]any, len(shapedArgs)+len(result))
	for k, v := range shapedArgs {
		merged[k] = v
	}
	for k, v := range result {
		merged[k] = v
	}
	args := dropForbidden(map[string]any{
		"guild_id": shapedArgs["guild_id"],
		"event_id": eventID,
		"data":     merged,
	})
	toolName := resolveToolName("event-manager", "save_event_to_guild_data")
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		res, err := e.gateway.Invoke(bgCtx, toolName, args, authContextFrom(req.Metadata))
		if err != nil || !res.Success {
			e.log.Warn(bgCtx, "toolexec: save_event_to_guild_data follow-on failed", "event_id", eventID, "error", err)
		}
	}()
}

// refreshEventCache keeps a small bounded cache of recent event-context
// results, refreshed as a periodic side-task per spec §4.6 (here refreshed
// inline after every successful call touching that event rather than on a
// separate timer, which is equivalent for a single-process coordinator).
func (e *Executor) refreshEventCache(event *agentgraph.IncomingEvent, result map[string]any) {
	if event == nil || result == nil {
		return
	}
	key := event.TaskID
	if _, exists := e.eventCache[key]; !exists {
		e.cacheOrder = append(e.cacheOrder, key)
	}
	e.eventCache[key] = result
	if len(e.cacheOrder) > maxCacheSize {
		// Trim back down to the floor rather than evicting one at a time, so a
		// burst of cache churn doesn't repeatedly re-trigger eviction work.
		drop := len(e.cacheOrder) - minCacheSize
		for _, k := range e.cacheOrder[:drop] {
			delete(e.eventCache, k)
		}
		e.cacheOrder = e.cacheOrder[drop:]
	}
}

// Ping probes gateway health as the periodic side-task named in spec §4.6.
func (e *Executor) Ping(ctx context.Context) error {
	res, err := e.gateway.Invoke(ctx, "ping", nil, nil)
	if err != nil {
		return err
	}
	if !res.Success {
		return &pingError{reason: res.Error}
	}
	return nil
}

type pingError struct{ reason string }

func (p *pingError) Error() string { return "toolexec: gateway ping failed: " + p.reason }

func authContextFrom(meta map[string]any) map[string]any {
	auth, _ := meta["auth"].(map[string]any)
	return auth
}
