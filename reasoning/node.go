package reasoning

import (
	"context"
	"encoding/json"

	"github.com/tltguild/tlt-core/agentgraph"
	"github.com/tltguild/tlt-core/internal/modelclient"
	"github.com/tltguild/tlt-core/internal/telemetry"
)

// Node implements agentgraph.ReasoningNode (C5): it composes a prompt,
// invokes a modelclient.Client bound to the fixed decision schema, and
// returns exactly one agentgraph.Decision (spec §4.5).
type Node struct {
	model   modelclient.Client
	log     telemetry.Logger
	modelID string
}

// New constructs a Node backed by model. modelID overrides the client's
// default model identifier when non-empty.
func New(model modelclient.Client, log telemetry.Logger, modelID string) *Node {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Node{model: model, log: log, modelID: modelID}
}

// fallbackDecision is returned whenever the model fails to produce a
// schema-conformant tool call (spec §4.5 "it synthesises a no-action
// Decision with confidence 0.1 and records the anomaly").
func fallbackDecision(reason string) agentgraph.Decision {
	return agentgraph.Decision{
		Type:       agentgraph.DecisionNoAction,
		Reasoning:  "no-action fallback: " + reason,
		Confidence: 0.1,
	}
}

// Decide implements agentgraph.ReasoningNode.
func (n *Node) Decide(ctx context.Context, state *agentgraph.State, event *agentgraph.IncomingEvent) (agentgraph.Decision, error) {
	var payload map[string]any
	if event.CloudEvent != nil {
		_ = event.CloudEvent.DataAs(&payload)
	} else if event.EventContext != nil {
		payload = event.EventContext
	}

	prompt := buildPrompt(state, event, payload)
	req := modelclient.Request{
		Model: n.modelID,
		Messages: []modelclient.Message{
			{Role: modelclient.RoleSystem, Parts: []modelclient.Part{modelclient.TextPart{Text: systemPrompt}}},
			{Role: modelclient.RoleUser, Parts: []modelclient.Part{modelclient.TextPart{Text: prompt}}},
		},
		Schema: modelclient.Schema{
			Name:        decisionSchemaName,
			Description: "Emit exactly one structured reasoning decision.",
			Definition:  decisionSchemaDefinition,
		},
		MaxTokens: 1024,
	}

	result, err := n.model.Submit(ctx, req)
	if err != nil {
		n.log.Warn(ctx, "reasoning: model call failed, falling back to no-action", "error", err)
		return fallbackDecision(err.Error()), nil
	}

	decision, err := parseDecision(result.Payload)
	if err != nil {
		n.log.Warn(ctx, "reasoning: parse failure, falling back to no-action", "error", err, "payload", string(result.Payload))
		return fallbackDecision(err.Error()), nil
	}

	if decision.Type == agentgraph.DecisionUseTool {
		decision = n.applyAnalysis(decision, event, payload)
	}
	return decision, nil
}

// applyAnalysis overrides the model's tool-name/argument choice with the
// fixed CloudEvent-to-tool-request analysis table (spec §4.5, P2): the model
// decides *that* a tool should be used, but the deterministic table decides
// *which* tool and *what* arguments.
func (n *Node) applyAnalysis(decision agentgraph.Decision, event *agentgraph.IncomingEvent, payload map[string]any) agentgraph.Decision {
	toolName, action, args := Analyze(event.Trigger, payload)
	if toolName == "" {
		// log-only rows (event-info) have no fixed mapping in the table, so
		// the model's own tool choice is kept as-is.
		return decision
	}
	decision.ToolName = toolName
	decision.Arguments = args
	if decision.Metadata == nil {
		decision.Metadata = map[string]any{}
	}
	decision.Metadata["action"] = action
	return decision
}

// MarshalDebugPayload is a small test/debug helper that serializes a
// decision payload for log inspection.
func MarshalDebugPayload(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
