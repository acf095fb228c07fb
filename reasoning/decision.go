// Package reasoning implements the reasoning node (C5): given Agent State
// and the event currently being processed, it builds a prompt, invokes a
// language model bound to a fixed decision schema, and produces exactly one
// structured agentgraph.Decision (spec §4.5).
package reasoning

import (
	"encoding/json"
	"errors"

	"github.com/tltguild/tlt-core/agentgraph"
	"github.com/tltguild/tlt-core/taskmanager"
)

// errUnknownDecisionType is returned by parseDecision when the model names a
// decision type outside the closed set in spec §3; the caller treats it the
// same as any other parse error (spec §4.5).
var errUnknownDecisionType = errors.New("reasoning: unknown decision type")

// decisionSchemaName is the structured-output tool name the model is bound
// to, mirroring spec §4.5's "AgentReasoningDecision".
const decisionSchemaName = "AgentReasoningDecision"

// agentReasoningDecision is the wire shape of the model's structured output;
// its field set mirrors the Decision entity (spec §3).
type agentReasoningDecision struct {
	DecisionType string         `json:"decision_type"`
	Reasoning    string         `json:"reasoning"`
	Confidence   float64        `json:"confidence"`
	Priority     string         `json:"priority,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	MessageContent string `json:"message_content,omitempty"`
	TargetChannel  string `json:"target_channel,omitempty"`

	TimerType    string `json:"timer_type,omitempty"`
	DelayMinutes int    `json:"delay_minutes,omitempty"`

	ToolName  string         `json:"tool_name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// decisionSchemaDefinition is the fixed JSON schema the model is bound to;
// decisionType enumerates the exact closed set from spec §3.
var decisionSchemaDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"decision_type": map[string]any{
			"type": "string",
			"enum": []string{
				string(agentgraph.DecisionSendMessage),
				string(agentgraph.DecisionScheduleTimer),
				string(agentgraph.DecisionUseTool),
				string(agentgraph.DecisionNoAction),
				string(agentgraph.DecisionUpdateEvent),
				string(agentgraph.DecisionCreateReminder),
			},
		},
		"reasoning":       map[string]any{"type": "string"},
		"confidence":      map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"priority":        map[string]any{"type": "string", "enum": []string{"low", "normal", "high", "urgent"}},
		"metadata":        map[string]any{"type": "object"},
		"message_content": map[string]any{"type": "string"},
		"target_channel":  map[string]any{"type": "string"},
		"timer_type":      map[string]any{"type": "string"},
		"delay_minutes":   map[string]any{"type": "integer"},
		"tool_name":       map[string]any{"type": "string"},
		"arguments":       map[string]any{"type": "object"},
	},
	"required": []string{"decision_type", "reasoning", "confidence"},
}

// parseDecision decodes the model's raw structured-output payload into an
// agentgraph.Decision. Unknown decision-type strings are treated as a parse
// failure so callers fall back to the fixed no-action decision (spec §4.5
// "Parse errors yield the same fallback").
func parseDecision(payload []byte) (agentgraph.Decision, error) {
	var wire agentReasoningDecision
	if err := json.Unmarshal(payload, &wire); err != nil {
		return agentgraph.Decision{}, err
	}
	dt := agentgraph.DecisionType(wire.DecisionType)
	if !validDecisionTypes[dt] {
		return agentgraph.Decision{}, errUnknownDecisionType
	}
	return agentgraph.Decision{
		Type:           dt,
		Reasoning:      wire.Reasoning,
		Confidence:     wire.Confidence,
		Priority:       priorityFromString(wire.Priority),
		Metadata:       wire.Metadata,
		MessageContent: wire.MessageContent,
		TargetChannel:  wire.TargetChannel,
		TimerType:      wire.TimerType,
		DelayMinutes:   wire.DelayMinutes,
		ToolName:       wire.ToolName,
		Arguments:      wire.Arguments,
	}, nil
}

// priorityFromString maps the model's free-text priority field onto the
// closed taskmanager.Priority set, defaulting to normal for anything else.
func priorityFromString(s string) taskmanager.Priority {
	switch s {
	case "low":
		return taskmanager.PriorityLow
	case "high":
		return taskmanager.PriorityHigh
	case "urgent":
		return taskmanager.PriorityUrgent
	default:
		return taskmanager.PriorityNormal
	}
}

var validDecisionTypes = map[agentgraph.DecisionType]bool{
	agentgraph.DecisionSendMessage:    true,
	agentgraph.DecisionScheduleTimer:  true,
	agentgraph.DecisionUseTool:        true,
	agentgraph.DecisionNoAction:       true,
	agentgraph.DecisionUpdateEvent:    true,
	agentgraph.DecisionCreateReminder: true,
}
