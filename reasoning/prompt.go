package reasoning

import (
	"fmt"
	"strings"

	"github.com/tltguild/tlt-core/agentgraph"
)

// systemPrompt enumerates the allowed decision types and the tools the agent
// may request, fixed per spec §4.5 ("a fixed system message").
const systemPrompt = `You are the reasoning node of a guild event-management coordinator.
For the event you are given, respond with exactly one decision using the ` + decisionSchemaName + ` tool.
decision_type must be one of: send-message, schedule-timer, use-tool, no-action, update-event, create-reminder.
Tools you may request via use-tool: event-manager, rsvp, guild-manager, photo-vibe-check, vibe-canvas.
Prefer the fixed per-trigger-type tool mapping given in the user message when one is named.`

// buildPrompt composes the user message embedding a JSON-safe projection of
// context: event type, recent-activity summary, per-trigger guidance, and
// the full CloudEvent payload when present (spec §4.5).
func buildPrompt(state *agentgraph.State, event *agentgraph.IncomingEvent, payload map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "event_type: %s\n", event.Trigger)
	fmt.Fprintf(&b, "guidance: %s\n", guidanceFor(event.Trigger))
	b.WriteString("recent_decisions:\n")
	for _, d := range lastN(state.RecentDecisions, 5) {
		fmt.Fprintf(&b, "  - %s (confidence %.2f): %s\n", d.Type, d.Confidence, d.Reasoning)
	}
	b.WriteString("recent_tool_calls:\n")
	for _, c := range lastNCalls(state.ToolCallHistory, 3) {
		fmt.Fprintf(&b, "  - %s success=%v\n", c.ToolName, c.Success)
	}
	if payload != nil {
		fmt.Fprintf(&b, "cloudevent_payload: %v\n", payload)
	}
	return b.String()
}

func lastN(d []agentgraph.Decision, n int) []agentgraph.Decision {
	if len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}

func lastNCalls(c []agentgraph.ToolCallRecord, n int) []agentgraph.ToolCallRecord {
	if len(c) <= n {
		return c
	}
	return c[len(c)-n:]
}
