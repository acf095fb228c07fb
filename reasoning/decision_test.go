package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tltguild/tlt-core/agentgraph"
	"github.com/tltguild/tlt-core/taskmanager"
)

func TestParseDecision_UseTool(t *testing.T) {
	payload := []byte(`{
		"decision_type": "use-tool",
		"reasoning": "the event needs to be created",
		"confidence": 0.9,
		"priority": "high",
		"tool_name": "event-manager",
		"arguments": {"title": "Launch"}
	}`)
	d, err := parseDecision(payload)
	require.NoError(t, err)
	assert.Equal(t, agentgraph.DecisionUseTool, d.Type)
	assert.Equal(t, taskmanager.PriorityHigh, d.Priority)
	assert.Equal(t, "event-manager", d.ToolName)
	assert.Equal(t, "Launch", d.Arguments["title"])
}

func TestParseDecision_UnknownTypeIsParseError(t *testing.T) {
	payload := []byte(`{"decision_type": "teleport", "reasoning": "nope", "confidence": 0.5}`)
	_, err := parseDecision(payload)
	assert.ErrorIs(t, err, errUnknownDecisionType)
}

func TestParseDecision_MalformedJSONIsParseError(t *testing.T) {
	_, err := parseDecision([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseDecision_UnknownPriorityDefaultsToNormal(t *testing.T) {
	payload := []byte(`{"decision_type": "no-action", "reasoning": "n/a", "confidence": 0.1, "priority": "whenever"}`)
	d, err := parseDecision(payload)
	require.NoError(t, err)
	assert.Equal(t, taskmanager.PriorityNormal, d.Priority)
}

// TestFallbackDecision matches spec §4.5: "it synthesises a no-action
// Decision with confidence 0.1 and records the anomaly."
func TestFallbackDecision(t *testing.T) {
	d := fallbackDecision("boom")
	assert.Equal(t, agentgraph.DecisionNoAction, d.Type)
	assert.Equal(t, 0.1, d.Confidence)
	assert.Contains(t, d.Reasoning, "boom")
}
