package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tltguild/tlt-core/taskmanager"
)

// TestAnalyze_DeterministicAcrossCalls exercises P2: for every CloudEvent
// type in the closed set, the analysis table returns a deterministic
// (tool-name, action, arguments) triple identical up to map-key ordering.
func TestAnalyze_DeterministicAcrossCalls(t *testing.T) {
	payload := map[string]any{"guild_id": "100", "event_id": "42"}

	for trigger, want := range analysisTable {
		toolName1, action1, args1 := Analyze(trigger, payload)
		toolName2, action2, args2 := Analyze(trigger, payload)

		assert.Equal(t, want.toolName, toolName1)
		assert.Equal(t, want.action, action1)
		assert.Equal(t, toolName1, toolName2)
		assert.Equal(t, action1, action2)
		assert.Equal(t, args1, args2)
	}
}

// TestAnalyze_FixedRows spot-checks the table rows named explicitly in
// spec §4.5 so a future table edit that breaks one of them fails loudly.
func TestAnalyze_FixedRows(t *testing.T) {
	cases := []struct {
		trigger    taskmanager.TriggerType
		toolName   string
		action     string
	}{
		{taskmanager.TriggerCreateEvent, "event-manager", "create_event"},
		{taskmanager.TriggerUpdateEvent, "event-manager", "update_event"},
		{taskmanager.TriggerDeleteEvent, "event-manager", "delete_event"},
		{taskmanager.TriggerListEvents, "event-manager", "list_all_events"},
		{taskmanager.TriggerRSVPEvent, "rsvp", "process_rsvp"},
		{taskmanager.TriggerRegisterGuild, "guild-manager", "register_guild"},
		{taskmanager.TriggerDeregisterGuild, "guild-manager", "deregister_guild"},
		{taskmanager.TriggerPhotoVibeCheck, "photo-vibe-check", "submit_photo_dm"},
		{taskmanager.TriggerPromotionImage, "photo-vibe-check", "add_pre_event_photos"},
		{taskmanager.TriggerSaveEventToGuildData, "event-manager", "save_event_to_guild_data"},
	}
	for _, c := range cases {
		toolName, action, _ := Analyze(c.trigger, nil)
		assert.Equal(t, c.toolName, toolName, "trigger %s", c.trigger)
		assert.Equal(t, c.action, action, "trigger %s", c.trigger)
	}
}

// TestAnalyze_EventInfoIsLogOnly covers the one row with no fixed tool
// mapping (spec §4.5 table: event-info -> "(none) / log-only").
func TestAnalyze_EventInfoIsLogOnly(t *testing.T) {
	toolName, action, _ := Analyze(taskmanager.TriggerEventInfo, nil)
	assert.Empty(t, toolName)
	assert.Equal(t, "log-only", action)
}

// TestAnalyze_UnknownTriggerReturnsEmpty covers triggers absent from the
// table (chat_message, timer) falling through to an empty triple rather
// than panicking.
func TestAnalyze_UnknownTriggerReturnsEmpty(t *testing.T) {
	toolName, action, args := Analyze(taskmanager.TriggerChatMessage, map[string]any{"x": 1})
	assert.Empty(t, toolName)
	assert.Empty(t, action)
	assert.Nil(t, args)
}

// TestShapeArguments_DoesNotAliasInput guards the "fresh map" contract
// shapeArguments documents: mutating the returned map must not affect the
// caller's original payload.
func TestShapeArguments_DoesNotAliasInput(t *testing.T) {
	in := map[string]any{"a": 1}
	out := shapeArguments(in)
	out["a"] = 2
	require.Equal(t, 1, in["a"])
}

func TestGuidanceFor_KnownAndUnknownTrigger(t *testing.T) {
	known := guidanceFor(taskmanager.TriggerCreateEvent)
	assert.Contains(t, known, "event-manager")
	assert.Contains(t, known, "create_event")

	unknown := guidanceFor(taskmanager.TriggerChatMessage)
	assert.Contains(t, unknown, "no fixed tool mapping")
}
