package reasoning

import (
	"fmt"

	"github.com/tltguild/tlt-core/taskmanager"
)

// analysisEntry is one row of the fixed CloudEvent-to-tool-request analysis
// table (spec §4.5, informative table). toolName is empty for the log-only
// row (event-info), where the node keeps the model's own tool choice;
// action is empty for the vibe-action row.
type analysisEntry struct {
	toolName         string
	action           string
	defaultConfidence float64
}

// analysisTable mirrors the fixed table in spec §4.5 exactly; it is the
// deterministic part of the reasoning node's use-tool decisions (P2): the
// language model chooses the decision type, but for every row with a tool
// name, tool name and action for a use-tool decision come from this table,
// never the model's own wording. For the event-info row and for triggers
// without a row, the model's tool choice stands.
var analysisTable = map[taskmanager.TriggerType]analysisEntry{
	taskmanager.TriggerCreateEvent:          {toolName: "event-manager", action: "create_event", defaultConfidence: 0.9},
	taskmanager.TriggerUpdateEvent:          {toolName: "event-manager", action: "update_event", defaultConfidence: 0.9},
	taskmanager.TriggerDeleteEvent:          {toolName: "event-manager", action: "delete_event", defaultConfidence: 0.9},
	taskmanager.TriggerListEvents:           {toolName: "event-manager", action: "list_all_events", defaultConfidence: 0.8},
	taskmanager.TriggerEventInfo:            {toolName: "", action: "log-only", defaultConfidence: 0.5},
	taskmanager.TriggerRSVPEvent:            {toolName: "rsvp", action: "process_rsvp", defaultConfidence: 0.9},
	taskmanager.TriggerRegisterGuild:        {toolName: "guild-manager", action: "register_guild", defaultConfidence: 0.9},
	taskmanager.TriggerDeregisterGuild:      {toolName: "guild-manager", action: "deregister_guild", defaultConfidence: 0.9},
	taskmanager.TriggerPhotoVibeCheck:       {toolName: "photo-vibe-check", action: "submit_photo_dm", defaultConfidence: 0.85},
	taskmanager.TriggerPromotionImage:       {toolName: "photo-vibe-check", action: "add_pre_event_photos", defaultConfidence: 0.85},
	taskmanager.TriggerVibeAction:           {toolName: "vibe-canvas", action: "", defaultConfidence: 0.7},
	taskmanager.TriggerSaveEventToGuildData: {toolName: "event-manager", action: "save_event_to_guild_data", defaultConfidence: 0.9},
}

// Analyze returns the deterministic (tool-name, action, arguments) triple
// for trigger given the event's JSON-safe payload (spec §4.5, P2). The
// result is identical up to map-key ordering for any two calls with
// equivalent input.
func Analyze(trigger taskmanager.TriggerType, payload map[string]any) (toolName, action string, arguments map[string]any) {
	entry, ok := analysisTable[trigger]
	if !ok {
		return "", "", nil
	}
	return entry.toolName, entry.action, shapeArguments(payload)
}

// shapeArguments copies the payload into a fresh map so callers never
// observe shared backing storage, satisfying the "identical up to map-key
// ordering" half of P2 without aliasing the source map.
func shapeArguments(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

// guidanceFor renders the one-line per-trigger-type prompt guidance named in
// spec §4.5 ("e.g. create-event -> use-tool with tool name event-manager").
func guidanceFor(trigger taskmanager.TriggerType) string {
	entry, ok := analysisTable[trigger]
	if !ok || entry.toolName == "" {
		return fmt.Sprintf("%s: use your judgement; no fixed tool mapping exists for this trigger.", trigger)
	}
	return fmt.Sprintf("%s: prefer use-tool with tool name %q (%s).", trigger, entry.toolName, entry.action)
}
