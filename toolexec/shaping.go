package toolexec

import "time"

// ShapeArguments implements the per-service argument-shaping policy of spec
// §4.6, P5: flatten nested chat/interaction data, drop forbidden keys (e.g.
// "action"), parse ISO timestamps and omit malformed ones. Identifier values
// are forwarded as given; their format is not normalized.
func ShapeArguments(toolName, action string, in map[string]any) map[string]any {
	switch toolName {
	case "event-manager":
		return shapeEventManager(in)
	case "rsvp":
		return shapeRSVP(in)
	case "photo-vibe-check":
		return shapePhotoVibeCheck(action, in)
	default:
		return dropForbidden(in)
	}
}

// forbiddenKeys are stripped from every shaped argument map (P5: "the
// forwarded arguments never contain the key action").
var forbiddenKeys = map[string]bool{"action": true}

func dropForbidden(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if forbiddenKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// shapeEventManager flattens {event_data, interaction_data, guild_id,
// event_id} into {title, created_by, guild_id, event_id, description,
// location, start_time, metadata} (spec §4.6).
func shapeEventManager(in map[string]any) map[string]any {
	out := map[string]any{}

	eventData, _ := in["event_data"].(map[string]any)
	interactionData, _ := in["interaction_data"].(map[string]any)

	if eventData != nil {
		if topic, ok := eventData["topic"].(string); ok {
			out["title"] = topic
		}
	}
	if interactionData != nil {
		if userID, ok := interactionData["user_id"].(string); ok {
			out["created_by"] = userID
		}
		if guildID, ok := interactionData["guild_id"].(string); ok {
			out["guild_id"] = guildID
		}
	}
	if v, ok := in["guild_id"].(string); ok && v != "" {
		out["guild_id"] = v
	}
	if v, ok := in["event_id"].(string); ok && v != "" {
		out["event_id"] = v
	}

	var location, timeStr string
	if eventData != nil {
		if v, ok := eventData["location"].(string); ok {
			location = v
			out["location"] = v
		}
		if v, ok := eventData["time"].(string); ok {
			timeStr = v
		}
	}
	out["description"] = buildDescription(location, timeStr)

	if timeStr != "" {
		if _, err := time.Parse(time.RFC3339, timeStr); err == nil {
			out["start_time"] = timeStr
		}
	}

	out["metadata"] = metadataFrom(in, eventData, interactionData)
	return out
}

// buildDescription composes a human-readable description from location and
// time parts when present (spec §4.6).
func buildDescription(location, timeStr string) string {
	switch {
	case location != "" && timeStr != "":
		return location + " at " + timeStr
	case location != "":
		return location
	case timeStr != "":
		return timeStr
	default:
		return ""
	}
}

func metadataFrom(in, eventData, interactionData map[string]any) map[string]any {
	meta := map[string]any{}
	if eventData != nil {
		if v, ok := eventData["message_id"]; ok {
			meta["message_id"] = v
		}
	}
	if interactionData != nil {
		if v, ok := interactionData["channel_id"]; ok {
			meta["channel_id"] = v
		}
		if v, ok := interactionData["user_name"]; ok {
			meta["user_name"] = v
		}
	}
	if v, ok := in["task_id"]; ok {
		meta["task_id"] = v
	}
	return meta
}

// shapeRSVP forwards the envelope as {guild_id, event_id, user_id,
// rsvp_type, emoji, metadata} (spec §4.6).
func shapeRSVP(in map[string]any) map[string]any {
	out := map[string]any{}
	for _, k := range []string{"guild_id", "event_id", "user_id", "rsvp_type", "emoji"} {
		if v, ok := in[k]; ok {
			out[k] = v
		}
	}
	out["metadata"] = metadataFrom(in, nil, nil)
	return out
}

// shapePhotoVibeCheck maps the payload to {guild_id, event_id, user_id,
// photo_url, local_path, metadata} for submit_photo_dm; guild_id resolves from arguments
// or payload metadata, and "action" is stripped (spec §4.6).
func shapePhotoVibeCheck(action string, in map[string]any) map[string]any {
	out := map[string]any{}
	guildID, _ := in["guild_id"].(string)
	if guildID == "" {
		if meta, ok := in["metadata"].(map[string]any); ok {
			guildID, _ = meta["guild_id"].(string)
		}
	}
	if guildID != "" {
		out["guild_id"] = guildID
	}
	for _, k := range []string{"event_id", "user_id", "photo_url", "local_path"} {
		if v, ok := in[k]; ok {
			out[k] = v
		}
	}
	out["metadata"] = metadataFrom(in, nil, nil)
	return out
}
