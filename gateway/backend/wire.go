package backend

// toolsByService lists the tools each back-end exposes, for populating a
// gateway.Registry at startup (spec §4.7 tool catalog).
var toolsByService = map[string][]string{
	"event-manager": {
		"create_event", "update_event", "delete_event", "list_events",
		"get_event_info", "save_event_to_guild_data",
	},
	"rsvp": {
		"process_rsvp",
	},
	"guild-manager": {
		"register_guild", "deregister_guild",
	},
	"photo-vibe-check": {
		"submit_photo_dm", "submit_promotion_image",
	},
	"vibe-canvas": {
		"place_vibe_action", "get_canvas_state",
	},
}

// Tools returns the tool names service exposes, or nil if service is unknown.
func Tools(service string) []string {
	return toolsByService[service]
}

// Services lists every back-end tag known to the coordinator.
func Services() []string {
	out := make([]string, 0, len(toolsByService))
	for svc := range toolsByService {
		out = append(out, svc)
	}
	return out
}
