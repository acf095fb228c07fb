package cloudevent

// Payload types fix the field set an implementer must accept for each
// CloudEvent type (spec §3). `validate` tags back the required-field checks
// performed by Factory functions via github.com/go-playground/validator.

// EventData carries the user-facing fields of an event as entered through
// the chat platform's slash-command modal.
type EventData struct {
	Topic     string `json:"topic" validate:"required"`
	Location  string `json:"location"`
	Time      string `json:"time"`
	MessageID string `json:"message_id"`
}

// InteractionData carries who/where context for a chat interaction.
type InteractionData struct {
	UserID    string `json:"user_id" validate:"required"`
	UserName  string `json:"user_name"`
	GuildID   string `json:"guild_id" validate:"required"`
	ChannelID string `json:"channel_id"`
}

// CreateEventPayload is the data for com.tlt.chat.create-event.
type CreateEventPayload struct {
	EventData       EventData       `json:"event_data" validate:"required"`
	InteractionData InteractionData `json:"interaction_data" validate:"required"`
}

// UpdateEventPayload is the data for com.tlt.chat.update-event.
type UpdateEventPayload struct {
	EventID         string          `json:"event_id" validate:"required"`
	EventData       EventData       `json:"event_data"`
	InteractionData InteractionData `json:"interaction_data" validate:"required"`
}

// DeleteEventPayload is the data for com.tlt.chat.delete-event.
type DeleteEventPayload struct {
	EventID         string          `json:"event_id" validate:"required"`
	InteractionData InteractionData `json:"interaction_data" validate:"required"`
}

// ListEventsPayload is the data for com.tlt.chat.list-events.
type ListEventsPayload struct {
	GuildID         string          `json:"guild_id" validate:"required"`
	InteractionData InteractionData `json:"interaction_data"`
}

// EventInfoPayload is the data for com.tlt.chat.event-info.
type EventInfoPayload struct {
	EventID         string          `json:"event_id" validate:"required"`
	InteractionData InteractionData `json:"interaction_data"`
}

// RegisterGuildPayload is the data for com.tlt.chat.register-guild.
type RegisterGuildPayload struct {
	GuildID     string            `json:"guild_id" validate:"required"`
	GuildName   string            `json:"guild_name"`
	AdminUserID string            `json:"admin_user_id" validate:"required"`
	Settings    map[string]string `json:"settings"`
}

// DeregisterGuildPayload is the data for com.tlt.chat.deregister-guild.
type DeregisterGuildPayload struct {
	GuildID     string `json:"guild_id" validate:"required"`
	AdminUserID string `json:"admin_user_id" validate:"required"`
}

// RSVPEventPayload is the data for com.tlt.chat.rsvp-event.
type RSVPEventPayload struct {
	GuildID  string `json:"guild_id" validate:"required"`
	EventID  string `json:"event_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	RSVPType string `json:"rsvp_type" validate:"required"`
	Emoji    string `json:"emoji"`
}

// PhotoVibeCheckPayload is the data for com.tlt.chat.photo-vibe-check.
type PhotoVibeCheckPayload struct {
	GuildID   string `json:"guild_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	PhotoURL  string `json:"photo_url" validate:"required"`
	LocalPath string `json:"local_path"`
}

// PromotionImagePayload is the data for com.tlt.chat.promotion-image.
type PromotionImagePayload struct {
	GuildID   string `json:"guild_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	PhotoURL  string `json:"photo_url" validate:"required"`
	LocalPath string `json:"local_path"`
}

// VibeActionPayload is the data for com.tlt.chat.vibe-action (a placement or
// canvas management action originating from the shared vibe-canvas).
type VibeActionPayload struct {
	GuildID string         `json:"guild_id" validate:"required"`
	EventID string         `json:"event_id" validate:"required"`
	UserID  string         `json:"user_id" validate:"required"`
	Action  string         `json:"action" validate:"required"`
	Args    map[string]any `json:"args"`
}

// SaveEventToGuildDataPayload is the data for com.tlt.chat.save-event-to-guild-data.
type SaveEventToGuildDataPayload struct {
	GuildID string         `json:"guild_id" validate:"required"`
	EventID string         `json:"event_id" validate:"required"`
	Data    map[string]any `json:"data" validate:"required"`
}

// TimerTriggerPayload is the data for com.tlt.chat.timer-trigger.
type TimerTriggerPayload struct {
	TimerID   string `json:"timer_id" validate:"required"`
	EventID   string `json:"event_id"`
	TimerType string `json:"timer_type" validate:"required"`
}

// ChatMessagePayload is the data for com.tlt.chat.message.
type ChatMessagePayload struct {
	GuildID         string          `json:"guild_id" validate:"required"`
	ChannelID       string          `json:"channel_id" validate:"required"`
	MessageID       string          `json:"message_id"`
	InteractionData InteractionData `json:"interaction_data" validate:"required"`
	Content         string          `json:"content"`
}
