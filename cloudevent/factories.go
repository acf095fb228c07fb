package cloudevent

import "fmt"

// NewCreateEvent builds a com.tlt.chat.create-event envelope. Subject is
// derived from the semantically meaningful message identifier the slash
// command modal was opened from, falling back to the topic when no message
// id is available (spec §4.1 "subject string derived from semantically
// meaningful identifiers").
func NewCreateEvent(guildID, channelID string, payload CreateEventPayload, opts ...Option) (Event, error) {
	subject := payload.EventData.MessageID
	if subject == "" {
		subject = payload.EventData.Topic
	}
	return build(TypeCreateEvent, source(guildID, channelID), subject, payload, opts...)
}

// NewUpdateEvent builds a com.tlt.chat.update-event envelope.
func NewUpdateEvent(guildID, channelID string, payload UpdateEventPayload, opts ...Option) (Event, error) {
	return build(TypeUpdateEvent, source(guildID, channelID), payload.EventID, payload, opts...)
}

// NewDeleteEvent builds a com.tlt.chat.delete-event envelope.
func NewDeleteEvent(guildID, channelID string, payload DeleteEventPayload, opts ...Option) (Event, error) {
	return build(TypeDeleteEvent, source(guildID, channelID), payload.EventID, payload, opts...)
}

// NewListEvents builds a com.tlt.chat.list-events envelope.
func NewListEvents(guildID, channelID string, payload ListEventsPayload, opts ...Option) (Event, error) {
	return build(TypeListEvents, source(guildID, channelID), payload.GuildID, payload, opts...)
}

// NewEventInfo builds a com.tlt.chat.event-info envelope.
func NewEventInfo(guildID, channelID string, payload EventInfoPayload, opts ...Option) (Event, error) {
	return build(TypeEventInfo, source(guildID, channelID), payload.EventID, payload, opts...)
}

// NewRegisterGuild builds a com.tlt.chat.register-guild envelope. Channel is
// always empty: guild registration is a guild-scoped, not channel-scoped, action.
func NewRegisterGuild(payload RegisterGuildPayload, opts ...Option) (Event, error) {
	return build(TypeRegisterGuild, source(payload.GuildID, ""), payload.GuildID, payload, opts...)
}

// NewDeregisterGuild builds a com.tlt.chat.deregister-guild envelope.
func NewDeregisterGuild(payload DeregisterGuildPayload, opts ...Option) (Event, error) {
	return build(TypeDeregisterGuild, source(payload.GuildID, ""), payload.GuildID, payload, opts...)
}

// NewRSVPEvent builds a com.tlt.chat.rsvp-event envelope.
func NewRSVPEvent(channelID string, payload RSVPEventPayload, opts ...Option) (Event, error) {
	return build(TypeRSVPEvent, source(payload.GuildID, channelID), payload.EventID, payload, opts...)
}

// NewPhotoVibeCheck builds a com.tlt.chat.photo-vibe-check envelope.
func NewPhotoVibeCheck(payload PhotoVibeCheckPayload, opts ...Option) (Event, error) {
	subject := fmt.Sprintf("%s/%s", payload.EventID, payload.UserID)
	return build(TypePhotoVibeCheck, source(payload.GuildID, ""), subject, payload, opts...)
}

// NewPromotionImage builds a com.tlt.chat.promotion-image envelope.
func NewPromotionImage(payload PromotionImagePayload, opts ...Option) (Event, error) {
	subject := fmt.Sprintf("%s/%s", payload.EventID, payload.UserID)
	return build(TypePromotionImage, source(payload.GuildID, ""), subject, payload, opts...)
}

// NewVibeAction builds a com.tlt.chat.vibe-action envelope.
func NewVibeAction(payload VibeActionPayload, opts ...Option) (Event, error) {
	subject := fmt.Sprintf("%s/%s", payload.EventID, payload.Action)
	return build(TypeVibeAction, source(payload.GuildID, ""), subject, payload, opts...)
}

// NewSaveEventToGuildData builds a com.tlt.chat.save-event-to-guild-data envelope.
func NewSaveEventToGuildData(payload SaveEventToGuildDataPayload, opts ...Option) (Event, error) {
	return build(TypeSaveEventToGuildData, source(payload.GuildID, ""), payload.EventID, payload, opts...)
}

// NewTimerTrigger builds a com.tlt.chat.timer-trigger envelope. guildID may
// be unknown at schedule time for cross-guild timers; callers pass the best
// available scope.
func NewTimerTrigger(guildID string, payload TimerTriggerPayload, opts ...Option) (Event, error) {
	return build(TypeTimerTrigger, source(guildID, ""), payload.TimerID, payload, opts...)
}

// NewChatMessage builds a com.tlt.chat.message envelope.
func NewChatMessage(payload ChatMessagePayload, opts ...Option) (Event, error) {
	return build(TypeChatMessage, source(payload.GuildID, payload.ChannelID), payload.MessageID, payload, opts...)
}
