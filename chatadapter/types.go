// Package chatadapter implements the chat adapter dispatcher (C2): it
// classifies inbound chat-platform interactions into CloudEvents, enforces
// the one moderation rule named in spec §4.2, downloads attachments to a
// deterministic path before emitting photo/promotion CloudEvents, posts the
// resulting envelope to the Task Manager's ingress endpoint, and polls the
// snapshot endpoint to apply outbound actions back onto the chat platform.
//
// The chat-platform SDK itself (slash commands, modals, reactions) is out
// of scope per spec §1 — it is represented here only through the Platform
// interface this package consumes.
package chatadapter

import "time"

// InteractionKind is the closed set of chat-platform interaction shapes the
// classifier recognizes (spec §4.2 classification table).
type InteractionKind string

const (
	KindSlashCreateEvent InteractionKind = "slash-create-event"
	KindSlashUpdateEvent InteractionKind = "slash-update-event"
	KindSlashDeleteEvent InteractionKind = "slash-delete-event"
	KindSlashListEvents  InteractionKind = "slash-list-events"
	KindSlashEventInfo   InteractionKind = "slash-event-info"
	KindReactionAdd      InteractionKind = "reaction-add"
	KindReactionRemove   InteractionKind = "reaction-remove"
	KindDMImageUpload    InteractionKind = "dm-image-upload"
	KindPromotionUpload  InteractionKind = "promotion-upload"
	KindGuildJoinAdmin   InteractionKind = "guild-join-admin"
	KindGuildLeaveAdmin  InteractionKind = "guild-leave-admin"
	KindTimerCallback    InteractionKind = "timer-callback"
	KindThreadText       InteractionKind = "thread-text"
)

// Attachment is one binary upload carried by an interaction (image in a DM,
// a promotion upload, or a thread photo submission).
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
}

// Interaction is the normalized shape of one chat-platform event, already
// stripped of SDK-specific types so the classifier and dispatcher never
// depend on the platform library directly.
type Interaction struct {
	Kind      InteractionKind
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	UserName  string
	Content   string
	Emoji     string

	// EventID is known for interactions already scoped to an event (reaction
	// on an event post, thread photo submission, update/delete/info commands).
	EventID string

	// Topic/Location/Time back create/update-event slash commands.
	Topic    string
	Location string
	Time     string

	// AdminUserID/GuildName/Settings back register/deregister-guild.
	AdminUserID string
	GuildName   string
	Settings    map[string]string

	// TimerID/TimerType back timer callbacks.
	TimerID   string
	TimerType string

	Attachments []Attachment
	ReceivedAt  time.Time
}

// Action is one unit of work the snapshot poller applies back onto the chat
// platform (spec §4.2 "apply returned actions: outbound messages, embed
// updates, user notifications").
type Action struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Content   string
	Kind      ActionKind
}

// ActionKind distinguishes the three action shapes the snapshot endpoint
// returns (spec §4.2).
type ActionKind string

const (
	ActionOutboundMessage   ActionKind = "outbound-message"
	ActionEmbedUpdate       ActionKind = "embed-update"
	ActionUserNotification  ActionKind = "user-notification"
)
