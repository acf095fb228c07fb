// Package cloudevent defines the CloudEvent envelope, the closed taxonomy of
// event types the dispatch pipeline accepts, and one typed factory per type
// (spec §3, §4.1, §6). Envelopes are built on top of
// github.com/cloudevents/sdk-go/v2 so extension attributes, spec-version
// handling, and content negotiation reuse the canonical CloudEvents
// implementation rather than a hand-rolled envelope.
package cloudevent

// Type is a CloudEvent type string. The dispatch pipeline only accepts the
// closed set enumerated below; any other value is rejected with a
// validation-error (spec §3 invariant, §6 namespace).
type Type string

// The closed CloudEvent type namespace (spec §6). All types live under the
// reserved reverse-DNS namespace "com.tlt.chat".
const (
	TypeCreateEvent           Type = "com.tlt.chat.create-event"
	TypeUpdateEvent           Type = "com.tlt.chat.update-event"
	TypeDeleteEvent           Type = "com.tlt.chat.delete-event"
	TypeListEvents            Type = "com.tlt.chat.list-events"
	TypeEventInfo             Type = "com.tlt.chat.event-info"
	TypeRegisterGuild         Type = "com.tlt.chat.register-guild"
	TypeDeregisterGuild       Type = "com.tlt.chat.deregister-guild"
	TypeRSVPEvent             Type = "com.tlt.chat.rsvp-event"
	TypePhotoVibeCheck        Type = "com.tlt.chat.photo-vibe-check"
	TypePromotionImage        Type = "com.tlt.chat.promotion-image"
	TypeVibeAction            Type = "com.tlt.chat.vibe-action"
	TypeSaveEventToGuildData  Type = "com.tlt.chat.save-event-to-guild-data"
	TypeTimerTrigger          Type = "com.tlt.chat.timer-trigger"
	TypeChatMessage           Type = "com.tlt.chat.message"
)

// validTypes backs IsValid with O(1) membership checks.
var validTypes = map[Type]bool{
	TypeCreateEvent:          true,
	TypeUpdateEvent:          true,
	TypeDeleteEvent:          true,
	TypeListEvents:           true,
	TypeEventInfo:            true,
	TypeRegisterGuild:        true,
	TypeDeregisterGuild:      true,
	TypeRSVPEvent:            true,
	TypePhotoVibeCheck:       true,
	TypePromotionImage:       true,
	TypeVibeAction:           true,
	TypeSaveEventToGuildData: true,
	TypeTimerTrigger:         true,
	TypeChatMessage:          true,
}

// IsValid reports whether t belongs to the closed CloudEvent type namespace.
func IsValid(t Type) bool { return validTypes[t] }

// SpecVersion is the fixed CloudEvents spec version this pipeline emits.
const SpecVersion = "1.0"

// DefaultDataContentType is used when a factory does not override it.
const DefaultDataContentType = "application/json"
