package cloudevent_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tltguild/tlt-core/cloudevent"
)

func TestNewCreateEvent(t *testing.T) {
	payload := cloudevent.CreateEventPayload{
		EventData: cloudevent.EventData{Topic: "board game night"},
		InteractionData: cloudevent.InteractionData{
			UserID:  "u1",
			GuildID: "g1",
		},
	}

	ev, err := cloudevent.NewCreateEvent("g1", "c1", payload)
	require.NoError(t, err)
	assert.Equal(t, cloudevent.TypeCreateEvent, ev.Type())
	assert.Equal(t, "/chat/g1/c1", ev.Source())
	assert.Equal(t, "board game night", ev.Subject())
	assert.NotEmpty(t, ev.ID())
	assert.WithinDuration(t, time.Now().UTC(), ev.Time(), 5*time.Second)

	var decoded cloudevent.CreateEventPayload
	require.NoError(t, ev.DataAs(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewCreateEvent_MissingRequiredField(t *testing.T) {
	payload := cloudevent.CreateEventPayload{
		InteractionData: cloudevent.InteractionData{UserID: "u1", GuildID: "g1"},
	}
	_, err := cloudevent.NewCreateEvent("g1", "c1", payload)
	require.Error(t, err)
}

func TestNewCreateEvent_EmptySource(t *testing.T) {
	payload := cloudevent.CreateEventPayload{
		EventData:       cloudevent.EventData{Topic: "x"},
		InteractionData: cloudevent.InteractionData{UserID: "u1", GuildID: "g1"},
	}
	_, err := cloudevent.NewCreateEvent("", "", payload)
	require.Error(t, err)
}

func TestNewRegisterGuild_NoChannelSegment(t *testing.T) {
	ev, err := cloudevent.NewRegisterGuild(cloudevent.RegisterGuildPayload{
		GuildID:     "g1",
		AdminUserID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "/chat/g1", ev.Source())
}

func TestNewPhotoVibeCheck_SubjectComposesUserAndEvent(t *testing.T) {
	ev, err := cloudevent.NewPhotoVibeCheck(cloudevent.PhotoVibeCheckPayload{
		GuildID:  "g1",
		EventID:  "e1",
		UserID:   "u1",
		PhotoURL: "https://example.com/p.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "e1/u1", ev.Subject())
}

func TestWithID_WithTime_Overrides(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev, err := cloudevent.NewDeregisterGuild(
		cloudevent.DeregisterGuildPayload{GuildID: "g1", AdminUserID: "u1"},
		cloudevent.WithID("fixed-id"),
		cloudevent.WithTime(fixed),
	)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", ev.ID())
	assert.Equal(t, fixed, ev.Time())
}

// TestMarshalJSON_FieldOrder locks down the canonical field order required by
// spec §4.1: specversion, type, source, id, time, datacontenttype, subject, data.
func TestMarshalJSON_FieldOrder(t *testing.T) {
	ev, err := cloudevent.NewRegisterGuild(cloudevent.RegisterGuildPayload{
		GuildID:     "g1",
		AdminUserID: "u1",
	}, cloudevent.WithID("id-1"), cloudevent.WithTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))

	expectedOrder := []string{"specversion", "type", "source", "id", "time", "datacontenttype", "subject", "data"}
	seen := 0
	for i, key := range expectedOrder {
		idx := indexOfKey(string(b), key)
		require.Greaterf(t, idx, -1, "key %q missing from %s", key, b)
		if i > 0 {
			prevIdx := indexOfKey(string(b), expectedOrder[i-1])
			assert.Greaterf(t, idx, prevIdx, "key %q should follow %q", key, expectedOrder[i-1])
		}
		seen++
	}
	assert.Equal(t, len(expectedOrder), seen)
}

func indexOfKey(doc, key string) int {
	needle := `"` + key + `"`
	for i := 0; i+len(needle) <= len(doc); i++ {
		if doc[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// TestRoundTrip_PreservesEnvelope covers P3 (encode/decode round-trip fidelity).
func TestRoundTrip_PreservesEnvelope(t *testing.T) {
	original, err := cloudevent.NewRSVPEvent("c1", cloudevent.RSVPEventPayload{
		GuildID:  "g1",
		EventID:  "e1",
		UserID:   "u1",
		RSVPType: "going",
		Emoji:    "✅",
	})
	require.NoError(t, err)

	b, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded cloudevent.Event
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.Equal(t, original.Type(), decoded.Type())
	assert.Equal(t, original.ID(), decoded.ID())
	assert.Equal(t, original.Source(), decoded.Source())
	assert.Equal(t, original.Subject(), decoded.Subject())
	assert.Equal(t, original.Time().Truncate(time.Second), decoded.Time())

	var payload cloudevent.RSVPEventPayload
	require.NoError(t, decoded.DataAs(&payload))
	assert.Equal(t, "going", payload.RSVPType)
}

// TestIsValid_ClosedNamespace exercises P1: only the 14 declared types are
// ever accepted, every other string is rejected.
func TestIsValid_ClosedNamespace(t *testing.T) {
	known := []cloudevent.Type{
		cloudevent.TypeCreateEvent, cloudevent.TypeUpdateEvent, cloudevent.TypeDeleteEvent,
		cloudevent.TypeListEvents, cloudevent.TypeEventInfo, cloudevent.TypeRegisterGuild,
		cloudevent.TypeDeregisterGuild, cloudevent.TypeRSVPEvent, cloudevent.TypePhotoVibeCheck,
		cloudevent.TypePromotionImage, cloudevent.TypeVibeAction, cloudevent.TypeSaveEventToGuildData,
		cloudevent.TypeTimerTrigger, cloudevent.TypeChatMessage,
	}
	assert.Len(t, known, 14)
	for _, ty := range known {
		assert.True(t, cloudevent.IsValid(ty))
	}
	assert.False(t, cloudevent.IsValid(cloudevent.Type("com.tlt.chat.unknown-type")))
	assert.False(t, cloudevent.IsValid(cloudevent.Type("")))
}

// TestProperty_RoundTripArbitraryGuildChannel property-tests that any
// non-empty guild/channel pair produces a parseable, self-consistent source
// URI across the full Marshal/Unmarshal cycle (P3).
func TestProperty_RoundTripArbitraryGuildChannel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	alnum := gen.RegexMatch(`^[a-zA-Z0-9]{1,12}$`)

	properties.Property("chat message round-trips for any guild/channel id", prop.ForAll(
		func(guild, channel, user string) bool {
			ev, err := cloudevent.NewChatMessage(cloudevent.ChatMessagePayload{
				GuildID:   guild,
				ChannelID: channel,
				MessageID: "m1",
				InteractionData: cloudevent.InteractionData{
					UserID:  user,
					GuildID: guild,
				},
				Content: "hi",
			})
			if err != nil {
				return false
			}
			b, err := json.Marshal(ev)
			if err != nil {
				return false
			}
			var decoded cloudevent.Event
			if err := json.Unmarshal(b, &decoded); err != nil {
				return false
			}
			return decoded.Source() == ev.Source() && decoded.Type() == ev.Type()
		},
		alnum, alnum, alnum,
	))

	properties.TestingRun(t)
}
