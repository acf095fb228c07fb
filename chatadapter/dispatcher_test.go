package chatadapter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tltguild/tlt-core/chatadapter"
	"github.com/tltguild/tlt-core/cloudevent"
)

type stubPlatform struct {
	mu           sync.Mutex
	deleted      []string
	dmsSent      []string
	messagesSent []string
}

func (s *stubPlatform) SendMessage(_ context.Context, _, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messagesSent = append(s.messagesSent, content)
	return "m-1", nil
}

func (s *stubPlatform) DeleteMessage(_ context.Context, _, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *stubPlatform) SendDM(_ context.Context, userID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dmsSent = append(s.dmsSent, userID)
	return nil
}

func (s *stubPlatform) UpdateEmbed(_ context.Context, _, _ string, _ map[string]any) error { return nil }

type stubIngress struct {
	mu       sync.Mutex
	received []cloudevent.Event
	fail     bool
}

func (s *stubIngress) Submit(_ context.Context, ev cloudevent.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", assert.AnError
	}
	s.received = append(s.received, ev)
	return "task-1", nil
}

func newListEventsForTest(guildID string) (cloudevent.Event, error) {
	return cloudevent.NewListEvents(guildID, "c1", cloudevent.ListEventsPayload{GuildID: guildID})
}

func TestDispatcher_SlashCreateEvent(t *testing.T) {
	platform := &stubPlatform{}
	ingress := &stubIngress{}
	d := chatadapter.New(platform, ingress, nil, chatadapter.Options{DataRoot: t.TempDir()})

	taskID, err := d.Dispatch(context.Background(), chatadapter.Interaction{
		Kind:      chatadapter.KindSlashCreateEvent,
		GuildID:   "g1",
		ChannelID: "c1",
		UserID:    "u1",
		Topic:     "Launch",
		Location:  "HQ",
		Time:      "2030-01-01T18:00:00Z",
		MessageID: "msg-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1", taskID)
	require.Len(t, ingress.received, 1)
	assert.Equal(t, cloudevent.TypeCreateEvent, ingress.received[0].Type())
}

func TestDispatcher_ReactionResolvesEventID(t *testing.T) {
	platform := &stubPlatform{}
	ingress := &stubIngress{}
	d := chatadapter.New(platform, ingress, nil, chatadapter.Options{DataRoot: t.TempDir()})
	d.RegisterEventThread("evt-1", "msg-42", "thread-1")

	_, err := d.Dispatch(context.Background(), chatadapter.Interaction{
		Kind:      chatadapter.KindReactionAdd,
		GuildID:   "g1",
		ChannelID: "thread-1",
		UserID:    "u2",
		MessageID: "msg-42",
		Emoji:     "✅",
	})
	require.NoError(t, err)
	require.Len(t, ingress.received, 1)
	var payload cloudevent.RSVPEventPayload
	require.NoError(t, ingress.received[0].DataAs(&payload))
	assert.Equal(t, "evt-1", payload.EventID)
}

func TestDispatcher_ReactionWithoutKnownEventIsNoOp(t *testing.T) {
	platform := &stubPlatform{}
	ingress := &stubIngress{}
	d := chatadapter.New(platform, ingress, nil, chatadapter.Options{DataRoot: t.TempDir()})

	taskID, err := d.Dispatch(context.Background(), chatadapter.Interaction{
		Kind:      chatadapter.KindReactionAdd,
		GuildID:   "g1",
		MessageID: "unknown-message",
	})
	require.NoError(t, err)
	assert.Empty(t, taskID)
	assert.Empty(t, ingress.received)
}

func TestDispatcher_ModerationDeletesNonEmojiThreadText(t *testing.T) {
	platform := &stubPlatform{}
	ingress := &stubIngress{}
	d := chatadapter.New(platform, ingress, nil, chatadapter.Options{DataRoot: t.TempDir()})

	taskID, err := d.Dispatch(context.Background(), chatadapter.Interaction{
		Kind:      chatadapter.KindThreadText,
		GuildID:   "g1",
		ChannelID: "thread-1",
		UserID:    "u3",
		MessageID: "msg-99",
		Content:   "hey everyone",
	})
	require.NoError(t, err)
	assert.Empty(t, taskID)
	assert.Empty(t, ingress.received)
	assert.Contains(t, platform.deleted, "msg-99")
	assert.Contains(t, platform.dmsSent, "u3")
}

func TestDispatcher_EmojiOnlyThreadTextPassesThrough(t *testing.T) {
	platform := &stubPlatform{}
	ingress := &stubIngress{}
	d := chatadapter.New(platform, ingress, nil, chatadapter.Options{DataRoot: t.TempDir()})

	_, err := d.Dispatch(context.Background(), chatadapter.Interaction{
		Kind:      chatadapter.KindThreadText,
		GuildID:   "g1",
		ChannelID: "thread-1",
		UserID:    "u3",
		MessageID: "msg-100",
		Content:   "🎉🎉",
	})
	require.NoError(t, err)
	require.Len(t, ingress.received, 1)
	assert.Equal(t, cloudevent.TypeChatMessage, ingress.received[0].Type())
}

func TestDispatcher_UnknownKindIsNoOp(t *testing.T) {
	platform := &stubPlatform{}
	ingress := &stubIngress{}
	d := chatadapter.New(platform, ingress, nil, chatadapter.Options{DataRoot: t.TempDir()})

	taskID, err := d.Dispatch(context.Background(), chatadapter.Interaction{Kind: "unrecognized"})
	require.NoError(t, err)
	assert.Empty(t, taskID)
}

func TestDispatcher_IngressFailureSendsApology(t *testing.T) {
	platform := &stubPlatform{}
	ingress := &stubIngress{fail: true}
	d := chatadapter.New(platform, ingress, nil, chatadapter.Options{DataRoot: t.TempDir()})

	_, err := d.Dispatch(context.Background(), chatadapter.Interaction{
		Kind:      chatadapter.KindSlashListEvents,
		GuildID:   "g1",
		ChannelID: "c1",
	})
	require.Error(t, err)
	require.NotEmpty(t, platform.messagesSent)
}

func TestDispatcher_DMImageUploadDownloadsThenSubmits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer srv.Close()

	platform := &stubPlatform{}
	ingress := &stubIngress{}
	root := t.TempDir()
	d := chatadapter.New(platform, ingress, nil, chatadapter.Options{DataRoot: root})

	taskID, err := d.Dispatch(context.Background(), chatadapter.Interaction{
		Kind:       chatadapter.KindDMImageUpload,
		GuildID:    "g1",
		EventID:    "evt-1",
		UserID:     "u9",
		ReceivedAt: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		Attachments: []chatadapter.Attachment{
			{URL: srv.URL, Filename: "photo.jpg", ContentType: "image/jpeg"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1", taskID)
	require.Len(t, ingress.received, 1)
	var payload cloudevent.PhotoVibeCheckPayload
	require.NoError(t, ingress.received[0].DataAs(&payload))
	assert.Contains(t, payload.LocalPath, "g1/evt-1/u9/20260731_120000_photo.jpg")
}
