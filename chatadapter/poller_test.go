package chatadapter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tltguild/tlt-core/chatadapter"
)

func TestPoller_AppliesPendingMessagesAndNotifications(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"agent_state_by_guild": {
				"g1": {
					"pending_messages": [{"message_id": "m1", "channel_id": "c1", "content": "event created"}],
					"event_updates": [],
					"user_notifications": [{"user_id": "u1", "content": "your photo was scored"}]
				}
			}
		}`))
	}))
	defer srv.Close()

	platform := &stubPlatform{}
	poller := chatadapter.NewPoller(srv.URL, platform, nil, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	poller.Run(ctx)

	require.NotEmpty(t, platform.messagesSent)
	assert.Contains(t, platform.messagesSent, "event created")
	assert.Contains(t, platform.dmsSent, "u1")
}

func TestIngressClient_SubmitAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"cloudevent_id":"ce-1","task_id":"task-1"}`))
	}))
	defer srv.Close()

	client := chatadapter.NewIngressClient(srv.URL)
	ev, err := newListEventsForTest("g1")
	require.NoError(t, err)

	taskID, err := client.Submit(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, "task-1", taskID)
}

func TestIngressClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := chatadapter.NewIngressClient(srv.URL)
	ev, err := newListEventsForTest("g1")
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), ev)
	require.Error(t, err)
}
