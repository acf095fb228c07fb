package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tltguild/tlt-core/entitystore"
	"github.com/tltguild/tlt-core/gateway/backend"
	"github.com/tltguild/tlt-core/vibecheck"
)

type stubRunner struct {
	got vibecheck.Request
}

func (s *stubRunner) Run(_ context.Context, req vibecheck.Request) vibecheck.Entry {
	s.got = req
	return vibecheck.Entry{UserID: req.UserID, VibeScore: 0.75, ConfidenceScore: 0.9}
}

func TestVibeCheckAdapter_SubmitPhotoDM(t *testing.T) {
	runner := &stubRunner{}
	store := entitystore.New(t.TempDir(), nil)
	adapter := backend.NewVibeCheckAdapter(runner, store)

	result, err := adapter.Call(context.Background(), "submit_photo_dm", map[string]any{
		"guild_id":  "g1",
		"event_id":  "e1",
		"user_id":   "u1",
		"photo_url": "https://example.com/a.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.75, result["vibe_score"])
	assert.Equal(t, "u1", runner.got.UserID)
}

func TestVibeCheckAdapter_SubmitPromotionImageRecordsState(t *testing.T) {
	store := entitystore.New(t.TempDir(), nil)
	adapter := backend.NewVibeCheckAdapter(&stubRunner{}, store)

	result, err := adapter.Call(context.Background(), "submit_promotion_image", map[string]any{
		"guild_id":  "g1",
		"event_id":  "e1",
		"user_id":   "u1",
		"photo_url": "https://example.com/promo.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["recorded"])
}

func TestVibeCheckAdapter_UnknownTool(t *testing.T) {
	adapter := backend.NewVibeCheckAdapter(&stubRunner{}, entitystore.New(t.TempDir(), nil))
	_, err := adapter.Call(context.Background(), "nonsense", nil)
	require.Error(t, err)
}
