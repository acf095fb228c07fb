package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/tltguild/tlt-core/entitystore"
	"github.com/tltguild/tlt-core/vibecheck"
)

// VibeCheckRunner is implemented by vibecheck.Pipeline. Defined here so this
// package does not need vibecheck's full Pipeline construction dependencies
// at the call site — only the one method the adapter drives.
type VibeCheckRunner interface {
	Run(ctx context.Context, req vibecheck.Request) vibecheck.Entry
}

// VibeCheckAdapter implements gateway.BackendClient for the photo-vibe-check
// service by running the pipeline (C8) in-process rather than forwarding
// over RPC, since the pipeline is itself core coordinator logic (spec §1
// "the single heaviest domain-specific sub-workflow"), not an opaque
// back-end store like the other four services.
type VibeCheckAdapter struct {
	pipeline VibeCheckRunner
	store    *entitystore.Store
}

// NewVibeCheckAdapter constructs an adapter bound to pipeline (for
// submit_photo_dm) and store (for recording promotion uploads, whose bytes
// the chat adapter has already written to disk by the time this tool runs).
func NewVibeCheckAdapter(pipeline VibeCheckRunner, store *entitystore.Store) *VibeCheckAdapter {
	return &VibeCheckAdapter{pipeline: pipeline, store: store}
}

// Call implements gateway.BackendClient.
func (a *VibeCheckAdapter) Call(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "submit_photo_dm":
		return a.submitPhotoDM(ctx, args)
	case "submit_promotion_image":
		return a.submitPromotionImage(ctx, args)
	default:
		return nil, fmt.Errorf("photo-vibe-check: unknown tool %q", tool)
	}
}

func (a *VibeCheckAdapter) submitPhotoDM(ctx context.Context, args map[string]any) (map[string]any, error) {
	req := vibecheck.Request{
		GuildID:  stringArg(args, "guild_id"),
		EventID:  stringArg(args, "event_id"),
		UserID:   stringArg(args, "user_id"),
		PhotoURL: stringArg(args, "photo_url"),
	}
	entry := a.pipeline.Run(ctx, req)
	return map[string]any{
		"vibe_score":        entry.VibeScore,
		"confidence_score":  entry.ConfidenceScore,
		"vibe_analysis":     entry.VibeAnalysis,
		"promotional_match": entry.PromotionalMatch,
		"reasoning":         entry.Reasoning,
	}, nil
}

// submitPromotionImage records a reference upload's metadata to the user's
// append-only state log. The file itself was already written to
// data/<guild>/<event>/<user>/promotion/ by the chat adapter's deterministic
// download step (spec §4.2) before this tool call was ever dispatched.
func (a *VibeCheckAdapter) submitPromotionImage(ctx context.Context, args map[string]any) (map[string]any, error) {
	guildID := stringArg(args, "guild_id")
	eventID := stringArg(args, "event_id")
	userID := stringArg(args, "user_id")
	record := map[string]any{
		"tool":      "submit_promotion_image",
		"photo_url": stringArg(args, "photo_url"),
		"at":        time.Now().UTC().Format(time.RFC3339),
	}
	if err := a.store.AppendUserState(ctx, guildID, eventID, userID, record); err != nil {
		return nil, err
	}
	return map[string]any{"recorded": true}, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
