package vibecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tltguild/tlt-core/entitystore"
	"github.com/tltguild/tlt-core/internal/modelclient"
	"github.com/tltguild/tlt-core/internal/telemetry"
)

// Pipeline implements the photo vibe-check pipeline (C8), triggered by a
// submit_photo_dm tool call (spec §4.8).
type Pipeline struct {
	dataRoot string
	store    *entitystore.Store
	model    modelclient.Client
	modelID  string
	http     *http.Client
	log      telemetry.Logger
	metrics  telemetry.Metrics
}

// New constructs a Pipeline. dataRoot is the guild-data root the pipeline
// walks for promotional references (mirrors entitystore.Store's root, kept
// separate since reference discovery reads raw files rather than the event
// record).
func New(dataRoot string, store *entitystore.Store, model modelclient.Client, modelID string, log telemetry.Logger, metrics telemetry.Metrics) *Pipeline {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Pipeline{
		dataRoot: dataRoot,
		store:    store,
		model:    model,
		modelID:  modelID,
		http:     &http.Client{Timeout: downloadTimeout},
		log:      log,
		metrics:  metrics,
	}
}

// Run executes the full pipeline for req and returns the persisted Entry.
// Persistence failures are logged but never fail the overall request (spec
// §4.8 step 5).
func (p *Pipeline) Run(ctx context.Context, req Request) Entry {
	refs, err := discoverReferences(p.dataRoot, req.GuildID, req.EventID)
	if err != nil {
		p.log.Warn(ctx, "vibecheck: reference discovery failed", "guild_id", req.GuildID, "event_id", req.EventID, "error", err)
	}
	if len(refs) == 0 {
		entry := p.zeroEntry(req, noReferencesMessage)
		p.persist(ctx, req, entry)
		return entry
	}

	photo, err := downloadPhoto(ctx, p.http, req.PhotoURL)
	if err != nil {
		entry := p.zeroEntry(req, fmt.Sprintf("failed to download submitted photo: %v", err))
		p.persist(ctx, req, entry)
		return entry
	}

	normalized := ensureJPEG(photo)
	normalizedRefs := make([][]byte, len(refs))
	for i, r := range refs {
		normalizedRefs[i] = ensureJPEG(r)
	}

	v, err := p.callModel(ctx, normalized, normalizedRefs)
	var entry Entry
	if err != nil {
		entry = p.zeroEntry(req, fmt.Sprintf("vibe check failed: %v", err))
	} else {
		entry = Entry{
			UserID:           req.UserID,
			PhotoURL:         req.PhotoURL,
			VibeScore:        clampUnit(v.VibeScore),
			ConfidenceScore:  clampUnit(v.ConfidenceScore),
			VibeAnalysis:     v.VibeAnalysis,
			PromotionalMatch: v.PromotionalMatch,
			Reasoning:        v.Reasoning,
			Timestamp:        time.Now().UTC(),
			Method:           methodTag,
		}
	}
	p.metrics.IncCounter("vibecheck.completed", 1)
	p.persist(ctx, req, entry)
	return entry
}

// zeroEntry builds the zero-score Entry used for every short-circuit and
// failure path (spec §4.8 step 1 and step 4).
func (p *Pipeline) zeroEntry(req Request, reason string) Entry {
	return Entry{
		UserID:          req.UserID,
		PhotoURL:        req.PhotoURL,
		VibeScore:       0,
		ConfidenceScore: 0,
		Reasoning:       reason,
		Timestamp:       time.Now().UTC(),
		Method:          methodTag,
	}
}

// callModel submits the submission photo followed by each annotated
// reference image to the vision-capable model, bound to the single
// VibeCheckVerdict schema (spec §4.8 step 4).
func (p *Pipeline) callModel(ctx context.Context, photo []byte, refs [][]byte) (verdict, error) {
	parts := []modelclient.Part{
		modelclient.TextPart{Text: "Analyze this user's photo submission for event check-in vibe matching."},
		modelclient.ImagePart{Format: modelclient.ImageFormatJPEG, Bytes: photo},
		modelclient.TextPart{Text: fmt.Sprintf("Above: the user's submission. Below: %d promotional reference images.", len(refs))},
	}
	for i, ref := range refs {
		parts = append(parts, modelclient.ImagePart{Format: modelclient.ImageFormatJPEG, Bytes: ref})
		parts = append(parts, modelclient.TextPart{Text: fmt.Sprintf("^ Promotional image %d", i+1)})
	}

	req := modelclient.Request{
		Model: p.modelID,
		Messages: []modelclient.Message{
			{Role: modelclient.RoleSystem, Parts: []modelclient.Part{modelclient.TextPart{Text: systemPrompt}}},
			{Role: modelclient.RoleUser, Parts: parts},
		},
		Schema: modelclient.Schema{
			Name:       schemaName,
			Definition: schemaDefinition,
		},
		MaxTokens:   1024,
		Temperature: 0.1,
	}

	result, err := p.model.Submit(ctx, req)
	if err != nil {
		return verdict{}, err
	}
	var v verdict
	if err := json.Unmarshal(result.Payload, &v); err != nil {
		return verdict{}, err
	}
	return v, nil
}

// persist appends (replacing any prior entry for the same user) the Entry
// to the event record's vibe_checks array (spec §4.8 step 5, P7).
func (p *Pipeline) persist(ctx context.Context, req Request, entry Entry) {
	value := map[string]any{
		"user_id":           entry.UserID,
		"photo_url":         entry.PhotoURL,
		"vibe_score":        entry.VibeScore,
		"confidence_score":  entry.ConfidenceScore,
		"vibe_analysis":     entry.VibeAnalysis,
		"promotional_match": entry.PromotionalMatch,
		"reasoning":         entry.Reasoning,
		"timestamp":         entry.Timestamp.Format(time.RFC3339),
		"method":            entry.Method,
	}
	if err := p.store.ReplaceInArrayByUser(ctx, req.GuildID, req.EventID, "vibe_checks", req.UserID, value); err != nil {
		p.log.Error(ctx, "vibecheck: persistence failed", "guild_id", req.GuildID, "event_id", req.EventID, "user_id", req.UserID, "error", err)
	}
}
