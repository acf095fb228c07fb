// Package vibecheck implements the photo vibe-check pipeline (C8): discover
// promotional reference images, download and normalize the submitted photo,
// score it against the references with a vision-capable language model, and
// persist the verdict.
package vibecheck

import "time"

// Entry is the Photo Vibe-check Entry appended to an event's persisted
// record (spec §3 "Photo Vibe-check Entry").
type Entry struct {
	UserID            string    `json:"user_id"`
	PhotoURL          string    `json:"photo_url"`
	VibeScore         float64   `json:"vibe_score"`
	ConfidenceScore   float64   `json:"confidence_score"`
	VibeAnalysis      string    `json:"vibe_analysis"`
	PromotionalMatch  string    `json:"promotional_match"`
	Reasoning         string    `json:"reasoning"`
	Timestamp         time.Time `json:"timestamp"`
	Method            string    `json:"method"`
}

// methodTag names the scoring method, recorded on every Entry. There is
// only one scoring method today; the field exists so a future rubric
// revision doesn't require a schema migration.
const methodTag = "vision-model-vibe-check-v1"

// Request describes one submit_photo_dm invocation reaching the pipeline.
type Request struct {
	GuildID  string
	EventID  string
	UserID   string
	PhotoURL string
}

// noReferencesMessage is the fixed short-circuit message (spec §4.8 step 1,
// P7 scenario 3).
const noReferencesMessage = "no promotional images available for vibe check"
