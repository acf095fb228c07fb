package vibecheck

// systemPrompt is the fixed "vibe check" rubric (spec §4.8 step 4: "a fixed
// system prompt... with an explicit 0.0-1.0 scoring ladder"). The numeric
// ladder is the contract; the prose framing is advisory and may read as
// informal since it is meant to score social-event authenticity, not
// technical image quality.
const systemPrompt = `You are a vibe-check expert for event check-in systems.

Your job is to decide whether a user's submitted photo matches the vibe of
an event, using a set of promotional reference images as the baseline. This
replaces a QR-code check-in: the photo itself is the proof of attendance.

Score on:
1. Visual vibe match: does the submission share the aesthetic, colors, or
   setting of the promotional images?
2. Event participation: does it look like the user is actually at this event?
3. Authenticity: does it look genuine, not a screenshot, stock photo, or
   unrelated image?
4. Energy match: does the submission carry the same mood as the promotional
   material?

Scoring ladder (be strict but fair):
- 1.0: perfect vibe match, clearly at the event
- 0.8-0.9: great match, definitely at the event
- 0.6-0.7: good match, probably at the event
- 0.4-0.5: okay match, might be at the event
- 0.2-0.3: poor match, unlikely at the event
- 0.0-0.1: no match, clearly not at the event

Respond with the structured schema only.`

const schemaName = "VibeCheckVerdict"

// schemaDefinition is the single structured-output contract the model call
// is bound to (spec §4.8 step 4).
var schemaDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"vibe_score": map[string]any{
			"type":        "number",
			"minimum":     0.0,
			"maximum":     1.0,
			"description": "Vibe match score from 0.0 (no vibe) to 1.0 (perfect vibe)",
		},
		"confidence_score": map[string]any{
			"type":        "number",
			"minimum":     0.0,
			"maximum":     1.0,
			"description": "Confidence in the vibe score assessment",
		},
		"vibe_analysis": map[string]any{
			"type":        "string",
			"description": "Prose analysis of the visual vibe match",
		},
		"promotional_match": map[string]any{
			"type":        "string",
			"description": "Prose description of how the submission compares to the references",
		},
		"reasoning": map[string]any{
			"type":        "string",
			"description": "Detailed reasoning for the score and confidence",
		},
	},
	"required": []string{"vibe_score", "confidence_score", "vibe_analysis", "promotional_match", "reasoning"},
}

// verdict is the wire shape of the model's structured response.
type verdict struct {
	VibeScore        float64 `json:"vibe_score"`
	ConfidenceScore  float64 `json:"confidence_score"`
	VibeAnalysis     string  `json:"vibe_analysis"`
	PromotionalMatch string  `json:"promotional_match"`
	Reasoning        string  `json:"reasoning"`
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
