// Package modelclient defines the provider-agnostic capability the
// reasoning node (C5) and the photo vibe-check pipeline (C8) depend on:
// "submit(prompt, schema) -> parsed-struct | parse-error" (spec §9 "design
// notes" — production code should not depend on tool-calling-specific
// vocabulary). A single structured tool/schema is bound per call so callers
// receive deterministic JSON back, never free text to re-parse.
package modelclient

import (
	"context"
	"encoding/json"
)

// Role is the conversation role of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Part is a single content block within a Message. TextPart carries prose;
// ImagePart carries inline image bytes for multimodal calls (the vibe-check
// pipeline's submitted photo and promotional references).
type Part interface{ isPart() }

// TextPart is a plain-text content block.
type TextPart struct{ Text string }

func (TextPart) isPart() {}

// ImageFormat identifies the on-wire encoding of ImagePart.Bytes.
type ImageFormat string

const (
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatWebP ImageFormat = "webp"
	ImageFormatGIF  ImageFormat = "gif"
)

// ImagePart carries raw image bytes attached to a user message.
type ImagePart struct {
	Format ImageFormat
	Bytes  []byte
}

func (ImagePart) isPart() {}

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role  Role
	Parts []Part
}

// Schema binds a single structured-output contract to a Request: the model
// is forced to return JSON conforming to Definition, and Decide/Submit
// return the raw JSON for the caller to unmarshal into its own type (the
// reasoning node's AgentReasoningDecision, the vibe-check verdict). Name and
// Definition together are handed to the provider as its one tool/schema.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Request captures one structured-output model invocation.
type Request struct {
	Model       string
	Messages    []Message
	Schema      Schema
	MaxTokens   int
	Temperature float64
}

// Result is the model's structured-output reply: Payload is the raw JSON
// produced against Schema.Definition.
type Result struct {
	Payload json.RawMessage
}

// Client is the capability seam every provider adapter implements. A parse
// or transport failure is returned as an error; callers (reasoning,
// vibecheck) are responsible for degrading to their own fallback semantics
// per spec §7 ("Model-call parse errors degrade to a no-action decision").
type Client interface {
	Submit(ctx context.Context, req Request) (Result, error)
}
