package modelclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tltguild/tlt-core/internal/apierr"
)

// MessagesClient captures the subset of the Anthropic SDK used by Client, so
// tests can substitute a fake in place of *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Client on top of the Anthropic Claude Messages
// API, binding every request to a single forced tool call so the reply is
// always schema-conformant JSON rather than free text (spec §4.5, §4.8).
type AnthropicClient struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
}

// NewAnthropicClient constructs a Client from an Anthropic API key.
func NewAnthropicClient(apiKey, defaultModel string, maxTokens int) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("modelclient: anthropic api key is required")
	}
	if defaultModel == "" {
		return nil, errors.New("modelclient: default model is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{msg: &ac.Messages, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

// Submit issues a Messages.New call bound to req.Schema as the sole tool the
// model may call, forcing its use via ToolChoice, and returns the tool
// call's raw input as the structured result (spec §9 "structured
// language-model output").
func (c *AnthropicClient) Submit(ctx context.Context, req Request) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, apierr.New(apierr.KindInternal, "modelclient: at least one message is required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	schema, err := toolInputSchema(req.Schema.Definition)
	if err != nil {
		return Result{}, apierr.Wrap(apierr.KindInternal, "modelclient: encode schema", err)
	}
	toolName := req.Schema.Name
	toolUnion := sdk.ToolUnionParamOfTool(schema, toolName)
	if toolUnion.OfTool != nil && req.Schema.Description != "" {
		toolUnion.OfTool.Description = sdk.String(req.Schema.Description)
	}

	conversation, system, err := encodeMessages(req.Messages)
	if err != nil {
		return Result{}, err
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Model:     sdk.Model(modelID),
		Messages:  conversation,
		Tools:     []sdk.ToolUnionParam{toolUnion},
		ToolChoice: sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: toolName},
		},
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return Result{}, apierr.Wrap(apierr.KindUpstreamError, "modelclient: anthropic messages.new failed", err)
	}

	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == toolName {
			return Result{Payload: json.RawMessage(block.Input)}, nil
		}
	}
	return Result{}, apierr.New(apierr.KindParseError, "modelclient: model did not return the requested tool call")
}

func encodeMessages(msgs []Message) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	conversation := make([]sdk.MessageParam, 0, len(msgs))
	system := make([]sdk.TextBlockParam, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == RoleSystem {
			for _, p := range m.Parts {
				if t, ok := p.(TextPart); ok && t.Text != "" {
					system = append(system, sdk.TextBlockParam{Text: t.Text})
				}
			}
			continue
		}

		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch v := part.(type) {
			case TextPart:
				if v.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(v.Text))
				}
			case ImagePart:
				blocks = append(blocks, sdk.NewImageBlockBase64(mediaType(v.Format), base64.StdEncoding.EncodeToString(v.Bytes)))
			default:
				return nil, nil, apierr.Newf(apierr.KindInternal, "modelclient: unsupported message part %T", part)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(blocks...))
		case RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, nil, apierr.Newf(apierr.KindInternal, "modelclient: unsupported role %q", m.Role)
		}
	}
	return conversation, system, nil
}

func mediaType(f ImageFormat) string {
	switch f {
	case ImageFormatPNG:
		return "image/png"
	case ImageFormatWebP:
		return "image/webp"
	case ImageFormatGIF:
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

func toolInputSchema(def map[string]any) (sdk.ToolInputSchemaParam, error) {
	if def == nil {
		def = map[string]any{"type": "object"}
	}
	return sdk.ToolInputSchemaParam{ExtraFields: def}, nil
}

// String identifies the client for logging.
func (c *AnthropicClient) String() string { return "modelclient.AnthropicClient(" + c.defaultModel + ")" }
