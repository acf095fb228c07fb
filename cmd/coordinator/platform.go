package main

import (
	"context"

	"github.com/tltguild/tlt-core/internal/telemetry"
)

// loggingPlatform is a stand-in chatadapter.Platform: the real chat-platform
// SDK (Discord, Slack, …) is an external collaborator out of this repo's
// scope (spec §1). It logs every action instead of reaching a live gateway,
// so the coordinator binary is runnable and testable end to end without one.
type loggingPlatform struct {
	log telemetry.Logger
}

func newLoggingPlatform(log telemetry.Logger) *loggingPlatform {
	return &loggingPlatform{log: log}
}

func (p *loggingPlatform) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	p.log.Info(ctx, "platform: send message", "channel_id", channelID, "content", content)
	return "stub-message-id", nil
}

func (p *loggingPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	p.log.Info(ctx, "platform: delete message", "channel_id", channelID, "message_id", messageID)
	return nil
}

func (p *loggingPlatform) SendDM(ctx context.Context, userID, content string) error {
	p.log.Info(ctx, "platform: send dm", "user_id", userID, "content", content)
	return nil
}

func (p *loggingPlatform) UpdateEmbed(ctx context.Context, channelID, messageID string, fields map[string]any) error {
	p.log.Info(ctx, "platform: update embed", "channel_id", channelID, "message_id", messageID)
	return nil
}
