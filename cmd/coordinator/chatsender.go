package main

import (
	"context"

	"github.com/tltguild/tlt-core/agentgraph"
	"github.com/tltguild/tlt-core/chatadapter"
)

// chatSenderAdapter implements agentgraph.ChatSender on top of the chat
// adapter's Platform seam, so the respond node (C4) can deliver messages
// directly instead of waiting for the poller's next tick.
type chatSenderAdapter struct {
	platform chatadapter.Platform
}

func (c *chatSenderAdapter) Send(ctx context.Context, _ string, msg agentgraph.OutboundMessage) error {
	_, err := c.platform.SendMessage(ctx, msg.ChannelID, msg.Content)
	return err
}
