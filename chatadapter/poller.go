package chatadapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tltguild/tlt-core/internal/telemetry"
)

// snapshotResponse mirrors the /monitor/agent/state wire shape (spec §6).
type snapshotResponse struct {
	AgentStateByGuild map[string]guildSnapshot `json:"agent_state_by_guild"`
}

type guildSnapshot struct {
	PendingMessages   []wireMessage    `json:"pending_messages"`
	EventUpdates      []map[string]any `json:"event_updates"`
	UserNotifications []map[string]any `json:"user_notifications"`
}

type wireMessage struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// Poller periodically fetches the snapshot endpoint and applies returned
// actions onto the chat platform (spec §4.2). Each action is best-effort:
// transient platform failures are logged, not retried at this layer.
type Poller struct {
	baseURL  string
	platform Platform
	http     *http.Client
	log      telemetry.Logger
	interval time.Duration

	delivered map[string]bool
}

// NewPoller constructs a Poller hitting baseURL at interval (default 30s
// per spec §6 if interval <= 0).
func NewPoller(baseURL string, platform Platform, log telemetry.Logger, interval time.Duration) *Poller {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		baseURL:   baseURL,
		platform:  platform,
		http:      &http.Client{Timeout: 10 * time.Second},
		log:       log,
		interval:  interval,
		delivered: make(map[string]bool),
	}
}

// Run blocks, polling at Poller's interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/monitor/agent/state", nil)
	if err != nil {
		p.log.Warn(ctx, "chatadapter: build snapshot request failed", "error", err)
		return
	}
	resp, err := p.http.Do(req)
	if err != nil {
		p.log.Warn(ctx, "chatadapter: snapshot poll failed", "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		p.log.Warn(ctx, "chatadapter: read snapshot response failed", "error", err)
		return
	}
	var snap snapshotResponse
	if err := json.Unmarshal(raw, &snap); err != nil {
		p.log.Warn(ctx, "chatadapter: decode snapshot response failed", "error", err)
		return
	}
	for _, g := range snap.AgentStateByGuild {
		p.applyGuild(ctx, g)
	}
}

func (p *Poller) applyGuild(ctx context.Context, g guildSnapshot) {
	for _, m := range g.PendingMessages {
		// Idempotent to redelivery via message id (spec §4.4 respond node).
		if m.MessageID != "" && p.delivered[m.MessageID] {
			continue
		}
		if _, err := p.platform.SendMessage(ctx, m.ChannelID, m.Content); err != nil {
			p.log.Warn(ctx, "chatadapter: deliver pending message failed", "channel_id", m.ChannelID, "error", err)
			continue
		}
		if m.MessageID != "" {
			p.delivered[m.MessageID] = true
		}
	}
	for _, u := range g.EventUpdates {
		channelID, _ := u["channel_id"].(string)
		messageID, _ := u["message_id"].(string)
		if channelID == "" || messageID == "" {
			continue
		}
		if err := p.platform.UpdateEmbed(ctx, channelID, messageID, u); err != nil {
			p.log.Warn(ctx, "chatadapter: embed update failed", "channel_id", channelID, "error", err)
		}
	}
	for _, n := range g.UserNotifications {
		userID, _ := n["user_id"].(string)
		content, _ := n["content"].(string)
		if userID == "" {
			continue
		}
		if err := p.platform.SendDM(ctx, userID, content); err != nil {
			p.log.Warn(ctx, "chatadapter: user notification failed", "user_id", userID, "error", err)
		}
	}
}
