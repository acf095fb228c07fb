package chatadapter

import "context"

// Platform is the seam the chat-platform SDK (Discord, Slack, …) would
// implement; this package never depends on a concrete SDK type (spec §1).
type Platform interface {
	// SendMessage posts content to channelID, returning the new message id.
	SendMessage(ctx context.Context, channelID, content string) (string, error)
	// DeleteMessage removes one message, used by the moderation rule.
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// SendDM attempts a private notice to userID; the moderation rule
	// swallows a failure here per spec §4.2.
	SendDM(ctx context.Context, userID, content string) error
	// UpdateEmbed applies an embed-update action to an existing message.
	UpdateEmbed(ctx context.Context, channelID, messageID string, fields map[string]any) error
}

// isEmojiOnly reports whether content carries no ASCII letter or digit, per
// the moderation rule in spec §4.2 ("messages containing non-emoji content
// are deleted"). A conservative check: anything containing a letter or
// digit is treated as non-emoji content (false); emoji and
// punctuation-only reactions pass through (true).
func isEmojiOnly(content string) bool {
	for _, r := range content {
		if isASCIILetterOrDigit(r) {
			return false
		}
	}
	return true
}

func isASCIILetterOrDigit(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	default:
		return false
	}
}
