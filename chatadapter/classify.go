package chatadapter

import (
	"context"

	"github.com/tltguild/tlt-core/cloudevent"
	"github.com/tltguild/tlt-core/internal/apierr"
)

// classify implements the fixed classification table of spec §4.2: every
// InteractionKind maps to exactly one CloudEvent factory, or to "no
// CloudEvent" for callbacks the dispatcher does not forward (none today —
// every recognized Kind produces one CloudEvent). An interaction the
// classifier does not recognize falls through as a no-op (spec §4.2
// "classification misses fall through to no-op").
func (d *Dispatcher) classify(ctx context.Context, in Interaction) (cloudevent.Event, bool, error) {
	switch in.Kind {
	case KindSlashCreateEvent:
		ev, err := cloudevent.NewCreateEvent(in.GuildID, in.ChannelID, cloudevent.CreateEventPayload{
			EventData: cloudevent.EventData{
				Topic:     in.Topic,
				Location:  in.Location,
				Time:      in.Time,
				MessageID: in.MessageID,
			},
			InteractionData: interactionData(in),
		})
		return ev, true, err

	case KindSlashUpdateEvent:
		ev, err := cloudevent.NewUpdateEvent(in.GuildID, in.ChannelID, cloudevent.UpdateEventPayload{
			EventID: in.EventID,
			EventData: cloudevent.EventData{
				Topic:     in.Topic,
				Location:  in.Location,
				Time:      in.Time,
				MessageID: in.MessageID,
			},
			InteractionData: interactionData(in),
		})
		return ev, true, err

	case KindSlashDeleteEvent:
		ev, err := cloudevent.NewDeleteEvent(in.GuildID, in.ChannelID, cloudevent.DeleteEventPayload{
			EventID:         in.EventID,
			InteractionData: interactionData(in),
		})
		return ev, true, err

	case KindSlashListEvents:
		ev, err := cloudevent.NewListEvents(in.GuildID, in.ChannelID, cloudevent.ListEventsPayload{
			GuildID:         in.GuildID,
			InteractionData: interactionData(in),
		})
		return ev, true, err

	case KindSlashEventInfo:
		ev, err := cloudevent.NewEventInfo(in.GuildID, in.ChannelID, cloudevent.EventInfoPayload{
			EventID:         in.EventID,
			InteractionData: interactionData(in),
		})
		return ev, true, err

	case KindReactionAdd, KindReactionRemove:
		eventID := in.EventID
		if eventID == "" {
			resolved, ok := d.EventIDForMessage(in.MessageID)
			if !ok {
				return cloudevent.Event{}, false, nil
			}
			eventID = resolved
		}
		rsvpType := "add"
		if in.Kind == KindReactionRemove {
			rsvpType = "remove"
		}
		ev, err := cloudevent.NewRSVPEvent(in.ChannelID, cloudevent.RSVPEventPayload{
			GuildID:  in.GuildID,
			EventID:  eventID,
			UserID:   in.UserID,
			RSVPType: rsvpType,
			Emoji:    in.Emoji,
		})
		return ev, true, err

	case KindDMImageUpload:
		if len(in.Attachments) == 0 {
			return cloudevent.Event{}, false, nil
		}
		localPath, err := d.downloader.Download(ctx, in.GuildID, in.EventID, in.UserID, in.Attachments[0], false, in.ReceivedAt)
		if err != nil {
			return cloudevent.Event{}, false, err
		}
		ev, err := cloudevent.NewPhotoVibeCheck(cloudevent.PhotoVibeCheckPayload{
			GuildID:   in.GuildID,
			EventID:   in.EventID,
			UserID:    in.UserID,
			PhotoURL:  in.Attachments[0].URL,
			LocalPath: localPath,
		})
		return ev, true, err

	case KindPromotionUpload:
		if len(in.Attachments) == 0 {
			return cloudevent.Event{}, false, nil
		}
		localPath, err := d.downloader.Download(ctx, in.GuildID, in.EventID, in.UserID, in.Attachments[0], true, in.ReceivedAt)
		if err != nil {
			return cloudevent.Event{}, false, err
		}
		ev, err := cloudevent.NewPromotionImage(cloudevent.PromotionImagePayload{
			GuildID:   in.GuildID,
			EventID:   in.EventID,
			UserID:    in.UserID,
			PhotoURL:  in.Attachments[0].URL,
			LocalPath: localPath,
		})
		return ev, true, err

	case KindGuildJoinAdmin:
		ev, err := cloudevent.NewRegisterGuild(cloudevent.RegisterGuildPayload{
			GuildID:     in.GuildID,
			GuildName:   in.GuildName,
			AdminUserID: in.AdminUserID,
			Settings:    in.Settings,
		})
		return ev, true, err

	case KindGuildLeaveAdmin:
		ev, err := cloudevent.NewDeregisterGuild(cloudevent.DeregisterGuildPayload{
			GuildID:     in.GuildID,
			AdminUserID: in.AdminUserID,
		})
		return ev, true, err

	case KindTimerCallback:
		ev, err := cloudevent.NewTimerTrigger(in.GuildID, cloudevent.TimerTriggerPayload{
			TimerID:   in.TimerID,
			EventID:   in.EventID,
			TimerType: in.TimerType,
		})
		return ev, true, err

	case KindThreadText:
		if !isEmojiOnly(in.Content) {
			// Moderation rule: non-emoji text in an RSVP thread is deleted
			// rather than dispatched (spec §4.2). Caller (Dispatch) enforces
			// the deletion; classify only withholds the CloudEvent.
			return cloudevent.Event{}, false, apierr.New(apierr.KindValidation, "moderated: non-emoji content in event thread")
		}
		ev, err := cloudevent.NewChatMessage(cloudevent.ChatMessagePayload{
			GuildID:         in.GuildID,
			ChannelID:       in.ChannelID,
			MessageID:       in.MessageID,
			InteractionData: interactionData(in),
			Content:         in.Content,
		})
		return ev, true, err

	default:
		// Classification miss: fall through to no-op (spec §4.2).
		return cloudevent.Event{}, false, nil
	}
}

func interactionData(in Interaction) cloudevent.InteractionData {
	return cloudevent.InteractionData{
		UserID:    in.UserID,
		UserName:  in.UserName,
		GuildID:   in.GuildID,
		ChannelID: in.ChannelID,
	}
}
