package chatadapter

import (
	"context"
	"sync"

	"github.com/tltguild/tlt-core/cloudevent"
	"github.com/tltguild/tlt-core/internal/apierr"
	"github.com/tltguild/tlt-core/internal/telemetry"
)

// IngressPoster is implemented by the Task Manager's ingress transport (spec
// §4.2 "Post the CloudEvent to the Task Manager's ingress endpoint as
// JSON"). The HTTP implementation lives in IngressClient; tests use a stub.
type IngressPoster interface {
	Submit(ctx context.Context, ev cloudevent.Event) (string, error)
}

// Options configures a Dispatcher.
type Options struct {
	DataRoot string
}

// Dispatcher implements the chat adapter (C2): classify, moderate,
// download, submit, and track thread<->event mappings (spec §4.2).
type Dispatcher struct {
	platform   Platform
	ingress    IngressPoster
	downloader *downloader
	log        telemetry.Logger

	mu              sync.RWMutex
	messageToEvent  map[string]string // event-message-id -> event-id
	eventToThread   map[string]string // event-id -> thread-id
}

// New constructs a Dispatcher bound to platform (the chat SDK seam) and
// ingress (the Task Manager submission contract).
func New(platform Platform, ingress IngressPoster, log telemetry.Logger, opts Options) *Dispatcher {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Dispatcher{
		platform:       platform,
		ingress:        ingress,
		downloader:     newDownloader(opts.DataRoot),
		log:            log,
		messageToEvent: make(map[string]string),
		eventToThread:  make(map[string]string),
	}
}

// RegisterEventThread records the authoritative event->message/thread edge
// (spec §9 "store the authoritative edge once"). Callers do so when an
// event post is created or when re-reading event metadata reconstructs the
// mapping for a session that did not observe the original post.
func (d *Dispatcher) RegisterEventThread(eventID, messageID, threadID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if messageID != "" {
		d.messageToEvent[messageID] = eventID
	}
	if threadID != "" {
		d.eventToThread[eventID] = threadID
	}
}

// EventIDForMessage resolves an event-message-id to its owning event-id.
// This mapping is authoritative only for the live session (spec §4.2); a
// miss here means the caller must reconstruct it by re-reading event
// metadata, which this package does not itself own.
func (d *Dispatcher) EventIDForMessage(messageID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	eventID, ok := d.messageToEvent[messageID]
	return eventID, ok
}

// ThreadForEvent resolves an event-id to its RSVP thread-id, if tracked.
func (d *Dispatcher) ThreadForEvent(eventID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	threadID, ok := d.eventToThread[eventID]
	return threadID, ok
}

// Dispatch classifies in, enforces the moderation rule, downloads any
// attachment, and submits the resulting CloudEvent to the Task Manager,
// returning the task id the user is shown (spec §4.2). It returns ("", nil)
// for a no-op (classification miss, or a moderated message that carried no
// CloudEvent to submit).
func (d *Dispatcher) Dispatch(ctx context.Context, in Interaction) (string, error) {
	ev, ok, err := d.classify(ctx, in)
	if err != nil {
		if apierr.KindOf(err) == apierr.KindValidation && in.Kind == KindThreadText {
			d.enforceModeration(ctx, in)
			return "", nil
		}
		d.log.Warn(ctx, "chatadapter: classification failed", "kind", in.Kind, "error", err)
		if len(in.Attachments) > 0 {
			d.notifyDownloadFailure(ctx, in)
		}
		return "", err
	}
	if !ok {
		return "", nil
	}

	taskID, err := d.ingress.Submit(ctx, ev)
	if err != nil {
		d.log.Warn(ctx, "chatadapter: ingress submit failed", "error", err)
		d.notifyApology(ctx, in, err)
		return "", err
	}

	if ev.Type() == cloudevent.TypeCreateEvent {
		// The created event's identifier is not known until the downstream
		// event-manager tool runs; message/thread registration for reaction
		// routing happens out-of-band once the chat adapter observes the
		// resulting event post (see RegisterEventThread).
		_ = taskID
	}
	return taskID, nil
}

// enforceModeration implements the one moderation rule in spec §4.2: delete
// the offending message and attempt a private notice, swallowing any
// failure from the notice.
func (d *Dispatcher) enforceModeration(ctx context.Context, in Interaction) {
	if err := d.platform.DeleteMessage(ctx, in.ChannelID, in.MessageID); err != nil {
		d.log.Warn(ctx, "chatadapter: moderation delete failed", "channel_id", in.ChannelID, "message_id", in.MessageID, "error", err)
	}
	_ = d.platform.SendDM(ctx, in.UserID, "Only reactions are allowed in event RSVP threads; your message was removed.")
}

// notifyDownloadFailure implements the "local download failure aborts
// emission with a user notice" failure model (spec §4.2).
func (d *Dispatcher) notifyDownloadFailure(ctx context.Context, in Interaction) {
	_, _ = d.platform.SendMessage(ctx, in.ChannelID, "I couldn't download that image, please try again.")
}

// notifyApology implements the "network errors to Task Manager surface as a
// user-visible apology reply" failure model (spec §4.2).
func (d *Dispatcher) notifyApology(ctx context.Context, in Interaction, err error) {
	_, _ = d.platform.SendMessage(ctx, in.ChannelID, apierr.Prose(apierr.KindOf(err)))
}
