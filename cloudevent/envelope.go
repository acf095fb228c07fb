package cloudevent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	ce "github.com/cloudevents/sdk-go/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tltguild/tlt-core/internal/apierr"
)

var validate = validator.New()

// sourcePattern enforces the `/chat/<guild>/<channel>` source contract; the
// channel segment is optional for guild-scoped events (register/deregister).
var sourcePattern = regexp.MustCompile(`^/chat/[^/]+(/[^/]+)?$`)

// Event wraps the canonical cloudevents.Event, constraining it to the closed
// type namespace and the `/chat/<guild>/<channel>` source contract (spec §3).
type Event struct {
	raw ce.Event
}

// Raw exposes the underlying cloudevents.Event for callers that need the
// canonical SDK type (e.g. a transport binding).
func (e Event) Raw() ce.Event { return e.raw }

// Type returns the CloudEvent type.
func (e Event) Type() Type { return Type(e.raw.Type()) }

// ID returns the CloudEvent id.
func (e Event) ID() string { return e.raw.ID() }

// Source returns the CloudEvent source URI.
func (e Event) Source() string { return e.raw.Source() }

// Subject returns the CloudEvent subject.
func (e Event) Subject() string { return e.raw.Subject() }

// Time returns the CloudEvent timestamp.
func (e Event) Time() time.Time { return e.raw.Time() }

// DataAs decodes the event's data payload into out.
func (e Event) DataAs(out any) error {
	if len(e.raw.Data()) == 0 {
		return nil
	}
	return e.raw.DataAs(out)
}

// DataBytes returns the raw JSON data payload.
func (e Event) DataBytes() []byte { return e.raw.Data() }

// source composes the `/chat/<guild>/<channel>` source URI required by §3.
// channel may be empty for guild-scoped (not channel-scoped) events.
func source(guildID, channelID string) string {
	if channelID == "" {
		return fmt.Sprintf("/chat/%s", guildID)
	}
	return fmt.Sprintf("/chat/%s/%s", guildID, channelID)
}

// build assembles and validates a new Event, filling id/time defaults and
// stamping the fixed fields the factories share.
func build(t Type, src, subject string, data any, opts ...Option) (Event, error) {
	if !IsValid(t) {
		return Event{}, apierr.Newf(apierr.KindValidation, "unrecognised cloudevent type %q", t)
	}
	if src == "" {
		return Event{}, apierr.ValidationField("source", "source is required")
	}
	if !sourcePattern.MatchString(src) {
		return Event{}, apierr.ValidationField("source", "source must match /chat/<guild>/<channel>")
	}
	if data != nil {
		if err := validate.Struct(data); err != nil {
			return Event{}, apierr.Wrap(apierr.KindValidation, firstValidationField(err), err)
		}
	}

	cfg := options{id: uuid.NewString(), ts: time.Now().UTC()}
	for _, o := range opts {
		o(&cfg)
	}

	raw := ce.NewEvent()
	raw.SetSpecVersion(SpecVersion)
	raw.SetType(string(t))
	raw.SetSource(src)
	raw.SetID(cfg.id)
	raw.SetTime(cfg.ts)
	if subject != "" {
		raw.SetSubject(subject)
	}
	contentType := cfg.contentType
	if contentType == "" {
		contentType = DefaultDataContentType
	}
	if data != nil {
		if err := raw.SetData(contentType, data); err != nil {
			return Event{}, apierr.Wrap(apierr.KindInternal, "encode cloudevent data", err)
		}
	}
	return Event{raw: raw}, nil
}

// firstValidationField extracts a human-readable "field is required" style
// message from the first validator.FieldError, matching the "validation
// failure with the field name" contract in spec §4.1.
func firstValidationField(err error) string {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		fe := ve[0]
		return fmt.Sprintf("%s is required", fe.Namespace())
	}
	return err.Error()
}

type options struct {
	id          string
	ts          time.Time
	contentType string
}

// Option customizes envelope construction; used by tests to supply
// deterministic ids/timestamps.
type Option func(*options)

// WithID overrides the generated UUIDv4 identifier.
func WithID(id string) Option { return func(o *options) { o.id = id } }

// WithTime overrides the stamped timestamp.
func WithTime(t time.Time) Option { return func(o *options) { o.ts = t } }

// WithDataContentType overrides the default "application/json" content type.
func WithDataContentType(ct string) Option { return func(o *options) { o.contentType = ct } }

// wireEnvelope mirrors the canonical JSON key order required by spec §4.1:
// specversion, type, source, id, time, datacontenttype, subject, data.
type wireEnvelope struct {
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	ID              string          `json:"id"`
	Time            string          `json:"time"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	Subject         string          `json:"subject,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON serializes the envelope with the field order mandated by spec
// §4.1, instead of relying on the SDK's default (unordered-map-backed)
// marshaling.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEnvelope{
		SpecVersion:     e.raw.SpecVersion(),
		Type:            e.raw.Type(),
		Source:          e.raw.Source(),
		ID:              e.raw.ID(),
		Time:            e.raw.Time().UTC().Format(time.RFC3339),
		DataContentType: e.raw.DataContentType(),
		Subject:         e.raw.Subject(),
	}
	if d := e.raw.Data(); len(d) > 0 {
		w.Data = json.RawMessage(d)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a wire envelope produced by MarshalJSON (or any
// spec-compliant CloudEvents 1.0 JSON document) back into an Event.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if !IsValid(Type(w.Type)) {
		return apierr.Newf(apierr.KindValidation, "unrecognised cloudevent type %q", w.Type)
	}
	raw := ce.NewEvent()
	raw.SetSpecVersion(SpecVersion)
	raw.SetType(w.Type)
	raw.SetSource(w.Source)
	raw.SetID(w.ID)
	if w.Time != "" {
		t, err := time.Parse(time.RFC3339, w.Time)
		if err != nil {
			return apierr.Wrap(apierr.KindValidation, "invalid time", err)
		}
		raw.SetTime(t)
	}
	if w.Subject != "" {
		raw.SetSubject(w.Subject)
	}
	if len(w.Data) > 0 {
		ct := w.DataContentType
		if ct == "" {
			ct = DefaultDataContentType
		}
		if err := raw.SetData(ct, []byte(w.Data)); err != nil {
			return apierr.Wrap(apierr.KindInternal, "decode cloudevent data", err)
		}
	}
	e.raw = raw
	return nil
}
