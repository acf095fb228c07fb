package chatadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tltguild/tlt-core/cloudevent"
	"github.com/tltguild/tlt-core/internal/apierr"
)

// IngressClient posts CloudEvents to the coordinator's own /cloudevents
// endpoint (spec §6), the same contract an external chat-platform process
// would use. Running the chat adapter in the same binary as the rest of the
// coordinator does not special-case this call: it is a plain HTTP POST.
type IngressClient struct {
	baseURL string
	http    *http.Client
}

// NewIngressClient constructs an IngressClient targeting baseURL (the
// coordinator's ingress base, e.g. "http://localhost:8080").
func NewIngressClient(baseURL string) *IngressClient {
	return &IngressClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

type ingressResponse struct {
	CloudEventID string `json:"cloudevent_id"`
	TaskID       string `json:"task_id"`
}

type ingressErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Submit implements IngressPoster by POSTing ev to /cloudevents.
func (c *IngressClient) Submit(ctx context.Context, ev cloudevent.Event) (string, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return "", apierr.Wrap(apierr.KindInternal, "encode cloudevent", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cloudevents", bytes.NewReader(body))
	if err != nil {
		return "", apierr.Wrap(apierr.KindInternal, "build ingress request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apierr.Wrap(apierr.KindServiceUnavailable, "task manager unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierr.Wrap(apierr.KindIO, "read ingress response", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		var out ingressResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", apierr.Wrap(apierr.KindInternal, "decode ingress response", err)
		}
		return out.TaskID, nil
	case http.StatusTooManyRequests:
		return "", apierr.New(apierr.KindRateLimited, "ingress rate limited")
	case http.StatusBadRequest:
		var eb ingressErrorBody
		_ = json.Unmarshal(raw, &eb)
		return "", apierr.New(apierr.KindValidation, eb.Message)
	default:
		return "", apierr.Newf(apierr.KindServiceUnavailable, "task manager returned http %d", resp.StatusCode)
	}
}
