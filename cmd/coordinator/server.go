package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tltguild/tlt-core/agentgraph"
	"github.com/tltguild/tlt-core/cloudevent"
	"github.com/tltguild/tlt-core/internal/apierr"
	"github.com/tltguild/tlt-core/internal/telemetry"
	"github.com/tltguild/tlt-core/taskmanager"
)

// server implements the external HTTP interfaces of spec §6: the
// CloudEvent ingress endpoint, the agent-state snapshot endpoint consumed
// by the chat adapter's poller, the task/lifecycle query endpoints, and the
// liveness probe.
type server struct {
	manager *taskmanager.Manager
	driver  *agentgraph.Driver
	log     telemetry.Logger
	started time.Time
}

func newServer(manager *taskmanager.Manager, driver *agentgraph.Driver, log telemetry.Logger) *server {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &server{manager: manager, driver: driver, log: log, started: time.Now()}
}

func (s *server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/cloudevents", s.handleIngress)
	mux.HandleFunc("/monitor/agent/state", s.handleSnapshot)
	mux.HandleFunc("/monitor/status", s.handleStatus)
	mux.HandleFunc("/monitor/tasks/", s.handleTaskByID)
	mux.HandleFunc("/events/task/", s.handleTaskResult)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

type ingressResponse struct {
	CloudEventID string `json:"cloudevent_id"`
	TaskID       string `json:"task_id"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Kind: string(apierr.KindOf(err)), Message: err.Error()})
}

// handleIngress implements POST /cloudevents (spec §6).
func (s *server) handleIngress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var ev cloudevent.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, apierr.Wrap(apierr.KindValidation, "malformed cloudevent", err))
		return
	}

	taskID, err := s.manager.Submit(r.Context(), ev)
	if err != nil {
		switch apierr.KindOf(err) {
		case apierr.KindRateLimited:
			writeError(w, http.StatusTooManyRequests, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, ingressResponse{CloudEventID: ev.ID(), TaskID: taskID})
}

type snapshotWireMessage struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

type guildSnapshotWire struct {
	PendingMessages   []snapshotWireMessage `json:"pending_messages"`
	EventUpdates      []map[string]any      `json:"event_updates"`
	UserNotifications []map[string]any      `json:"user_notifications"`
}

// handleSnapshot implements GET /monitor/agent/state (spec §6).
func (s *server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	projections := s.driver.Snapshot()
	out := make(map[string]guildSnapshotWire, len(projections))
	for guildID, p := range projections {
		wire := guildSnapshotWire{
			EventUpdates:      p.EventUpdates,
			UserNotifications: p.UserNotifications,
		}
		for _, m := range p.PendingMessages {
			wire.PendingMessages = append(wire.PendingMessages, snapshotWireMessage{
				MessageID: m.MessageID,
				ChannelID: m.ChannelID,
				Content:   m.Content,
			})
		}
		out[guildID] = wire
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent_state_by_guild": out})
}

// handleStatus implements GET /monitor/status (spec §6).
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.manager.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": time.Since(stats.UptimeStart).Seconds(),
		"received":       stats.Received,
		"completed":      stats.Completed,
		"failed":         stats.Failed,
		"rate_limited":   stats.RateLimited,
		"queue_depth":    stats.QueueDepth,
		"pending_count":  stats.PendingCount,
	})
}

func taskIDFromPath(prefix, path string) string {
	if len(path) <= len(prefix) {
		return ""
	}
	id := path[len(prefix):]
	for i, r := range id {
		if r == '/' {
			return id[:i]
		}
	}
	return id
}

// handleTaskByID implements GET /monitor/tasks/<id> (spec §6).
func (s *server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID := taskIDFromPath("/monitor/tasks/", r.URL.Path)
	task, ok := s.manager.Status(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, apierr.New(apierr.KindNotFound, "unknown task"))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleTaskResult implements GET /events/task/<id>/result (spec §6),
// reporting the task's Lifecycle alongside its final status.
func (s *server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	taskID := taskIDFromPath("/events/task/", r.URL.Path)
	lifecycle, ok := s.manager.LifecycleOf(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, apierr.New(apierr.KindNotFound, "unknown task"))
		return
	}
	writeJSON(w, http.StatusOK, lifecycle)
}

// handleHealth implements GET /health (spec §6): 200 while the process is live.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "uptime_seconds": time.Since(s.started).Seconds()})
}
