// Package taskmanager implements the ingress contract of spec §4.3: it
// accepts CloudEvents, wraps them as Agent Tasks, enforces the ingress rate
// limit and back-pressure ceiling, queues by priority, and hands tasks to the
// agent graph driver while tracking completion through each task's
// Lifecycle.
package taskmanager

import (
	"sync"
	"time"

	"github.com/tltguild/tlt-core/cloudevent"
)

// Priority orders tasks inside the ingress queue.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// TaskStatus is the closed set of states a Task moves through monotonically.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// TriggerType enumerates the CloudEvent families the graph driver dispatches
// on, mirroring the closed CloudEvent type namespace plus the synthetic
// "timer" trigger produced internally by the event-monitor node.
type TriggerType string

const (
	TriggerCreateEvent           TriggerType = "create_event"
	TriggerUpdateEvent           TriggerType = "update_event"
	TriggerDeleteEvent           TriggerType = "delete_event"
	TriggerListEvents            TriggerType = "list_events"
	TriggerEventInfo             TriggerType = "event_info"
	TriggerRegisterGuild         TriggerType = "register_guild"
	TriggerDeregisterGuild       TriggerType = "deregister_guild"
	TriggerRSVPEvent             TriggerType = "rsvp_event"
	TriggerPhotoVibeCheck        TriggerType = "photo_vibe_check"
	TriggerPromotionImage        TriggerType = "promotion_image"
	TriggerVibeAction            TriggerType = "vibe_action"
	TriggerSaveEventToGuildData  TriggerType = "save_event_to_guild_data"
	TriggerChatMessage           TriggerType = "chat_message"
	TriggerTimer                 TriggerType = "timer"
)

// triggerByCloudEventType maps a CloudEvent type to its TriggerType, per
// spec §4.3 "trigger type derived from the CloudEvent type".
var triggerByCloudEventType = map[cloudevent.Type]TriggerType{
	cloudevent.TypeCreateEvent:          TriggerCreateEvent,
	cloudevent.TypeUpdateEvent:          TriggerUpdateEvent,
	cloudevent.TypeDeleteEvent:          TriggerDeleteEvent,
	cloudevent.TypeListEvents:           TriggerListEvents,
	cloudevent.TypeEventInfo:            TriggerEventInfo,
	cloudevent.TypeRegisterGuild:        TriggerRegisterGuild,
	cloudevent.TypeDeregisterGuild:      TriggerDeregisterGuild,
	cloudevent.TypeRSVPEvent:            TriggerRSVPEvent,
	cloudevent.TypePhotoVibeCheck:       TriggerPhotoVibeCheck,
	cloudevent.TypePromotionImage:       TriggerPromotionImage,
	cloudevent.TypeVibeAction:           TriggerVibeAction,
	cloudevent.TypeSaveEventToGuildData: TriggerSaveEventToGuildData,
	cloudevent.TypeChatMessage:          TriggerChatMessage,
	cloudevent.TypeTimerTrigger:         TriggerTimer,
}

// defaultPriority implements the priority policy from spec §4.3: high for
// guild register/deregister/create-event, normal for update/delete/rsvp,
// low for list/info, normal otherwise.
func defaultPriority(t cloudevent.Type) Priority {
	switch t {
	case cloudevent.TypeRegisterGuild, cloudevent.TypeDeregisterGuild, cloudevent.TypeCreateEvent:
		return PriorityHigh
	case cloudevent.TypeUpdateEvent, cloudevent.TypeDeleteEvent, cloudevent.TypeRSVPEvent:
		return PriorityNormal
	case cloudevent.TypeListEvents, cloudevent.TypeEventInfo:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Task wraps one CloudEvent as it moves through the pipeline (spec §3).
type Task struct {
	TaskID    string
	EventID   string
	Trigger   TriggerType
	Priority  Priority
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    TaskStatus
	Result    map[string]any
	Error     string
	Event     *cloudevent.Event
}

// LifecycleStatus is the closed set of per-entry states a Lifecycle passes
// through (spec §3).
type LifecycleStatus string

const (
	LifecycleReceived    LifecycleStatus = "received"
	LifecycleQueued      LifecycleStatus = "queued"
	LifecycleProcessing  LifecycleStatus = "processing"
	LifecycleInMonitor   LifecycleStatus = "in-monitor"
	LifecycleInReasoning LifecycleStatus = "in-reasoning"
	LifecycleInExecutor  LifecycleStatus = "in-executor"
	LifecycleInRespond   LifecycleStatus = "in-respond"
	LifecycleCompleted   LifecycleStatus = "completed"
	LifecycleAbandoned   LifecycleStatus = "abandoned"
	LifecycleError       LifecycleStatus = "error"
)

// finalLifecycleStatuses is the closed set of terminal states (spec §3,
// invariant P1/P8).
var finalLifecycleStatuses = map[LifecycleStatus]bool{
	LifecycleCompleted: true,
	LifecycleAbandoned: true,
	LifecycleError:     true,
}

// LifecycleEntry is one append-only record of a Lifecycle's progress.
type LifecycleEntry struct {
	Timestamp time.Time
	Status    LifecycleStatus
	Node      string
	Details   string
	Metadata  map[string]any
}

// Lifecycle tracks one Task from receipt to a final status (spec §3). It is
// shared between the Task Manager (which creates it and polls for
// completion) and the agent graph driver (which appends node-transition
// entries), so every mutation goes through AppendEntry under mu.
// Invariant: once FinalStatus is set, no further entry is appended.
type Lifecycle struct {
	mu sync.Mutex

	TaskID          string
	EventID         string
	OriginalTrigger TriggerType
	CloudEventType  cloudevent.Type
	CreatedAt       time.Time
	CompletedAt     time.Time
	FinalStatus     LifecycleStatus
	Entries         []LifecycleEntry
}

// NewLifecycle constructs a Lifecycle with its initial "received" entry.
func NewLifecycle(taskID, eventID string, trigger TriggerType, ceType cloudevent.Type, now time.Time) *Lifecycle {
	l := &Lifecycle{
		TaskID:          taskID,
		EventID:         eventID,
		OriginalTrigger: trigger,
		CloudEventType:  ceType,
		CreatedAt:       now,
	}
	l.AppendEntry(LifecycleEntry{Timestamp: now, Status: LifecycleReceived, Node: "task-manager", Details: "cloudevent received"})
	return l
}

// AppendEntry adds an entry to the lifecycle unless it has already reached a
// final status, in which case the call is a silent no-op (spec §3
// invariant). Appending an entry whose status is itself final sets
// FinalStatus and CompletedAt.
func (l *Lifecycle) AppendEntry(e LifecycleEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FinalStatus != "" {
		return
	}
	l.Entries = append(l.Entries, e)
	if finalLifecycleStatuses[e.Status] {
		l.FinalStatus = e.Status
		l.CompletedAt = e.Timestamp
	}
}

// IsFinal reports whether the lifecycle has reached a terminal status.
func (l *Lifecycle) IsFinal() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.FinalStatus != ""
}

// Snapshot returns a defensively copied value safe for callers to read
// without holding the lifecycle's lock.
func (l *Lifecycle) Snapshot() Lifecycle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Lifecycle{
		TaskID:          l.TaskID,
		EventID:         l.EventID,
		OriginalTrigger: l.OriginalTrigger,
		CloudEventType:  l.CloudEventType,
		CreatedAt:       l.CreatedAt,
		CompletedAt:     l.CompletedAt,
		FinalStatus:     l.FinalStatus,
		Entries:         append([]LifecycleEntry(nil), l.Entries...),
	}
}

// NodesVisited derives the distinct node names present in Entries, used by
// P8 to verify node-visitation invariants.
func (l *Lifecycle) NodesVisited() map[string]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool)
	for _, e := range l.Entries {
		if e.Node != "" {
			seen[e.Node] = true
		}
	}
	return seen
}
