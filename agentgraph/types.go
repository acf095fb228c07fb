// Package agentgraph drives each task through the five-node state graph of
// spec §4.4: init, event-monitor, reasoning, tool-executor, respond. A
// single Agent State value is threaded through every node for a given
// guild; nodes mutate it in place and are responsible for bounding the
// growth of every list they append to.
package agentgraph

import (
	"time"

	"github.com/tltguild/tlt-core/cloudevent"
	"github.com/tltguild/tlt-core/taskmanager"
)

// maxBounded/retainBounded implement the "capped at 20, retain last 10 on
// overflow" rule repeated across Agent State's list fields (spec §4.4).
const (
	maxBounded    = 20
	retainBounded = 10
)

// AgentStatus is the closed set of operating statuses for Agent State.
type AgentStatus string

const (
	StatusInitializing AgentStatus = "initializing"
	StatusIdle          AgentStatus = "idle"
	StatusProcessing    AgentStatus = "processing"
	StatusWaiting       AgentStatus = "waiting"
	StatusError         AgentStatus = "error"
	StatusStopping      AgentStatus = "stopping"
)

// DecisionType is the closed set of decisions the reasoning node can emit.
type DecisionType string

const (
	DecisionSendMessage    DecisionType = "send-message"
	DecisionScheduleTimer  DecisionType = "schedule-timer"
	DecisionUseTool        DecisionType = "use-tool"
	DecisionNoAction       DecisionType = "no-action"
	DecisionUpdateEvent    DecisionType = "update-event"
	DecisionCreateReminder DecisionType = "create-reminder"
)

// Decision is the reasoning node's sole output type (spec §3).
type Decision struct {
	Type       DecisionType
	Reasoning  string
	Confidence float64
	Priority   taskmanager.Priority
	Metadata   map[string]any

	// send-message
	MessageContent string
	TargetChannel  string

	// schedule-timer
	TimerType    string
	DelayMinutes int

	// use-tool
	ToolName  string
	Arguments map[string]any
}

// ToolRequest is queued by the reasoning node for the tool-dispatch
// executor to consume (spec §3).
type ToolRequest struct {
	ToolName  string
	Arguments map[string]any
	Priority  taskmanager.Priority
	Metadata  map[string]any
	EventID   string
}

// ToolResult is what the tool-dispatch executor reports back for a
// ToolRequest.
type ToolResult struct {
	Success bool
	Result  map[string]any
	Error   string
}

// OutboundMessage is a message the respond node hands to the chat adapter.
type OutboundMessage struct {
	MessageID string
	ChannelID string
	Content   string
	Metadata  map[string]any
}

// Timer is a scheduled callback (spec §3). Deactivated when triggered.
type Timer struct {
	TimerID     string
	EventID     string
	TimerType   string
	ScheduledAt time.Time
	Priority    taskmanager.Priority
	Active      bool
	Metadata    map[string]any
}

// IncomingEvent wraps one unit of work traveling through the graph: either a
// CloudEvent-derived task or a fired Timer. Hops counts node visits made on
// this event's behalf, bounding runaway traversal per spec §4.4.
type IncomingEvent struct {
	TaskID    string
	Trigger   taskmanager.TriggerType
	Priority  taskmanager.Priority
	Lifecycle *taskmanager.Lifecycle
	CloudEvent *cloudevent.Event
	ChatContext  map[string]any
	EventContext map[string]any
	Hops      int
}

// ToolCallRecord is one entry in Agent State's bounded tool-call history.
type ToolCallRecord struct {
	ToolName string
	Success  bool
	At       time.Time
}

// State is the single mutable record threaded through every graph node for
// one guild (spec §3). External callers may only read it through Snapshot.
type State struct {
	AgentID string
	GuildID string
	Status  AgentStatus

	IterationCount  int
	MonitoringCycle int

	CurrentEvent      *IncomingEvent
	PendingEvents     []*IncomingEvent
	ProcessedEventIDs []string

	ActiveTimers []*Timer

	RecentDecisions []Decision

	PendingToolRequests []ToolRequest
	PendingMessages     []OutboundMessage

	EventContextCache map[string]map[string]any
	UserContext       map[string]map[string]any

	ToolCallHistory []ToolCallRecord
	ErrorHistory    []string

	Config map[string]any
	Debug  bool
}

// newState constructs a freshly initializing State for one guild.
func newState(guildID string) *State {
	return &State{
		AgentID:           "agent-" + guildID,
		GuildID:           guildID,
		Status:            StatusInitializing,
		EventContextCache: make(map[string]map[string]any),
		UserContext:       make(map[string]map[string]any),
		Config:            make(map[string]any),
	}
}

// appendDecision bounds RecentDecisions to maxBounded, retaining the last
// retainBounded on overflow (spec §4.4).
func (s *State) appendDecision(d Decision) {
	s.RecentDecisions = boundAppend(s.RecentDecisions, d)
}

func (s *State) appendToolCall(r ToolCallRecord) {
	s.ToolCallHistory = boundAppend(s.ToolCallHistory, r)
}

func (s *State) appendError(msg string) {
	s.ErrorHistory = boundAppend(s.ErrorHistory, msg)
}

func boundAppend[T any](list []T, item T) []T {
	list = append(list, item)
	if len(list) > maxBounded {
		list = append([]T(nil), list[len(list)-retainBounded:]...)
	}
	return list
}

// Projection is the read-only view external callers (snapshot endpoint,
// chat adapter poller) receive instead of the live State.
type Projection struct {
	GuildID          string
	Status           AgentStatus
	PendingMessages  []OutboundMessage
	EventUpdates     []map[string]any
	UserNotifications []map[string]any
}
