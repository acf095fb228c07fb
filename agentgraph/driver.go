package agentgraph

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tltguild/tlt-core/internal/telemetry"
	"github.com/tltguild/tlt-core/taskmanager"
)

// ReasoningNode is implemented by the reasoning component (C5). Given the
// guild's State and the event currently being processed, it produces
// exactly one Decision (spec §4.5).
type ReasoningNode interface {
	Decide(ctx context.Context, state *State, event *IncomingEvent) (Decision, error)
}

// ToolExecutor is implemented by the tool-dispatch executor (C6). It
// consumes one queued ToolRequest and reports the outcome.
type ToolExecutor interface {
	Execute(ctx context.Context, state *State, event *IncomingEvent, req ToolRequest) ToolResult
}

// ChatSender is implemented by the chat adapter (C2). The respond node
// drains pending messages through it.
type ChatSender interface {
	Send(ctx context.Context, guildID string, msg OutboundMessage) error
}

// Options configures a Driver; zero values fall back to spec §6 defaults.
type Options struct {
	RecursionLimit int
}

func (o Options) withDefaults() Options {
	if o.RecursionLimit <= 0 {
		o.RecursionLimit = 500
	}
	return o
}

// Driver runs the five-node state graph, one continuous loop per guild
// (spec §5 "the Agent's continuous loop"). It implements taskmanager.Agent.
type Driver struct {
	reasoning ReasoningNode
	executor  ToolExecutor
	sender    ChatSender
	log       telemetry.Logger
	metrics   telemetry.Metrics
	opts      Options

	mu     sync.Mutex
	guilds map[string]*guildRuntime

	stopCh chan struct{}
	wg     sync.WaitGroup
}

type guildRuntime struct {
	mu      sync.Mutex
	state   *State
	pending []*IncomingEvent
	wake    chan struct{}
}

// New constructs a Driver. sender may be nil until the chat adapter is
// wired up; respond then logs instead of delivering.
func New(reasoning ReasoningNode, executor ToolExecutor, sender ChatSender, log telemetry.Logger, metrics telemetry.Metrics, opts Options) *Driver {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Driver{
		reasoning: reasoning,
		executor:  executor,
		sender:    sender,
		log:       log,
		metrics:   metrics,
		opts:      opts.withDefaults(),
		guilds:    make(map[string]*guildRuntime),
		stopCh:    make(chan struct{}),
	}
}

// Stop signals every guild loop to exit and waits for them to do so.
func (d *Driver) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// guildFromSource extracts the guild segment from a "/chat/<guild>[/<channel>]" source URI.
func guildFromSource(src string) string {
	trimmed := strings.TrimPrefix(src, "/chat/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

func (d *Driver) runtimeFor(ctx context.Context, guildID string) *guildRuntime {
	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok := d.guilds[guildID]; ok {
		return g
	}
	g := &guildRuntime{state: newState(guildID), wake: make(chan struct{}, 1)}
	g.state.Status = StatusIdle
	d.guilds[guildID] = g
	d.wg.Add(1)
	go d.loop(ctx, g)
	return g
}

// Submit implements taskmanager.Agent: it enqueues task as a pending event
// for its guild's loop and returns immediately.
func (d *Driver) Submit(ctx context.Context, task *taskmanager.Task, lifecycle *taskmanager.Lifecycle) error {
	guildID := ""
	if task.Event != nil {
		guildID = guildFromSource(task.Event.Source())
	}
	if guildID == "" {
		guildID = "unknown"
	}
	g := d.runtimeFor(ctx, guildID)

	event := &IncomingEvent{
		TaskID:     task.TaskID,
		Trigger:    task.Trigger,
		Priority:   task.Priority,
		Lifecycle:  lifecycle,
		CloudEvent: task.Event,
	}

	g.mu.Lock()
	g.pending = append(g.pending, event)
	g.mu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
	return nil
}

// Snapshot returns a read-only projection of every known guild's state,
// backing the /monitor/agent/state endpoint.
func (d *Driver) Snapshot() map[string]Projection {
	d.mu.Lock()
	guilds := make([]*guildRuntime, 0, len(d.guilds))
	for _, g := range d.guilds {
		guilds = append(guilds, g)
	}
	d.mu.Unlock()

	out := make(map[string]Projection, len(guilds))
	for _, g := range guilds {
		g.mu.Lock()
		p := Projection{
			GuildID:         g.state.GuildID,
			Status:          g.state.Status,
			PendingMessages: append([]OutboundMessage(nil), g.state.PendingMessages...),
		}
		g.mu.Unlock()
		out[p.GuildID] = p
	}
	return out
}

func (d *Driver) loop(ctx context.Context, g *guildRuntime) {
	defer d.wg.Done()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-g.wake:
			d.runEventMonitor(ctx, g)
		case <-ticker.C:
			d.runEventMonitor(ctx, g)
		}
	}
}

// runEventMonitor implements the event-monitor node (spec §4.4): fires due
// timers, then pops one pending event (if any) and drives it through
// reasoning -> tool-executor/respond -> back to event-monitor. Two tasks
// never advance concurrently within one guild by construction; distinct
// guilds run independent loops so the "two tasks advancing concurrently"
// allowance in spec §5 is satisfied across guilds rather than within one.
func (d *Driver) runEventMonitor(ctx context.Context, g *guildRuntime) {
	g.mu.Lock()
	g.state.MonitoringCycle++
	if g.state.MonitoringCycle < 1 {
		g.state.MonitoringCycle = 1
	}
	d.fireDueTimers(g)

	var event *IncomingEvent
	if len(g.pending) > 0 {
		event = g.pending[0]
		g.pending = g.pending[1:]
	}
	g.state.Status = StatusProcessing
	if event == nil {
		g.state.Status = StatusIdle
	}
	g.mu.Unlock()

	if event == nil {
		return
	}

	event.Lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: time.Now().UTC(), Status: taskmanager.LifecycleInMonitor, Node: "event-monitor"})
	d.enrich(g, event)
	d.advance(ctx, g, event)
}

func (d *Driver) fireDueTimers(g *guildRuntime) {
	now := time.Now().UTC()
	remaining := g.state.ActiveTimers[:0]
	for _, t := range g.state.ActiveTimers {
		if t.Active && !t.ScheduledAt.After(now) {
			t.Active = false
			lifecycle := taskmanager.NewLifecycle("timer-"+t.TimerID, t.EventID, taskmanager.TriggerTimer, "", now)
			g.pending = append(g.pending, &IncomingEvent{
				TaskID:    lifecycle.TaskID,
				Trigger:   taskmanager.TriggerTimer,
				Priority:  t.Priority,
				Lifecycle: lifecycle,
			})
			continue
		}
		remaining = append(remaining, t)
	}
	g.state.ActiveTimers = remaining
}

// enrich classifies and attaches chat/event context for CloudEvent-backed
// events; enrichment failures keep the original event unchanged (spec §4.4).
func (d *Driver) enrich(g *guildRuntime, event *IncomingEvent) {
	if event.CloudEvent == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var payload map[string]any
	if err := event.CloudEvent.DataAs(&payload); err == nil {
		event.EventContext = payload
	}
}

// advance drives one event through reasoning, (optionally) tool-executor,
// and (optionally) respond, enforcing the recursion bound across the whole
// traversal (spec §4.4).
func (d *Driver) advance(ctx context.Context, g *guildRuntime, event *IncomingEvent) {
	node := "reasoning"
	for {
		event.Hops++
		if event.Hops > d.opts.RecursionLimit {
			event.Lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: time.Now().UTC(), Status: taskmanager.LifecycleAbandoned, Node: node, Details: "recursion limit exceeded"})
			d.metrics.IncCounter("agentgraph.recursion_abandoned", 1)
			return
		}

		switch node {
		case "reasoning":
			node = d.runReasoning(ctx, g, event)
		case "tool-executor":
			node = d.runToolExecutor(ctx, g, event)
		case "respond":
			d.runRespond(ctx, g, event)
			return
		default:
			return
		}
		if node == "" {
			return
		}
	}
}

func (d *Driver) runReasoning(ctx context.Context, g *guildRuntime, event *IncomingEvent) string {
	event.Lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: time.Now().UTC(), Status: taskmanager.LifecycleInReasoning, Node: "reasoning"})

	g.mu.Lock()
	state := g.state
	g.mu.Unlock()

	decision, err := d.reasoning.Decide(ctx, state, event)
	if err != nil {
		decision = Decision{Type: DecisionNoAction, Reasoning: "reasoning node error: " + err.Error(), Confidence: 0.1}
	}

	g.mu.Lock()
	state.appendDecision(decision)
	switch decision.Type {
	case DecisionSendMessage, DecisionCreateReminder:
		state.PendingMessages = append(state.PendingMessages, OutboundMessage{
			MessageID: event.TaskID,
			ChannelID: decision.TargetChannel,
			Content:   decision.MessageContent,
		})
	case DecisionScheduleTimer:
		state.ActiveTimers = append(state.ActiveTimers, &Timer{
			TimerID:     event.TaskID,
			EventID:     event.TaskID,
			TimerType:   decision.TimerType,
			ScheduledAt: time.Now().UTC().Add(time.Duration(decision.DelayMinutes) * time.Minute),
			Priority:    decision.Priority,
			Active:      true,
		})
	case DecisionUseTool:
		meta := map[string]any{}
		for k, v := range decision.Metadata {
			meta[k] = v
		}
		meta["task_id"] = event.TaskID
		state.PendingToolRequests = append(state.PendingToolRequests, ToolRequest{
			ToolName:  decision.ToolName,
			Arguments: decision.Arguments,
			Priority:  decision.Priority,
			Metadata:  meta,
			EventID:   event.TaskID,
		})
	}
	g.mu.Unlock()

	switch decision.Type {
	case DecisionUseTool:
		return "tool-executor"
	case DecisionSendMessage, DecisionCreateReminder:
		return "respond"
	default:
		return ""
	}
}

func (d *Driver) runToolExecutor(ctx context.Context, g *guildRuntime, event *IncomingEvent) string {
	event.Lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: time.Now().UTC(), Status: taskmanager.LifecycleInExecutor, Node: "tool-executor"})

	g.mu.Lock()
	var req ToolRequest
	found := false
	for i, r := range g.state.PendingToolRequests {
		if r.EventID == event.TaskID {
			req = r
			found = true
			g.state.PendingToolRequests = append(g.state.PendingToolRequests[:i], g.state.PendingToolRequests[i+1:]...)
			break
		}
	}
	state := g.state
	g.mu.Unlock()

	if !found {
		return ""
	}

	result := d.executor.Execute(ctx, state, event, req)

	g.mu.Lock()
	state.appendToolCall(ToolCallRecord{ToolName: req.ToolName, Success: result.Success, At: time.Now().UTC()})
	if !result.Success {
		state.appendError(result.Error)
	}
	messagesQueued := len(state.PendingMessages) > 0
	g.mu.Unlock()

	if !result.Success {
		event.Lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: time.Now().UTC(), Status: taskmanager.LifecycleError, Node: "tool-executor", Details: result.Error})
		return ""
	}
	if messagesQueued {
		return "respond"
	}
	event.Lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: time.Now().UTC(), Status: taskmanager.LifecycleCompleted, Node: "tool-executor"})
	return ""
}

func (d *Driver) runRespond(ctx context.Context, g *guildRuntime, event *IncomingEvent) {
	event.Lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: time.Now().UTC(), Status: taskmanager.LifecycleInRespond, Node: "respond"})

	g.mu.Lock()
	messages := g.state.PendingMessages
	g.state.PendingMessages = nil
	guildID := g.state.GuildID
	g.mu.Unlock()

	for _, msg := range messages {
		if d.sender == nil {
			d.log.Info(ctx, "agentgraph: no chat sender wired, dropping message", "guild_id", guildID, "message_id", msg.MessageID)
			continue
		}
		if err := d.sender.Send(ctx, guildID, msg); err != nil {
			d.log.Warn(ctx, "agentgraph: message delivery failed", "guild_id", guildID, "error", err)
		}
	}
	event.Lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: time.Now().UTC(), Status: taskmanager.LifecycleCompleted, Node: "respond"})
}
