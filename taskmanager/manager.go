package taskmanager

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tltguild/tlt-core/cloudevent"
	"github.com/tltguild/tlt-core/internal/apierr"
	"github.com/tltguild/tlt-core/internal/telemetry"
)

// Agent is implemented by the agent graph driver (C4). The Task Manager's
// worker loop hands each dequeued task, together with its freshly
// initialized Lifecycle, to Submit, and polls Lifecycle to detect
// completion (spec §4.3).
type Agent interface {
	Submit(ctx context.Context, task *Task, lifecycle *Lifecycle) error
}

// Options configures a Manager; zero values fall back to the spec §6/§4.3
// defaults.
type Options struct {
	RateLimitPerMinute int
	QueueSoftCeiling   int
	CompletedCap       int
	CompletionTimeout  time.Duration
	PollInterval       time.Duration
}

func (o Options) withDefaults() Options {
	if o.RateLimitPerMinute <= 0 {
		o.RateLimitPerMinute = 30
	}
	if o.QueueSoftCeiling <= 0 {
		o.QueueSoftCeiling = 100
	}
	if o.CompletedCap <= 0 {
		o.CompletedCap = 1000
	}
	if o.CompletionTimeout <= 0 {
		o.CompletionTimeout = 500 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	return o
}

type queuedItem struct {
	task      *Task
	lifecycle *Lifecycle
}

// Manager implements the Task Manager contract of spec §4.3.
type Manager struct {
	agent   Agent
	log     telemetry.Logger
	metrics telemetry.Metrics
	opts    Options

	limiter *rate.Limiter

	mu         sync.Mutex
	queues     map[Priority][]queuedItem
	queueLen   int
	pending    map[string]*Task
	lifecycles map[string]*Lifecycle
	completed  *lruTasks

	startedAt time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup

	metricsCounters struct {
		received, completed, failed, rateLimited int64
	}
}

// New constructs a Manager bound to agent, the component that will actually
// process dequeued tasks.
func New(agent Agent, log telemetry.Logger, metrics telemetry.Metrics, opts Options) *Manager {
	opts = opts.withDefaults()
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	burst := opts.RateLimitPerMinute
	m := &Manager{
		agent:      agent,
		log:        log,
		metrics:    metrics,
		opts:       opts,
		limiter:    rate.NewLimiter(rate.Limit(float64(opts.RateLimitPerMinute)/60.0), burst),
		queues:     make(map[Priority][]queuedItem),
		pending:    make(map[string]*Task),
		lifecycles: make(map[string]*Lifecycle),
		completed:  newLRUTasks(opts.CompletedCap),
		startedAt:  time.Now(),
		stopCh:     make(chan struct{}),
	}
	return m
}

// Start launches the worker loop; it returns immediately. Stop or
// cancelling ctx ends the loop.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop signals the worker loop to exit and waits for it to do so.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// Submit validates and enqueues a CloudEvent, returning its Task's id (spec
// §4.3). It never blocks on downstream processing.
func (m *Manager) Submit(ctx context.Context, ev cloudevent.Event) (string, error) {
	trigger, ok := triggerByCloudEventType[ev.Type()]
	if !ok {
		return "", apierr.Newf(apierr.KindValidation, "unsupported cloudevent type %q", ev.Type())
	}

	m.mu.Lock()
	queueLen := m.queueLen
	m.mu.Unlock()
	if queueLen >= m.opts.QueueSoftCeiling {
		m.metricsCounters.rateLimited++
		m.metrics.IncCounter("taskmanager.rate_limited", 1, "reason", "queue_ceiling")
		return "", apierr.New(apierr.KindRateLimited, "ingress queue is at capacity")
	}
	if !m.limiter.Allow() {
		m.metricsCounters.rateLimited++
		m.metrics.IncCounter("taskmanager.rate_limited", 1, "reason", "sliding_window")
		return "", apierr.New(apierr.KindRateLimited, "ingress rate limit exceeded")
	}

	now := time.Now().UTC()
	taskID := newID()
	task := &Task{
		TaskID:    taskID,
		EventID:   ev.ID(),
		Trigger:   trigger,
		Priority:  defaultPriority(ev.Type()),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    TaskPending,
		Event:     &ev,
	}
	lifecycle := NewLifecycle(taskID, ev.ID(), trigger, ev.Type(), now)
	lifecycle.AppendEntry(LifecycleEntry{Timestamp: now, Status: LifecycleQueued, Node: "task-manager"})

	m.mu.Lock()
	m.pending[taskID] = task
	m.lifecycles[taskID] = lifecycle
	m.queues[task.Priority] = append(m.queues[task.Priority], queuedItem{task: task, lifecycle: lifecycle})
	m.queueLen++
	m.mu.Unlock()

	m.metricsCounters.received++
	m.metrics.IncCounter("taskmanager.tasks_received", 1)
	m.log.Info(ctx, "taskmanager: task queued", "task_id", taskID, "trigger", trigger, "priority", task.Priority)
	return taskID, nil
}

// Status returns the task record for taskID, or (nil, false) if unknown.
func (m *Manager) Status(taskID string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.pending[taskID]; ok {
		cp := *t
		return &cp, true
	}
	if t, ok := m.completed.get(taskID); ok {
		cp := *t
		return &cp, true
	}
	return nil, false
}

// List returns tasks matching an optional status filter, in
// priority-then-creation order, capped at limit.
func (m *Manager) List(statusFilter TaskStatus, limit int) []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*Task, 0, len(m.pending)+m.completed.len())
	for _, t := range m.pending {
		all = append(all, t)
	}
	all = append(all, m.completed.all()...)

	filtered := all[:0:0]
	for _, t := range all {
		if statusFilter == "" || t.Status == statusFilter {
			filtered = append(filtered, t)
		}
	}
	sortByPriorityThenCreation(filtered)
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	out := make([]*Task, len(filtered))
	for i, t := range filtered {
		cp := *t
		out[i] = &cp
	}
	return out
}

func sortByPriorityThenCreation(tasks []*Task) {
	// Highest priority first, then earliest creation; small-N insertion sort
	// keeps this allocation-free and matches the bounded snapshot sizes this
	// component deals in.
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && less(tasks[j], tasks[j-1]); j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
}

func less(a, b *Task) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// LifecycleOf returns the current lifecycle snapshot for taskID, for the
// task-result query endpoints.
func (m *Manager) LifecycleOf(taskID string) (Lifecycle, bool) {
	m.mu.Lock()
	l, ok := m.lifecycles[taskID]
	m.mu.Unlock()
	if !ok {
		return Lifecycle{}, false
	}
	return l.Snapshot(), true
}

// Stats reports uptime and aggregate counters for the /monitor/status
// endpoint.
type Stats struct {
	UptimeStart  time.Time
	Received     int64
	Completed    int64
	Failed       int64
	RateLimited  int64
	QueueDepth   int
	PendingCount int
}

// Stats returns the current aggregate counters (spec §4.3 "metrics
// recorded").
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		UptimeStart:  m.startedAt,
		Received:     m.metricsCounters.received,
		Completed:    m.metricsCounters.completed,
		Failed:       m.metricsCounters.failed,
		RateLimited:  m.metricsCounters.rateLimited,
		QueueDepth:   m.queueLen,
		PendingCount: len(m.pending),
	}
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			item, ok := m.dequeue()
			if !ok {
				continue
			}
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.process(ctx, item)
			}()
		}
	}
}

func (m *Manager) dequeue() (queuedItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow} {
		q := m.queues[p]
		if len(q) == 0 {
			continue
		}
		item := q[0]
		m.queues[p] = q[1:]
		m.queueLen--
		return item, true
	}
	return queuedItem{}, false
}

func (m *Manager) process(ctx context.Context, item queuedItem) {
	task, lifecycle := item.task, item.lifecycle
	now := time.Now().UTC()

	m.mu.Lock()
	task.Status = TaskProcessing
	task.UpdatedAt = now
	m.mu.Unlock()

	if err := m.agent.Submit(ctx, task, lifecycle); err != nil {
		m.finish(ctx, task, lifecycle, TaskFailed, err.Error())
		return
	}

	deadline := time.Now().Add(m.opts.CompletionTimeout)
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	for {
		if lifecycle.IsFinal() {
			snap := lifecycle.Snapshot()
			switch snap.FinalStatus {
			case LifecycleCompleted:
				m.finish(ctx, task, lifecycle, TaskCompleted, "")
			default:
				m.finish(ctx, task, lifecycle, TaskFailed, string(snap.FinalStatus))
			}
			return
		}
		if time.Now().After(deadline) {
			lifecycle.AppendEntry(LifecycleEntry{Timestamp: time.Now().UTC(), Status: LifecycleAbandoned, Node: "task-manager", Details: "completion timeout exceeded"})
			m.finish(ctx, task, lifecycle, TaskFailed, "abandoned: completion timeout exceeded")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) finish(ctx context.Context, task *Task, lifecycle *Lifecycle, status TaskStatus, errMsg string) {
	m.mu.Lock()
	task.Status = status
	task.Error = errMsg
	task.UpdatedAt = time.Now().UTC()
	delete(m.pending, task.TaskID)
	m.completed.put(task)
	m.mu.Unlock()

	if status == TaskCompleted {
		m.metricsCounters.completed++
		m.metrics.IncCounter("taskmanager.tasks_completed", 1)
	} else {
		m.metricsCounters.failed++
		m.metrics.IncCounter("taskmanager.tasks_failed", 1)
	}
	m.log.Info(ctx, "taskmanager: task finished", "task_id", task.TaskID, "status", status, "error", errMsg)
}

// lruTasks is a bounded map[taskID]*Task with LRU eviction by update time,
// grounded on the teacher's bounded in-memory run store pattern.
type lruTasks struct {
	cap   int
	order *list.List
	index map[string]*list.Element
}

type lruEntry struct {
	taskID string
	task   *Task
}

func newLRUTasks(capacity int) *lruTasks {
	return &lruTasks{cap: capacity, order: list.New(), index: make(map[string]*list.Element)}
}

func (c *lruTasks) put(t *Task) {
	if el, ok := c.index[t.TaskID]; ok {
		c.order.MoveToFront(el)
		el.Value.(*lruEntry).task = t
		return
	}
	el := c.order.PushFront(&lruEntry{taskID: t.TaskID, task: t})
	c.index[t.TaskID] = el
	for c.order.Len() > c.cap {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*lruEntry).taskID)
	}
}

func (c *lruTasks) get(taskID string) (*Task, bool) {
	el, ok := c.index[taskID]
	if !ok {
		return nil, false
	}
	return el.Value.(*lruEntry).task, true
}

func (c *lruTasks) all() []*Task {
	out := make([]*Task, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*lruEntry).task)
	}
	return out
}

func (c *lruTasks) len() int { return c.order.Len() }
