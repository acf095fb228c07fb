package taskmanager_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tltguild/tlt-core/cloudevent"
	"github.com/tltguild/tlt-core/taskmanager"
)

// fakeAgent immediately completes every task it receives, recording the
// lifecycle so tests can assert on the final entries.
type fakeAgent struct {
	mu        sync.Mutex
	submitted []*taskmanager.Task
	fail      bool
}

func (a *fakeAgent) Submit(_ context.Context, task *taskmanager.Task, lifecycle *taskmanager.Lifecycle) error {
	a.mu.Lock()
	a.submitted = append(a.submitted, task)
	a.mu.Unlock()
	now := time.Now().UTC()
	lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: now, Status: taskmanager.LifecycleInReasoning, Node: "reasoning"})
	if a.fail {
		lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: now, Status: taskmanager.LifecycleError, Node: "tool-executor"})
		return nil
	}
	lifecycle.AppendEntry(taskmanager.LifecycleEntry{Timestamp: now, Status: taskmanager.LifecycleCompleted, Node: "respond"})
	return nil
}

func newListEventsCE(t *testing.T, guild string) cloudevent.Event {
	t.Helper()
	ev, err := cloudevent.NewListEvents(guild, "c1", cloudevent.ListEventsPayload{GuildID: guild})
	require.NoError(t, err)
	return ev
}

func TestManager_SubmitAndComplete(t *testing.T) {
	agent := &fakeAgent{}
	m := taskmanager.New(agent, nil, nil, taskmanager.Options{CompletionTimeout: time.Second, PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	taskID, err := m.Submit(ctx, newListEventsCE(t, "g1"))
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	require.Eventually(t, func() bool {
		task, ok := m.Status(taskID)
		return ok && task.Status == taskmanager.TaskCompleted
	}, 2*time.Second, 10*time.Millisecond)

	lc, ok := m.LifecycleOf(taskID)
	require.True(t, ok)
	assert.Equal(t, taskmanager.LifecycleCompleted, lc.FinalStatus)
	assert.Equal(t, taskmanager.LifecycleReceived, lc.Entries[0].Status)
}

// TestManager_RateLimit_ExactCap covers P4: submitting N events where N
// exceeds the cap yields exactly cap successes and N-cap rate-limited
// responses, regardless of arrival pattern (all submitted back to back here).
func TestManager_RateLimit_ExactCap(t *testing.T) {
	agent := &fakeAgent{}
	m := taskmanager.New(agent, nil, nil, taskmanager.Options{RateLimitPerMinute: 30, QueueSoftCeiling: 1000})
	ctx := context.Background()

	succeeded, limited := 0, 0
	for i := 0; i < 31; i++ {
		_, err := m.Submit(ctx, newListEventsCE(t, "g1"))
		if err == nil {
			succeeded++
		} else {
			limited++
		}
	}
	assert.Equal(t, 30, succeeded)
	assert.Equal(t, 1, limited)
}

func TestManager_QueueSoftCeiling(t *testing.T) {
	agent := &fakeAgent{}
	m := taskmanager.New(agent, nil, nil, taskmanager.Options{RateLimitPerMinute: 1000, QueueSoftCeiling: 2})
	ctx := context.Background()

	_, err1 := m.Submit(ctx, newListEventsCE(t, "g1"))
	_, err2 := m.Submit(ctx, newListEventsCE(t, "g1"))
	_, err3 := m.Submit(ctx, newListEventsCE(t, "g1"))
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Error(t, err3)
}

func TestManager_AgentFailure_MarksTaskFailed(t *testing.T) {
	agent := &fakeAgent{fail: true}
	m := taskmanager.New(agent, nil, nil, taskmanager.Options{CompletionTimeout: time.Second, PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	taskID, err := m.Submit(ctx, newListEventsCE(t, "g1"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		task, ok := m.Status(taskID)
		return ok && task.Status == taskmanager.TaskFailed
	}, 2*time.Second, 10*time.Millisecond)
}
