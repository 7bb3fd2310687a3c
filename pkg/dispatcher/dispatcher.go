// Package dispatcher coordinates task execution: agent registry, task
// validation, context hydration, provider selection, deadline racing,
// persistence and lifecycle events.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/metrics"
	"github.com/relayforge/taskmesh/pkg/utils/errutil"
	"github.com/relayforge/taskmesh/pkg/utils/logging"
)

const (
	// DefaultTimeoutMS applies when a task policy sets no deadline
	DefaultTimeoutMS = int64(30000)

	defaultEventBuffer = 256
)

// Dispatcher is the root coordinator. Submissions are independent and may
// run concurrently; there is no global lock. Correctness under concurrency
// rests on the store's per-conversation append atomicity and the active map
// being a simple keyed set.
type Dispatcher struct {
	store    interfaces.Store
	selector interfaces.ProviderSelector
	hub      *EventHub

	agentsMu sync.RWMutex
	agents   map[types.AgentID]interfaces.Agent

	activeMu sync.Mutex
	active   map[types.TaskID]time.Time

	startedAt    time.Time
	stopSelector func()
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithEventBuffer sets the lifecycle event channel capacity
func WithEventBuffer(size int) DispatcherOption {
	return func(d *Dispatcher) {
		d.hub = NewEventHub(size)
	}
}

// WithSelectorStop registers a hook run during Shutdown after the store is
// closed, used to stop a background availability refresh worker.
func WithSelectorStop(stop func()) DispatcherOption {
	return func(d *Dispatcher) {
		d.stopSelector = stop
	}
}

// New creates a dispatcher over the given store and selector
func New(store interfaces.Store, sel interfaces.ProviderSelector, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		selector:  sel,
		hub:       NewEventHub(defaultEventBuffer),
		agents:    make(map[types.AgentID]interfaces.Agent),
		active:    make(map[types.TaskID]time.Time),
		startedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Events returns the lifecycle event subscription channel
func (d *Dispatcher) Events() <-chan Event {
	return d.hub.Events()
}

// RegisterAgent adds an agent to the registry and emits a lifecycle event
func (d *Dispatcher) RegisterAgent(agent interfaces.Agent) error {
	if agent == nil {
		return goerr.New("agent is nil")
	}
	if agent.ID() == "" {
		return goerr.New("agent id is required")
	}

	d.agentsMu.Lock()
	if _, ok := d.agents[agent.ID()]; ok {
		d.agentsMu.Unlock()
		return goerr.New("agent already registered", goerr.V("agent_id", agent.ID()))
	}
	d.agents[agent.ID()] = agent
	d.agentsMu.Unlock()

	d.hub.Emit(Event{Type: EventAgentRegistered, AgentID: agent.ID()})
	return nil
}

// UnregisterAgent removes an agent from the registry
func (d *Dispatcher) UnregisterAgent(id types.AgentID) error {
	d.agentsMu.Lock()
	if _, ok := d.agents[id]; !ok {
		d.agentsMu.Unlock()
		return goerr.Wrap(ErrAgentNotFound, fmt.Sprintf("agent %q is not registered", id))
	}
	delete(d.agents, id)
	d.agentsMu.Unlock()

	d.hub.Emit(Event{Type: EventAgentUnregistered, AgentID: id})
	return nil
}

func (d *Dispatcher) lookupAgent(id types.AgentID) (interfaces.Agent, bool) {
	d.agentsMu.RLock()
	defer d.agentsMu.RUnlock()
	agent, ok := d.agents[id]
	return agent, ok
}

// ActiveAgents returns the number of registered agents
func (d *Dispatcher) ActiveAgents() int {
	d.agentsMu.RLock()
	defer d.agentsMu.RUnlock()
	return len(d.agents)
}

// ActiveTasks returns the number of tasks currently in flight
func (d *Dispatcher) ActiveTasks() int {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()
	return len(d.active)
}

// Uptime returns the time since the dispatcher was constructed
func (d *Dispatcher) Uptime() time.Duration {
	return time.Since(d.startedAt)
}

// Submit runs the full task pipeline. Every pipeline error becomes a
// terminal failed response with zeroed metadata; callers never see a raw
// error from this method.
func (d *Dispatcher) Submit(ctx context.Context, task *model.Task) *model.Response {
	if task == nil {
		return d.fail(ctx, "", "", "validation", goerr.Wrap(ErrValidation, "task is nil"))
	}

	if err := task.Validate(); err != nil {
		return d.fail(ctx, task.ID, task.AgentID, "validation", goerr.Wrap(ErrValidation, err.Error()))
	}

	agent, ok := d.lookupAgent(task.AgentID)
	if !ok {
		return d.fail(ctx, task.ID, task.AgentID, "agent_not_found",
			goerr.Wrap(ErrAgentNotFound, fmt.Sprintf("agent %q is not registered", task.AgentID)))
	}

	if err := d.hydrateContext(ctx, task); err != nil {
		return d.fail(ctx, task.ID, task.AgentID, "hydration", err)
	}

	provider, err := d.selector.Choose(task.Policy)
	if err != nil {
		return d.fail(ctx, task.ID, task.AgentID, "no_provider", err)
	}

	resp, err := d.execute(ctx, agent, task, provider)
	if err != nil {
		reason := "execution"
		if errors.Is(err, ErrTaskTimeout) {
			reason = "timeout"
		}
		return d.fail(ctx, task.ID, task.AgentID, reason, err)
	}

	if err := d.persist(ctx, task, resp); err != nil {
		return d.fail(ctx, task.ID, task.AgentID, "persist", err)
	}

	metrics.TasksCompleted.WithLabelValues(string(task.AgentID)).Inc()
	d.hub.Emit(Event{Type: EventTaskCompleted, TaskID: task.ID, AgentID: task.AgentID})

	return resp
}

// hydrateContext merges stored snapshot contents into the task context.
// Later snapshots override earlier keys; missing snapshots are skipped.
func (d *Dispatcher) hydrateContext(ctx context.Context, task *model.Task) error {
	if len(task.Context.Snapshots) == 0 {
		return nil
	}

	if task.Context.Values == nil {
		task.Context.Values = make(map[string]any)
	}

	for _, id := range task.Context.Snapshots {
		snapshot, err := d.store.Snapshots().Get(ctx, id)
		if err != nil {
			return goerr.Wrap(err, "failed to hydrate snapshot",
				goerr.V("task_id", task.ID), goerr.V("snapshot_id", id))
		}
		if snapshot == nil {
			logging.From(ctx).Debug("snapshot not found, skipping",
				"task_id", task.ID, "snapshot_id", id)
			continue
		}
		for k, v := range snapshot.Values {
			task.Context.Values[k] = v
		}
	}
	return nil
}

type execResult struct {
	resp *model.Response
	err  error
}

// execute races the agent against the policy deadline. When the timer
// wins, the agent goroutine is left running; it is no longer tracked and
// its eventual result is discarded.
func (d *Dispatcher) execute(ctx context.Context, agent interfaces.Agent, task *model.Task, provider *model.Provider) (*model.Response, error) {
	timeoutMS := task.Policy.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = DefaultTimeoutMS
	}

	d.markActive(task.ID)
	defer d.unmarkActive(task.ID)

	metrics.TasksActive.Inc()
	defer metrics.TasksActive.Dec()

	startedAt := time.Now()
	defer func() {
		metrics.TaskDuration.Observe(time.Since(startedAt).Seconds())
	}()

	resultCh := make(chan execResult, 1)
	go func() {
		resp, err := agent.ProcessTask(ctx, task, provider)
		resultCh <- execResult{resp: resp, err: err}
	}()

	timer := time.NewTimer(time.Duration(timeoutMS) * time.Millisecond)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, goerr.Wrap(res.err, "agent execution failed",
				goerr.V("task_id", task.ID), goerr.V("agent_id", task.AgentID))
		}
		return res.resp, nil

	case <-timer.C:
		return nil, goerr.Wrap(ErrTaskTimeout,
			fmt.Sprintf("task did not finish within %d ms", timeoutMS),
			goerr.V("task_id", task.ID))

	case <-ctx.Done():
		return nil, goerr.Wrap(ctx.Err(), "task context ended before completion",
			goerr.V("task_id", task.ID))
	}
}

// persist writes the result through the store and appends conversation
// history when the task is linked to a conversation.
func (d *Dispatcher) persist(ctx context.Context, task *model.Task, resp *model.Response) error {
	if err := d.store.Results().Put(ctx, resp); err != nil {
		return err
	}

	if task.Context.ConversationID != "" {
		if _, err := d.store.History().Append(ctx, task.Context.ConversationID, task.ID); err != nil {
			return goerr.Wrap(err, "failed to append conversation history",
				goerr.V("task_id", task.ID),
				goerr.V("conversation_id", task.Context.ConversationID))
		}
	}
	return nil
}

func (d *Dispatcher) markActive(taskID types.TaskID) {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()
	d.active[taskID] = time.Now().UTC()
}

func (d *Dispatcher) unmarkActive(taskID types.TaskID) {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()
	delete(d.active, taskID)
}

func (d *Dispatcher) isActive(taskID types.TaskID) bool {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()
	_, ok := d.active[taskID]
	return ok
}

// fail converts any pipeline error into a terminal failed response
func (d *Dispatcher) fail(ctx context.Context, taskID types.TaskID, agentID types.AgentID, reason string, err error) *model.Response {
	errutil.Handle(ctx, err, "task failed")
	metrics.TasksFailed.WithLabelValues(reason).Inc()
	d.hub.Emit(Event{Type: EventTaskFailed, TaskID: taskID, AgentID: agentID, Error: err.Error()})
	return model.Failed(taskID, err)
}

// Status reports the current state of a task. Active tasks get a streaming
// placeholder; finished tasks come from the store; anything else is
// ErrTaskNotFound.
func (d *Dispatcher) Status(ctx context.Context, taskID types.TaskID) (*model.Response, error) {
	if taskID == "" {
		return nil, goerr.Wrap(ErrTaskNotFound, "task id is required")
	}

	if d.isActive(taskID) {
		return &model.Response{
			TaskID: taskID,
			Status: types.TaskStatusStreaming,
		}, nil
	}

	resp, err := d.store.Results().Get(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query task result", goerr.V("task_id", taskID))
	}
	if resp == nil {
		return nil, goerr.Wrap(ErrTaskNotFound, fmt.Sprintf("task %q is neither active nor stored", taskID))
	}
	return resp, nil
}

// Cancel removes a task from the active set and emits a cancellation
// event. It does not stop an in-flight agent call: cancelled means no
// longer tracked, not guaranteed stopped.
func (d *Dispatcher) Cancel(ctx context.Context, taskID types.TaskID) error {
	d.activeMu.Lock()
	_, ok := d.active[taskID]
	if ok {
		delete(d.active, taskID)
	}
	d.activeMu.Unlock()

	if !ok {
		return goerr.Wrap(ErrTaskNotFound, fmt.Sprintf("task %q is not active", taskID))
	}

	d.hub.Emit(Event{Type: EventTaskCancelled, TaskID: taskID})
	return nil
}

// Stream runs Submit and delivers its single terminal response over a
// channel, closed after emission. A single-shot sequence, not an
// incremental protocol.
func (d *Dispatcher) Stream(ctx context.Context, task *model.Task) <-chan *model.Response {
	ch := make(chan *model.Response, 1)
	go func() {
		defer close(ch)
		ch <- d.Submit(ctx, task)
	}()
	return ch
}

// HealthCheck passes only when both the store and the selector respond
func (d *Dispatcher) HealthCheck(ctx context.Context) error {
	if err := d.store.HealthCheck(ctx); err != nil {
		return goerr.Wrap(err, "store unhealthy")
	}
	if err := d.selector.HealthCheck(ctx); err != nil {
		return goerr.Wrap(err, "selector unhealthy")
	}
	return nil
}

// Shutdown cancels all active tasks, then closes the store, then stops the
// selector refresh. Best effort: it does not wait for in-flight agent
// calls to finish.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.activeMu.Lock()
	ids := make([]types.TaskID, 0, len(d.active))
	for id := range d.active {
		ids = append(ids, id)
	}
	d.active = make(map[types.TaskID]time.Time)
	d.activeMu.Unlock()

	for _, id := range ids {
		d.hub.Emit(Event{Type: EventTaskCancelled, TaskID: id})
	}

	if err := d.store.Close(); err != nil {
		errutil.Handle(ctx, err, "failed to close store during shutdown")
	}

	if d.stopSelector != nil {
		d.stopSelector()
	}

	logging.From(ctx).Info("dispatcher shut down", "cancelled_tasks", len(ids))
	return nil
}
