package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/camila/ideaforge/internal/events"
)

// ErrUnknownJob is wrapped into errors for job names the registry has never
// seen.
var ErrUnknownJob = fmt.Errorf("unknown job")

// ErrNotTriggerable is wrapped into errors for jobs that only run as part of
// an event chain.
var ErrNotTriggerable = fmt.Errorf("job is not manually triggerable")

// JobInfo describes a registered job for the admin surface.
type JobInfo struct {
	Name    string   `json:"name"`
	Topics  []string `json:"topics"`
	Manual  bool     `json:"manual"`
	Retries int      `json:"retries"`
}

type registration struct {
	exec   Executor
	topics []string
}

// Registry holds the registered executors, subscribes them to the
// dispatcher through the runner, and services manual triggers.
type Registry struct {
	runner     *Runner
	dispatcher *events.Dispatcher
	jobs       map[string]registration
}

func NewRegistry(runner *Runner, dispatcher *events.Dispatcher) *Registry {
	return &Registry{
		runner:     runner,
		dispatcher: dispatcher,
		jobs:       make(map[string]registration),
	}
}

// Register wires an executor to its trigger topics. The first topic is the
// one manual triggers emit to.
func (r *Registry) Register(exec Executor, topics ...string) {
	if len(topics) == 0 {
		panic("pipeline: Register requires at least one topic")
	}
	if _, dup := r.jobs[exec.Name()]; dup {
		panic("pipeline: duplicate job " + exec.Name())
	}
	r.jobs[exec.Name()] = registration{exec: exec, topics: topics}
	r.dispatcher.Subscribe(r.runner.Wrap(exec), topics...)
}

// List returns the registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	infos := make([]JobInfo, 0, len(r.jobs))
	for _, reg := range r.jobs {
		infos = append(infos, JobInfo{
			Name:    reg.exec.Name(),
			Topics:  reg.topics,
			Manual:  reg.exec.Manual(),
			Retries: reg.exec.Retries(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Trigger emits a job's trigger event on behalf of an operator and returns
// the event id, which doubles as the trigger's idempotency key.
func (r *Registry) Trigger(ctx context.Context, name string, payload events.Payload) (string, error) {
	reg, ok := r.jobs[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownJob)
	}
	if !reg.exec.Manual() {
		return "", fmt.Errorf("%q: %w", name, ErrNotTriggerable)
	}
	ev := events.Event{ID: events.NewID(), Topic: reg.topics[0], Payload: payload}
	if err := r.dispatcher.EmitEvent(ctx, ev); err != nil {
		return "", err
	}
	return ev.ID, nil
}
