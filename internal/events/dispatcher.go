package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// DispatchError represents a failure to accept or deliver an event.
type DispatchError struct {
	Message string
	Cause   error
}

func (e *DispatchError) Error() string {
	if e.Cause != nil {
		return "events: " + e.Message + ": " + e.Cause.Error()
	}
	return "events: " + e.Message
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// ErrClosed is returned by Emit after Close has started.
var ErrClosed = errors.New("events: dispatcher closed")

// Handler processes events delivered for the topics it subscribed to.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

type subscription struct {
	handler Handler
	queue   chan Event
}

// Dispatcher routes events to subscribed handlers. Each Subscribe call owns
// one queue drained by one worker goroutine, so a handler never runs two
// events concurrently even when it listens on several topics. Emitting to a
// topic with no subscriber logs the event and drops it.
type Dispatcher struct {
	mu     sync.Mutex
	topics map[string]*subscription
	subs   []*subscription
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewDispatcher creates a dispatcher whose workers run until Close. The
// parent context bounds every handler invocation.
func NewDispatcher(parent context.Context) *Dispatcher {
	ctx, cancel := context.WithCancel(parent)
	return &Dispatcher{
		topics: make(map[string]*subscription),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Subscribe registers handler for one or more topics and starts its worker.
// A topic accepts at most one subscriber; a second registration panics, as
// that is a wiring bug caught at startup.
func (d *Dispatcher) Subscribe(handler Handler, topics ...string) {
	if len(topics) == 0 {
		panic("events: Subscribe requires at least one topic")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		panic("events: Subscribe after Close")
	}
	sub := &subscription{
		handler: handler,
		queue:   make(chan Event, 64),
	}
	for _, topic := range topics {
		if _, dup := d.topics[topic]; dup {
			panic("events: duplicate subscriber for topic " + topic)
		}
		d.topics[topic] = sub
	}
	d.subs = append(d.subs, sub)
	d.wg.Add(1)
	go d.work(sub)
}

func (d *Dispatcher) work(sub *subscription) {
	defer d.wg.Done()
	for {
		select {
		case ev, ok := <-sub.queue:
			if !ok {
				return
			}
			if err := sub.handler.Handle(d.ctx, ev); err != nil {
				log.Printf("events: handler for %s failed (event %s): %v", ev.Topic, ev.ID, err)
			}
		case <-d.ctx.Done():
			return
		}
	}
}

// Emit enqueues an event for the topic's subscriber. A missing event id is
// assigned here so every delivery carries an idempotency key. Emit blocks
// only when the subscriber's queue is full.
func (d *Dispatcher) Emit(ctx context.Context, topic string, payload Payload) error {
	ev := Event{
		ID:      NewID(),
		Topic:   topic,
		Payload: payload,
		At:      time.Now().UTC(),
	}
	return d.EmitEvent(ctx, ev)
}

// EmitEvent enqueues a fully formed event, preserving its id. Re-emitting
// an event after a crash therefore stays a no-op downstream.
func (d *Dispatcher) EmitEvent(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = NewID()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	sub, ok := d.topics[ev.Topic]
	d.mu.Unlock()
	if !ok {
		log.Printf("events: no subscriber for %s (event %s), dropping", ev.Topic, ev.ID)
		return nil
	}
	select {
	case sub.queue <- ev:
		return nil
	case <-ctx.Done():
		return &DispatchError{Message: "emit " + ev.Topic, Cause: ctx.Err()}
	case <-d.ctx.Done():
		return ErrClosed
	}
}

// Close stops accepting events, drains queued work and waits for workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, sub := range d.subs {
		close(sub.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		d.cancel()
		<-done
	}
	d.cancel()
}
