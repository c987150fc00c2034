// Package event provides the in-process publish/subscribe bus that
// connects folio's subsystems without direct coupling.
package event

import (
	"context"
	"sync"
	"sync/atomic"
)

// Topic identifies an event type using dot notation, for example
// "buffer.content.changed".
type Topic string

// TopicAll subscribes a handler to every published event.
const TopicAll Topic = "*"

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Event is anything that can be published on the bus.
type Event interface {
	Topic() Topic
}

// Handler receives published events. Handlers must not block for long;
// asynchronous publishes share one delivery goroutine per event.
type Handler func(event Event)

// Subscription represents a registered handler.
type Subscription struct {
	id    uint64
	topic Topic
	fn    Handler
}

// Topic returns the topic the subscription is registered for.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Stats reports bus counters.
type Stats struct {
	Published uint64
	Delivered uint64
	Panics    uint64
}

// Bus is a topic-keyed publish/subscribe dispatcher. The zero value is
// not usable; construct with New.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]*Subscription
	nextID atomic.Uint64
	closed atomic.Bool
	wg     sync.WaitGroup

	published atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[Topic][]*Subscription),
	}
}

// Subscribe registers fn for events published on topic. Use TopicAll
// to receive every event.
func (b *Bus) Subscribe(topic Topic, fn Handler) *Subscription {
	sub := &Subscription{
		id:    b.nextID.Add(1),
		topic: topic,
		fn:    fn,
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscription. Unknown subscriptions are
// ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.topic]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.topic] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}
}

// Publish delivers the event asynchronously. Delivery order across
// publishes is not guaranteed; handlers for one event run in
// subscription order.
func (b *Bus) Publish(event Event) {
	if event == nil || b.closed.Load() {
		return
	}
	b.published.Add(1)

	handlers := b.handlersFor(event.Topic())
	if len(handlers) == 0 {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.deliver(event, handlers)
	}()
}

// PublishSync delivers the event on the caller's goroutine and returns
// after every handler has run.
func (b *Bus) PublishSync(event Event) {
	if event == nil || b.closed.Load() {
		return
	}
	b.published.Add(1)

	b.deliver(event, b.handlersFor(event.Topic()))
}

// Close stops accepting publishes and waits for in-flight asynchronous
// deliveries, or until ctx is done.
func (b *Bus) Close(ctx context.Context) error {
	if b.closed.Swap(true) {
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Panics:    b.panics.Load(),
	}
}

// handlersFor snapshots the handlers registered for topic plus the
// TopicAll subscribers.
func (b *Bus) handlersFor(topic Topic) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subs[topic]
	all := b.subs[TopicAll]
	if len(subs) == 0 && len(all) == 0 {
		return nil
	}

	handlers := make([]Handler, 0, len(subs)+len(all))
	for _, s := range subs {
		handlers = append(handlers, s.fn)
	}
	for _, s := range all {
		handlers = append(handlers, s.fn)
	}
	return handlers
}

func (b *Bus) deliver(event Event, handlers []Handler) {
	for _, fn := range handlers {
		b.call(event, fn)
	}
}

// call runs one handler, recovering panics so a broken subscriber
// cannot take down the publisher.
func (b *Bus) call(event Event, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
		}
	}()
	fn(event)
	b.delivered.Add(1)
}
