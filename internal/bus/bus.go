// Package bus is the typed publish/subscribe core connecting the
// analyzers to the reporting and notification collaborators. Components
// never call each other directly: everything crosses the bus, which owns
// global event ordering, bounded per-topic history, and delivery metrics.
package bus

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ppiankov/triage/internal/model"
)

// Handler consumes one event. A returned error is recorded against the
// subscription as a handler failure; it never fails the publish nor
// affects other handlers.
type Handler func(event model.Event) error

// subscription pairs a handler with its registration id. Registration
// order is preserved per topic for delivery ordering.
type subscription struct {
	id      int64
	topic   model.Topic
	handler Handler
}

// EventBus delivers events to subscribers in registration order and
// retains a bounded per-topic history.
type EventBus struct {
	mu          sync.Mutex
	seq         uint64
	nextSubID   int64
	subscribers map[model.Topic][]*subscription
	history     map[model.Topic]*ring
	historySize int
	gates       map[model.Topic]*deliveryGate

	statsMu  sync.Mutex
	perTopic map[model.Topic]int
	handlers map[int64]model.HandlerStats
	lastAt   time.Time

	now func() time.Time
}

// New creates a bus retaining historySize events per topic.
func New(historySize int) *EventBus {
	if historySize <= 0 {
		historySize = 1000
	}

	return &EventBus{
		subscribers: make(map[model.Topic][]*subscription),
		history:     make(map[model.Topic]*ring),
		historySize: historySize,
		gates:       make(map[model.Topic]*deliveryGate),
		perTopic:    make(map[model.Topic]int),
		handlers:    make(map[int64]model.HandlerStats),
		now:         time.Now,
	}
}

// deliveryGate serializes same-topic deliveries in sequence order.
// Tickets are issued under the bus ordering lock; a publisher then waits
// its turn here after releasing that lock, so handler time is never
// spent holding it.
type deliveryGate struct {
	issued uint64 // guarded by EventBus.mu

	mu   sync.Mutex
	cond *sync.Cond
	next uint64
}

func newDeliveryGate() *deliveryGate {
	g := &deliveryGate{next: 1}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *deliveryGate) wait(ticket uint64) {
	g.mu.Lock()
	for g.next != ticket {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

func (g *deliveryGate) release() {
	g.mu.Lock()
	g.next++
	g.cond.Broadcast()
	g.mu.Unlock()
}

// Subscribe registers handler for topic and returns its subscription id.
// Subscriptions made while a publish is in flight see only future events.
func (b *EventBus) Subscribe(topic model.Topic, handler Handler) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	sub := &subscription{id: b.nextSubID, topic: topic, handler: handler}
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	return sub.id
}

// Unsubscribe removes the subscription with the given id. Removing an
// unknown id is a no-op.
func (b *EventBus) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish assigns the next global sequence number, appends the event to
// history, and invokes every current subscriber of topic in registration
// order. The ordering lock is held only to assign the sequence and
// snapshot the subscriber list; delivery then queues on a per-topic
// gate, so concurrent publishes to one topic reach each subscriber in
// sequence order while a slow handler cannot stall publishes to other
// topics. A handler must not publish to its own topic: it would wait on
// the delivery it is part of. A handler error or panic is recorded and
// isolated.
func (b *EventBus) Publish(topic model.Topic, payload interface{}) uint64 {
	b.mu.Lock()
	b.seq++
	event := model.Event{
		Topic:     topic,
		Payload:   payload,
		Sequence:  b.seq,
		Timestamp: b.now().UTC(),
	}

	if b.history[topic] == nil {
		b.history[topic] = newRing(b.historySize)
	}
	b.history[topic].append(event)

	gate := b.gates[topic]
	if gate == nil {
		gate = newDeliveryGate()
		b.gates[topic] = gate
	}
	gate.issued++
	ticket := gate.issued

	snapshot := make([]*subscription, len(b.subscribers[topic]))
	copy(snapshot, b.subscribers[topic])
	b.mu.Unlock()

	b.statsMu.Lock()
	b.perTopic[topic]++
	b.lastAt = event.Timestamp
	b.statsMu.Unlock()

	gate.wait(ticket)
	for _, sub := range snapshot {
		b.deliver(sub, event)
	}
	gate.release()

	return event.Sequence
}

// deliver invokes one handler, converting a panic into a recorded
// failure so one broken subscriber cannot take down the publisher.
func (b *EventBus) deliver(sub *subscription, event model.Event) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		err = sub.handler(event)
	}()

	b.statsMu.Lock()
	stats := b.handlers[sub.id]
	if err != nil {
		stats.Failure++
	} else {
		stats.Success++
	}
	b.handlers[sub.id] = stats
	b.statsMu.Unlock()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: handler %d failed on %s: %v\n", sub.id, event.Topic, err)
	}
}

// History returns all retained events for topic with sequence greater
// than since, in publish order. Retention is bounded: callers must not
// assume unbounded history.
func (b *EventBus) History(topic model.Topic, since uint64) []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.history[topic]
	if r == nil {
		return nil
	}

	var out []model.Event
	for _, event := range r.events() {
		if event.Sequence > since {
			out = append(out, event)
		}
	}
	return out
}

// Metrics returns a point-in-time snapshot of bus activity.
func (b *EventBus) Metrics() model.Metrics {
	b.mu.Lock()
	seq := b.seq
	b.mu.Unlock()

	b.statsMu.Lock()
	defer b.statsMu.Unlock()

	perTopic := make(map[model.Topic]int, len(b.perTopic))
	for topic, count := range b.perTopic {
		perTopic[topic] = count
	}
	handlers := make(map[int64]model.HandlerStats, len(b.handlers))
	for id, stats := range b.handlers {
		handlers[id] = stats
	}

	return model.Metrics{
		TotalEvents:   seq,
		PerTopic:      perTopic,
		PerHandler:    handlers,
		LastEventTime: b.lastAt,
	}
}

// PublishMetrics publishes the current snapshot under metrics_update.
func (b *EventBus) PublishMetrics() uint64 {
	return b.Publish(model.TopicMetricsUpdate, b.Metrics())
}
