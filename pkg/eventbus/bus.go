package eventbus

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/sensord/pkg/log"
)

// Common event bus errors.
var (
	ErrClosed     = errors.New("event bus closed")
	ErrNilHandler = errors.New("nil handler")
	ErrQueueFull  = errors.New("async queue full")
)

// Handler processes one published payload. A non-nil error (or a panic,
// which is recovered) counts against the bus error stats but never affects
// delivery to other subscribers.
type Handler func(payload interface{}) error

// SubscriptionID identifies a single subscription. IDs are unique for the
// lifetime of the bus and never reused.
type SubscriptionID uint64

// Stats holds cumulative delivery counters for a bus.
type Stats struct {
	Published uint64 // publish calls that reached dispatch
	Delivered uint64 // handler invocations that returned without error
	Errors    uint64 // handler invocations that errored or panicked
}

// subscription pairs a handler with its identity. Owned by the bus.
type subscription struct {
	id      SubscriptionID
	topic   string
	handler Handler
}

// Bus is an in-process publish/subscribe channel. Dispatch is synchronous
// and runs in the publisher's goroutine; PublishAsync provides a buffered
// single-worker alternative for publishers that must not block.
//
// All methods are safe for concurrent use. The subscriber list is
// snapshotted before handlers run, so a handler may call back into the bus
// without deadlocking it.
type Bus struct {
	logger log.Logger

	mu     sync.RWMutex
	subs   map[string][]*subscription
	byID   map[SubscriptionID]*subscription
	nextID SubscriptionID
	closed bool

	// inflight tracks synchronous dispatches so Close(wait=true) can let
	// them finish.
	inflight sync.WaitGroup

	queue       chan asyncEvent
	workerDone  chan struct{}
	dropPending atomic.Bool

	published uint64
	delivered uint64
	errors    uint64
}

type asyncEvent struct {
	topic   string
	payload interface{}
}

// New creates a new event bus and starts its async delivery worker.
// Call Close to release the worker.
func New(opts ...Option) *Bus {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := &Bus{
		logger:     o.logger,
		subs:       make(map[string][]*subscription),
		byID:       make(map[SubscriptionID]*subscription),
		queue:      make(chan asyncEvent, o.queueSize),
		workerDone: make(chan struct{}),
	}

	go b.worker()

	return b
}

// Subscribe registers a handler for a topic. Handlers for the same topic
// are invoked in subscription order. Returns the id to pass to Unsubscribe.
func (b *Bus) Subscribe(topic string, h Handler) (SubscriptionID, error) {
	if h == nil {
		return 0, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	b.nextID++
	sub := &subscription{id: b.nextID, topic: topic, handler: h}
	b.subs[topic] = append(b.subs[topic], sub)
	b.byID[sub.id] = sub

	return sub.id, nil
}

// Unsubscribe removes a subscription. Returns false if the id is unknown
// or already removed. A dispatch already in flight may still deliver to
// the removed handler; subsequent publishes will not.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[id]
	if !ok {
		return false
	}
	delete(b.byID, id)

	list := b.subs[sub.topic]
	for i, s := range list {
		if s.id == id {
			b.subs[sub.topic] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}

	return true
}

// Publish delivers the payload to every handler currently subscribed to
// the topic, synchronously, in subscription order. A handler error or
// panic is logged and counted but neither aborts delivery to the remaining
// handlers nor propagates to the publisher.
//
// Returns the number of handlers that completed without error. Publishing
// on a closed bus delivers nothing and returns 0.
func (b *Bus) Publish(topic string, payload interface{}) int {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return 0
	}
	return b.dispatch(topic, payload)
}

// dispatch performs the actual snapshot-and-deliver pass. It intentionally
// skips the closed check so the worker can drain queued events during a
// non-cancelling Close.
func (b *Bus) dispatch(topic string, payload interface{}) int {
	b.mu.RLock()
	snapshot := append([]*subscription(nil), b.subs[topic]...)
	b.inflight.Add(1)
	b.mu.RUnlock()
	defer b.inflight.Done()

	atomic.AddUint64(&b.published, 1)

	delivered := 0
	for _, sub := range snapshot {
		if err := b.invoke(sub, payload); err != nil {
			atomic.AddUint64(&b.errors, 1)
			b.logger.Error("subscriber failed",
				log.String("topic", topic),
				log.Uint64("subscription", uint64(sub.id)),
				log.Err(err),
			)
			continue
		}
		delivered++
		atomic.AddUint64(&b.delivered, 1)
	}

	return delivered
}

// invoke runs one handler, converting a panic into an error.
func (b *Bus) invoke(sub *subscription, payload interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return sub.handler(payload)
}

// PublishAsync enqueues the payload for delivery by the bus worker and
// returns immediately. Delivery order is preserved per bus, not per topic.
// Returns ErrQueueFull when the buffer is exhausted rather than blocking
// the caller, and ErrClosed after Close.
func (b *Bus) PublishAsync(topic string, payload interface{}) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	select {
	case b.queue <- asyncEvent{topic: topic, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// worker drains the async queue, reusing the synchronous dispatch path.
func (b *Bus) worker() {
	defer close(b.workerDone)
	for ev := range b.queue {
		if b.dropPending.Load() {
			continue
		}
		b.dispatch(ev.topic, ev.payload)
	}
}

// SubscriberCount returns the number of handlers subscribed to a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Topics returns all topics with at least one subscriber, sorted.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]string, 0, len(b.subs))
	for t := range b.subs {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Stats returns cumulative delivery counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: atomic.LoadUint64(&b.published),
		Delivered: atomic.LoadUint64(&b.delivered),
		Errors:    atomic.LoadUint64(&b.errors),
	}
}

// Close terminates the bus. New subscribes and publishes are rejected.
//
// When wait is true, Close blocks until the worker has exited and in-flight
// synchronous dispatch has finished. When cancelPending is true, payloads
// still buffered in the async queue are discarded instead of delivered.
// Close is idempotent.
func (b *Bus) Close(wait, cancelPending bool) error {
	b.mu.Lock()
	alreadyClosed := b.closed
	if !alreadyClosed {
		b.closed = true
		if cancelPending {
			b.dropPending.Store(true)
		}
		close(b.queue)
	}
	b.mu.Unlock()

	if wait {
		<-b.workerDone
		b.inflight.Wait()
	}

	return nil
}
