package events

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/google/uuid"
)

// EventType names a task lifecycle transition
type EventType string

const (
	EventTaskCreated      EventType = "task.created"
	EventTaskLaunchFailed EventType = "task.launch_failed"
	EventTaskStopped      EventType = "task.stopped"
	EventTaskDeleted      EventType = "task.deleted"
)

// AllTypes lists every event type the manager publishes
var AllTypes = []EventType{
	EventTaskCreated,
	EventTaskLaunchFailed,
	EventTaskStopped,
	EventTaskDeleted,
}

// ParseTypes parses a comma separated list of event types. An empty string
// yields no filter.
func ParseTypes(s string) ([]EventType, error) {
	var out []EventType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := EventType(part)
		if !t.Known() {
			return nil, fmt.Errorf("unknown event type %q", part)
		}
		out = append(out, t)
	}
	return out, nil
}

// Known reports whether t is one of AllTypes
func (t EventType) Known() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is one lifecycle transition. Metadata carries "name" and/or
// "task_arn", plus "detail" for launch failures.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Subscriber receives the events a subscription matches. It is closed by
// Unsubscribe or Stop.
type Subscriber <-chan *Event

const (
	queueSize        = 100
	subscriberBuffer = 50
)

type subscription struct {
	ch    chan *Event
	types map[EventType]struct{}
}

func (s *subscription) matches(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Broker fans published events out to subscribers
type Broker struct {
	mu    sync.RWMutex
	subs  map[Subscriber]*subscription
	queue chan *Event

	done     chan struct{}
	doneOnce sync.Once
}

// NewBroker creates a broker. Call Start before publishing.
func NewBroker() *Broker {
	return &Broker{
		subs:  make(map[Subscriber]*subscription),
		queue: make(chan *Event, queueSize),
		done:  make(chan struct{}),
	}
}

// Start runs the distribution loop in the background
func (b *Broker) Start() {
	go b.run()
}

// Stop ends distribution and closes every subscriber. Later publishes are
// dropped and later subscribers receive a closed channel.
func (b *Broker) Stop() {
	b.doneOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		close(b.done)
		for key, sub := range b.subs {
			delete(b.subs, key)
			close(sub.ch)
		}
	})
}

// Subscribe registers a subscriber for the given event types, or for every
// type when none are given
func (b *Broker) Subscribe(types ...EventType) Subscriber {
	sub := &subscription{ch: make(chan *Event, subscriberBuffer)}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		close(sub.ch)
		return sub.ch
	default:
	}
	b.subs[sub.ch] = sub
	return sub.ch
}

// Unsubscribe removes and closes sub. Unknown subscribers are ignored.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.subs[sub]
	if !ok {
		return
	}
	delete(b.subs, sub)
	close(s.ch)
}

// Publish queues event and reports whether it was accepted. It never
// blocks: with the queue full or the broker stopped the event is dropped.
func (b *Broker) Publish(event *Event) bool {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case <-b.done:
		metrics.EventsDropped.WithLabelValues("stopped").Inc()
		return false
	default:
	}

	select {
	case b.queue <- event:
		metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
		return true
	default:
		metrics.EventsDropped.WithLabelValues("queue_full").Inc()
		return false
	}
}

func (b *Broker) run() {
	for {
		select {
		case <-b.done:
			return
		case event := <-b.queue:
			b.deliver(event)
		}
	}
}

func (b *Broker) deliver(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.matches(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			metrics.EventsDropped.WithLabelValues("subscriber_full").Inc()
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
