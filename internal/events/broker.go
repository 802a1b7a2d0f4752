package events

import (
	"context"
	"sync"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

// Broker fans progress events out to subscribers keyed by run id. Publish
// never blocks: each subscriber holds at most one pending event and a newer
// event replaces an undelivered older one.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription receives the events of one run until it is closed.
type Subscription struct {
	RunID string

	broker *Broker
	ch     chan models.ProgressEvent
	mu     sync.Mutex
	closed bool
	once   sync.Once
	stop   func() bool
}

// Subscribe registers a subscriber for runID. The subscription is closed
// when ctx is done or Close is called, whichever happens first.
func (b *Broker) Subscribe(ctx context.Context, runID string) *Subscription {
	sub := &Subscription{
		RunID:  runID,
		broker: b,
		ch:     make(chan models.ProgressEvent, 1),
	}

	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = make(map[*Subscription]struct{})
	}
	b.subs[runID][sub] = struct{}{}
	b.mu.Unlock()

	sub.stop = context.AfterFunc(ctx, sub.Close)
	return sub
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan models.ProgressEvent {
	return s.ch
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		s.broker.remove(s)

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

func (s *Subscription) deliver(event models.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- event:
		return
	default:
	}

	// Drop the stale pending event in favour of the new one.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- event:
	default:
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[sub.RunID]
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.RunID)
	}
}

// Publish delivers event to every current subscriber of its run.
func (b *Broker) Publish(event models.ProgressEvent) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs[event.RunID]))
	for sub := range b.subs[event.RunID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(event)
	}
}

// SubscriberCount returns the number of open subscriptions for runID.
func (b *Broker) SubscriberCount(runID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[runID])
}
