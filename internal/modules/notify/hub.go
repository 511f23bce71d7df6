// Package notify pushes payment events to clients watching an order.
//
// The Hub is an in-memory registry of subscriptions keyed by canonical order
// code. It is owned by the process that creates it, is never persisted, and
// holds nothing after a restart: the ledger is the source of truth and a
// client that missed an event re-reads the order.
package notify

import (
	"sync"
	"time"
)

const EventPaid = "paid"

// Event is a single message pushed to subscribers.
type Event struct {
	Type       string `json:"type"`
	PaidAmount int64  `json:"paidAmount"`
}

// Subscription is one open client connection waiting on an order code.
type Subscription struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Events delivers published events in publish order.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed once the hub has dropped the subscription.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) close() { s.once.Do(func() { close(s.done) }) }

// Hub fans events out to the subscriptions registered under a code.
type Hub struct {
	mu          sync.RWMutex
	subs        map[string]map[*Subscription]struct{}
	buffer      int
	sendTimeout time.Duration
}

// NewHub creates an empty hub. buffer is the per-subscription queue length and
// sendTimeout bounds how long Publish waits on one stalled subscriber.
func NewHub(buffer int, sendTimeout time.Duration) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:        make(map[string]map[*Subscription]struct{}),
		buffer:      buffer,
		sendTimeout: sendTimeout,
	}
}

func (h *Hub) Subscribe(code string) *Subscription {
	sub := &Subscription{
		events: make(chan Event, h.buffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[code]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[code] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and drops the code entry once it is empty. Safe to call twice.
func (h *Hub) Unsubscribe(code string, sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[code]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, code)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Publish sends ev to every subscription currently registered under code and
// returns how many received it. Nobody listening means the event is dropped.
func (h *Hub) Publish(code string, ev Event) int {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs[code]))
	for sub := range h.subs[code] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if h.send(sub, ev) {
			delivered++
			continue
		}
		h.Unsubscribe(code, sub)
	}
	return delivered
}

// Subscribers reports how many subscriptions are registered under code.
func (h *Hub) Subscribers(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[code])
}

// Codes reports how many codes currently have at least one subscriber.
func (h *Hub) Codes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) send(sub *Subscription, ev Event) bool {
	select {
	case <-sub.done:
		return false
	default:
	}

	select {
	case sub.events <- ev:
		return true
	default:
	}

	timer := time.NewTimer(h.sendTimeout)
	defer timer.Stop()
	select {
	case sub.events <- ev:
		return true
	case <-sub.done:
		return false
	case <-timer.C:
		return false
	}
}
