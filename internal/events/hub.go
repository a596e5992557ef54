package events

import (
	"log"
	"os"
	"sync"
)

// HubConfig holds fan-out settings.
type HubConfig struct {
	// Capacity is the size of the recent-events ring handed to new
	// subscribers on connect. Oldest events are evicted first.
	Capacity int

	// SubscriberBuffer is the channel depth per subscriber. A subscriber
	// whose buffer is full loses events rather than blocking publishers.
	SubscriberBuffer int

	// Logger for hub activity.
	Logger *log.Logger
}

// DefaultHubConfig returns sensible defaults.
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		Capacity:         100,
		SubscriberBuffer: 16,
		Logger:           log.New(os.Stderr, "[events] ", log.LstdFlags),
	}
}

// Hub fans events out to subscribers and keeps a bounded ring of recent
// events for late joiners.
//
// A Hub is constructed once at process startup and passed by handle to
// everything that publishes or subscribes; the subscriber set and ring are
// mutated only through Hub methods.
type Hub struct {
	mu     sync.Mutex
	recent []Event
	subs   map[*Subscription]struct{}
	closed bool

	capacity  int
	subBuffer int
	logger    *log.Logger
}

// NewHub creates a hub. A nil config uses defaults.
func NewHub(config *HubConfig) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultHubConfig().Capacity
	}
	if config.SubscriberBuffer <= 0 {
		config.SubscriberBuffer = DefaultHubConfig().SubscriberBuffer
	}
	if config.Logger == nil {
		config.Logger = DefaultHubConfig().Logger
	}

	return &Hub{
		recent:    make([]Event, 0, config.Capacity),
		subs:      make(map[*Subscription]struct{}),
		capacity:  config.Capacity,
		subBuffer: config.SubscriberBuffer,
		logger:    config.Logger,
	}
}

// Subscription is a registration handle returned by Subscribe.
type Subscription struct {
	hub     *Hub
	ch      chan Event
	backlog []Event
	once    sync.Once
}

// Events returns the live event channel. It is closed when the
// subscription is closed or the hub shuts down.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Backlog returns the snapshot of recent events taken atomically with
// registration. Events published after Subscribe arrive on Events(), so a
// client that replays the backlog then drains the channel sees every event
// exactly once.
func (s *Subscription) Backlog() []Event {
	return s.backlog
}

// Close deregisters the subscription and closes its channel.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Subscribe registers a new subscriber.
//
// The returned subscription carries a backlog snapshot consistent with the
// registration point. Callers must Close() promptly on disconnect so the
// subscriber set does not leak.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		hub:     h,
		ch:      make(chan Event, h.subBuffer),
		backlog: append([]Event(nil), h.recent...),
	}

	if h.closed {
		close(sub.ch)
		return sub
	}

	h.subs[sub] = struct{}{}
	return sub
}

// Publish records the event in the ring and fans it out.
//
// Never blocks: a subscriber with a full buffer loses this event (logged),
// everyone else still receives it. Invalid events are dropped.
func (h *Hub) Publish(ev Event) {
	if err := ev.Validate(); err != nil {
		h.logger.Printf("Dropping invalid event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.recent = append(h.recent, ev)
	if len(h.recent) > h.capacity {
		h.recent = append(h.recent[:0], h.recent[len(h.recent)-h.capacity:]...)
	}

	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Printf("Subscriber buffer full, dropping event %s", ev)
		}
	}
}

// Recent returns a copy of the buffered recent events, oldest first.
func (h *Hub) Recent() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.recent...)
}

// SubscriberCount returns the current number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close shuts the hub down, closing every subscriber channel.
// Publishes after Close are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
}

// remove deregisters a subscription and closes its channel.
func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}
