package simulation

import (
	"sync"

	"github.com/raykavin/tradesim/pkg/core"
)

// DefaultFeedBuffer is the channel size of a subscription
const DefaultFeedBuffer = 64

// TickEvent is published after every simulation step
type TickEvent struct {
	SessionID  string          `json:"session_id"`
	Trade      core.TradeEvent `json:"trade"`
	Aggregates core.Aggregates `json:"aggregates"`
	Price      float64         `json:"price"`
	Candle     core.Candle     `json:"candle"`
	Rolled     bool            `json:"rolled"`
}

// FeedConsumer processes tick events
type FeedConsumer func(event TickEvent)

// Feed fans tick events out to subscribers. Slow subscribers miss events
// instead of blocking the session.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[int]chan TickEvent
	next        int
	closed      bool
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{subscribers: make(map[int]chan TickEvent)}
}

// Subscribe returns a channel receiving every future event and a function
// that cancels the subscription. The channel is closed on cancel or Close.
func (f *Feed) Subscribe(buffer int) (<-chan TickEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultFeedBuffer
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan TickEvent, buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.next
	f.next++
	f.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subscribers[id]; ok {
				delete(f.subscribers, id)
				close(sub)
			}
		})
	}
}

// Consume runs consumer on its own goroutine for every event until the
// returned cancel function is called or the feed is closed.
func (f *Feed) Consume(consumer FeedConsumer) func() {
	events, cancel := f.Subscribe(DefaultFeedBuffer)
	go func() {
		for event := range events {
			consumer(event)
		}
	}()
	return cancel
}

// Publish sends event to every subscriber without blocking
func (f *Feed) Publish(event TickEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Close ends every subscription
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subscribers {
		close(sub)
		delete(f.subscribers, id)
	}
}
