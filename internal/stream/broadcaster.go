// Package stream fans workflow progress events out to websocket
// subscribers.
package stream

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iamsernine/aptoseidon/internal/pkg/logger"
)

// Event is one state transition of an analysis attempt.
type Event struct {
	AttemptID string    `json:"attempt_id"`
	State     string    `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Publish delivers the event to every subscriber. Slow subscribers drop
// events rather than stalling the workflow.
func (b *Broadcaster) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel is idempotent
// and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// ServeConn streams events over an upgraded websocket connection until the
// peer disconnects.
func (b *Broadcaster) ServeConn(conn *websocket.Conn) {
	events, cancel := b.Subscribe()
	defer cancel()
	defer conn.Close()

	// Drain client frames so closes are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			logger.Debug("progress subscriber write failed", "error", err)
			return
		}
	}
}
