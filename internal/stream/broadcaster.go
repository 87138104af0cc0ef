// Package stream fans alert lifecycle events out to in-process subscribers.
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

const subscriberBuffer = 64

type Broadcaster struct {
	subscribers map[uint64]chan models.AlertEvent
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.AlertEvent),
	}
}

func (b *Broadcaster) Subscribe() (uint64, <-chan models.AlertEvent) {
	id := b.nextID.Add(1)
	ch := make(chan models.AlertEvent, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast never blocks; a subscriber with a full buffer misses the event.
func (b *Broadcaster) Broadcast(ev models.AlertEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Notify lets the broadcaster act as an alert notifier.
func (b *Broadcaster) Notify(_ context.Context, ev models.AlertEvent) error {
	b.Broadcast(ev)
	return nil
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels so their readers exit.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
