// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package broadcast implements the one-producer/many-consumer fan-out
// used for both the log stream and the metrics stream: publish is
// non-blocking for the producer, and a slow subscriber observes an
// explicit "lagged" signal rather than causing the producer to block.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

// Message is what Receive yields: either an Item (Lagged == 0) or a
// lag signal (Lagged > 0, Item is the zero value). A lag signal is a
// terminal marker for the items dropped since the previous Receive;
// the next Receive resumes from the new head.
type Message[T any] struct {
	Item   T
	Lagged uint64
}

// Broadcaster fans out published items to any number of subscribers.
// Each subscriber has its own bounded backlog; publish never blocks on
// a slow subscriber — it drops that subscriber's oldest buffered item
// to make room and increments a per-subscriber lag counter instead.
type Broadcaster[T any] struct {
	mu          sync.RWMutex
	subscribers map[*Subscription[T]]struct{}
	capacity    int
	nextSeq     atomic.Uint64
}

// New creates a Broadcaster whose subscriber channels hold up to
// capacity items before the oldest is dropped to make room for a new
// publish.
func New[T any](capacity int) *Broadcaster[T] {
	return &Broadcaster[T]{
		subscribers: make(map[*Subscription[T]]struct{}),
		capacity:    capacity,
	}
}

// Subscription is a live handle returned by Subscribe. It yields items
// in publish order starting from the moment of subscription; it never
// receives items published before it subscribed.
type Subscription[T any] struct {
	items   chan T
	dropped atomic.Uint64
	seq     atomic.Uint64
}

// Subscribe registers a new subscriber and returns its handle. The
// caller must call Broadcaster.Unsubscribe when the subscription ends
// (client disconnect, handler return).
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		items: make(chan T, b.capacity),
	}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe deregisters sub. After this call returns, sub receives
// no further items.
func (b *Broadcaster[T]) Unsubscribe(sub *Subscription[T]) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
}

// SubscriberCount reports the number of currently registered
// subscribers.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish delivers item to every current subscriber. Non-blocking: if
// a subscriber's backlog is full, its oldest buffered item is dropped
// (and its lag counter incremented) to make room for this one. The
// producer never waits on a subscriber.
func (b *Broadcaster[T]) Publish(item T) {
	seq := b.nextSeq.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		sub.send(item, seq)
	}
}

// send enqueues item on the subscriber's channel, evicting the oldest
// buffered item (and counting it as dropped) if the channel is full.
func (s *Subscription[T]) send(item T, seq uint64) {
	for {
		select {
		case s.items <- item:
			s.seq.Store(seq)
			return
		default:
			select {
			case <-s.items:
				s.dropped.Add(1)
			default:
				// Another goroutine drained concurrently; retry the send.
			}
		}
	}
}

// Receive blocks until an item is published, the subscription observes
// a lag signal, or ctx is cancelled. A non-zero Message.Lagged is
// reported before the item that follows it, so that the count of
// skipped items is observed exactly once per gap.
func (s *Subscription[T]) Receive(ctx context.Context) (Message[T], error) {
	if dropped := s.dropped.Swap(0); dropped > 0 {
		return Message[T]{Lagged: dropped}, nil
	}

	select {
	case item := <-s.items:
		return Message[T]{Item: item}, nil
	case <-ctx.Done():
		return Message[T]{}, ctx.Err()
	}
}
