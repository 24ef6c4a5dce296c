// Package notify provides small typed publish/subscribe topics used to
// push change notifications from services to interested UI sessions.
package notify

import "sync"

// Topic fans values out to subscriber channels. Publish never blocks:
// a subscriber that has fallen behind misses the value.
type Topic[T any] struct {
	mu   sync.Mutex
	subs []chan T
}

// NewTopic creates an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function. Cancel closes the channel and removes the subscriber.
func (t *Topic[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 8)

	t.mu.Lock()
	t.subs = append(t.subs, ch)
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, sub := range t.subs {
			if sub == ch {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				close(sub)
				return
			}
		}
	}
	return ch, cancel
}

// Publish delivers v to every subscriber whose buffer has room.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subs {
		select {
		case sub <- v:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (t *Topic[T]) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
