package mailqueue

import (
	"sync"

	"github.com/mailspool/mailspool/pkg/logx"
)

// ProgressBus broadcasts dispatch progress to registered callbacks. There is
// no buffering or replay: a late subscriber only sees future snapshots.
type ProgressBus struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[int64]func(ProgressSnapshot)
}

func NewProgressBus() *ProgressBus {
	return &ProgressBus{subs: make(map[int64]func(ProgressSnapshot))}
}

// Subscribe registers cb and returns its unsubscribe function.
func (b *ProgressBus) Subscribe(cb func(ProgressSnapshot)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = cb
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish invokes every subscriber synchronously. A panicking subscriber is
// contained so the rest still get the snapshot and the dispatcher never dies
// on an observer.
func (b *ProgressBus) Publish(snap ProgressSnapshot) {
	b.mu.RLock()
	cbs := make([]func(ProgressSnapshot), 0, len(b.subs))
	for _, cb := range b.subs {
		cbs = append(cbs, cb)
	}
	b.mu.RUnlock()

	for _, cb := range cbs {
		b.deliver(cb, snap)
	}
}

func (b *ProgressBus) deliver(cb func(ProgressSnapshot), snap ProgressSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			logx.L().Warnw("progress_subscriber_panic", "panic", r)
		}
	}()
	cb(snap)
}

func (b *ProgressBus) subscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
