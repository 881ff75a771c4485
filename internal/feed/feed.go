// Package feed is the in-process change feed: full-state session snapshots
// fanned out to subscribers in store write order. Delivery is at-least-once
// and snapshot-based; a slow subscriber sees older snapshots coalesced into
// the latest one, which is always safe because each snapshot carries the
// complete session value.
package feed

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/SaranshG2501/LifePath-sub000/internal/observability"
	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Feed fans session snapshots out to per-session subscribers. Each subscriber
// gets its own buffered channel and pump goroutine so one stalled consumer
// never blocks the store's write path or its peers.
type Feed struct {
	bufferSize int
	metrics    *observability.Metrics

	mu     sync.RWMutex
	subs   map[string]map[string]*subscriber // sessionID -> subscriptionID
	closed bool
}

type subscriber struct {
	ch   chan *types.Session
	done chan struct{}
	once sync.Once
}

// New creates a feed. bufferSize bounds each subscriber's snapshot backlog.
func New(bufferSize int, metrics *observability.Metrics) *Feed {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Feed{
		bufferSize: bufferSize,
		metrics:    metrics,
		subs:       make(map[string]map[string]*subscriber),
	}
}

// Subscribe registers a snapshot callback for one session and returns an
// idempotent unsubscribe function. The callback runs on a dedicated goroutine;
// it must tolerate redelivery of identical snapshots.
func (f *Feed) Subscribe(sessionID string, fn interfaces.SnapshotFunc) (func(), error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	if fn == nil {
		return nil, ErrNilCallback
	}

	sub := &subscriber{
		ch:   make(chan *types.Session, f.bufferSize),
		done: make(chan struct{}),
	}
	subID := uuid.New().String()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	if f.subs[sessionID] == nil {
		f.subs[sessionID] = make(map[string]*subscriber)
	}
	f.subs[sessionID][subID] = sub
	f.mu.Unlock()

	go func() {
		for {
			select {
			case snap := <-sub.ch:
				fn(snap)
				f.metrics.SnapshotDelivered()
			case <-sub.done:
				return
			}
		}
	}()

	unsubscribe := func() {
		// The once only guards the channel close; map removal is idempotent
		// on its own and must not nest inside the once, or a concurrent
		// Close holding the feed lock could deadlock against it.
		f.mu.Lock()
		if sessionSubs, ok := f.subs[sessionID]; ok {
			delete(sessionSubs, subID)
			if len(sessionSubs) == 0 {
				delete(f.subs, sessionID)
			}
		}
		f.mu.Unlock()
		sub.once.Do(func() { close(sub.done) })
	}

	return unsubscribe, nil
}

// Publish delivers a snapshot to every subscriber of its session. The call
// never blocks: a full subscriber buffer drops its oldest snapshot in favor
// of the newest, which preserves at-least-once, latest-wins semantics.
func (f *Feed) Publish(snapshot *types.Session) {
	if snapshot == nil {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}

	for _, sub := range f.subs[snapshot.ID] {
		offer(sub.ch, snapshot.Clone())
	}
}

// offer pushes without blocking, coalescing the backlog when full.
func offer(ch chan *types.Session, snap *types.Session) {
	select {
	case ch <- snap:
		return
	default:
	}
	// Buffer full: make room by discarding the oldest pending snapshot.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
		log.Printf("feed: dropped snapshot for session %s", snap.ID)
	}
}

// SubscriberCount reports active subscriptions for one session.
func (f *Feed) SubscriberCount(sessionID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[sessionID])
}

// Close stops delivery and releases every subscriber goroutine.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true

	var all []*subscriber
	for sessionID, sessionSubs := range f.subs {
		for _, sub := range sessionSubs {
			all = append(all, sub)
		}
		delete(f.subs, sessionID)
	}
	f.mu.Unlock()

	for _, sub := range all {
		sub.once.Do(func() { close(sub.done) })
	}
}

var _ interfaces.ChangeFeed = (*Feed)(nil)
var _ interfaces.ChangeFeedPublisher = (*Feed)(nil)
