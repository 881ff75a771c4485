// Package notify fans out live-session-started notifications: one durable
// row per enrolled student at session start, plus a live push stream for
// students currently connected.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SaranshG2501/LifePath-sub000/internal/observability"
	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Dispatcher writes notifications through the store and pushes them to any
// live per-student subscription.
type Dispatcher struct {
	store   interfaces.NotificationStore
	metrics *observability.Metrics

	mu     sync.RWMutex
	subs   map[string]map[string]*subscriber // studentID -> subscriptionID
	closed bool
}

type subscriber struct {
	ch   chan *types.Notification
	done chan struct{}
	once sync.Once
}

func NewDispatcher(store interfaces.NotificationStore, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		store:   store,
		metrics: metrics,
		subs:    make(map[string]map[string]*subscriber),
	}
}

// Dispatch enumerates the classroom roster and writes one notification per
// student. The teacher never notifies themself even if enrolled by mistake.
func (d *Dispatcher) Dispatch(ctx context.Context, session *types.Session, scenarioTitle string, roster []types.RosterEntry) error {
	now := time.Now().UTC()
	notifications := make([]*types.Notification, 0, len(roster))
	for _, entry := range roster {
		if entry.StudentID == session.TeacherID {
			continue
		}
		notifications = append(notifications, &types.Notification{
			ID:            uuid.New().String(),
			StudentID:     entry.StudentID,
			SessionID:     session.ID,
			TeacherName:   session.TeacherName,
			ScenarioTitle: scenarioTitle,
			Type:          types.NotificationTypeLiveSessionStarted,
			CreatedAt:     now,
		})
	}
	if len(notifications) == 0 {
		return nil
	}

	if err := d.store.CreateNotifications(ctx, notifications); err != nil {
		return fmt.Errorf("failed to persist notifications: %w", err)
	}

	d.mu.RLock()
	for _, n := range notifications {
		for _, sub := range d.subs[n.StudentID] {
			select {
			case sub.ch <- n:
			default:
				// The durable row still reaches the student on next replay.
				log.Printf("notify: live push skipped student=%s", n.StudentID)
			}
		}
		d.metrics.NotificationSent()
	}
	d.mu.RUnlock()

	log.Printf("notify: dispatched %d notifications session=%s", len(notifications), session.ID)
	return nil
}

// Subscribe registers a live notification callback for one student and
// returns an idempotent unsubscribe function. Pending (durable, unconsumed)
// notifications are replayed first so a reconnecting student misses nothing.
func (d *Dispatcher) Subscribe(ctx context.Context, studentID string, fn interfaces.NotificationFunc) (func(), error) {
	if !types.IsValidID(studentID) {
		return nil, fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidUserID)
	}

	sub := &subscriber{
		ch:   make(chan *types.Notification, 16),
		done: make(chan struct{}),
	}
	subID := uuid.New().String()

	unsubscribe := func() {
		// Map removal stays outside the once so a concurrent Close holding
		// the dispatcher lock cannot deadlock against it.
		d.mu.Lock()
		if studentSubs, ok := d.subs[studentID]; ok {
			delete(studentSubs, subID)
			if len(studentSubs) == 0 {
				delete(d.subs, studentID)
			}
		}
		d.mu.Unlock()
		sub.once.Do(func() { close(sub.done) })
	}

	// Register before querying pending rows: a notification dispatched while
	// the query runs then lands on the channel instead of vanishing until the
	// next reconnect. A row caught by both the query and a live push is a
	// harmless duplicate since Consume is fire-once.
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: dispatcher is closed", types.ErrTransient)
	}
	if d.subs[studentID] == nil {
		d.subs[studentID] = make(map[string]*subscriber)
	}
	d.subs[studentID][subID] = sub
	d.mu.Unlock()

	pending, err := d.store.PendingNotifications(ctx, studentID)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	go func() {
		for _, n := range pending {
			select {
			case <-sub.done:
				return
			default:
				fn(n)
			}
		}
		for {
			select {
			case n := <-sub.ch:
				fn(n)
			case <-sub.done:
				return
			}
		}
	}()

	return unsubscribe, nil
}

// Consume marks a notification acted upon so no other client acts on it.
func (d *Dispatcher) Consume(ctx context.Context, notificationID string) error {
	return d.store.ConsumeNotification(ctx, notificationID)
}

// Close releases every subscriber goroutine.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true

	var all []*subscriber
	for studentID, studentSubs := range d.subs {
		for _, sub := range studentSubs {
			all = append(all, sub)
		}
		delete(d.subs, studentID)
	}
	d.mu.Unlock()

	for _, sub := range all {
		sub.once.Do(func() { close(sub.done) })
	}
}
