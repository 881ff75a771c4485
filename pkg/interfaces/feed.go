package interfaces

import (
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// SnapshotFunc receives the complete current session value. Delivery is
// at-least-once: the callback must tolerate redelivery of an identical
// snapshot and must not assume ordering relative to its own pending writes.
type SnapshotFunc func(*types.Session)

// NotificationFunc receives one pending notification.
type NotificationFunc func(*types.Notification)

// ChangeFeed delivers full-state session snapshots to subscribers whenever
// the store mutates. Snapshots, never deltas: reconciliation on the client is
// snapshot-diffing, not patch-applying.
type ChangeFeed interface {
	// Subscribe registers a callback for one session's snapshots and returns
	// an unsubscribe function. Unsubscribing is idempotent.
	Subscribe(sessionID string, fn SnapshotFunc) (func(), error)
}

// ChangeFeedPublisher is the store-facing side of the feed.
type ChangeFeedPublisher interface {
	Publish(snapshot *types.Session)
}
