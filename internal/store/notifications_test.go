package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

func notification(id, studentID string, createdAt time.Time) *types.Notification {
	return &types.Notification{
		ID:            id,
		StudentID:     studentID,
		SessionID:     "sess-1",
		TeacherName:   "Ms. Rivera",
		ScenarioTitle: "Your First Paycheck",
		Type:          types.NotificationTypeLiveSessionStarted,
		CreatedAt:     createdAt,
	}
}

func TestNotifications_PendingOldestFirst(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	batch := []*types.Notification{
		notification("n-2", "student-a", base.Add(2*time.Second)),
		notification("n-1", "student-a", base),
		notification("n-3", "student-b", base.Add(time.Second)),
	}
	if err := s.CreateNotifications(ctx, batch); err != nil {
		t.Fatalf("CreateNotifications() error: %v", err)
	}

	pending, err := s.PendingNotifications(ctx, "student-a")
	if err != nil {
		t.Fatalf("PendingNotifications() error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != "n-1" || pending[1].ID != "n-2" {
		t.Errorf("order = %s, %s", pending[0].ID, pending[1].ID)
	}
	if pending[0].ScenarioTitle != "Your First Paycheck" {
		t.Errorf("payload lost: %+v", pending[0])
	}
}

func TestNotifications_ConsumeExactlyOnce(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := s.CreateNotifications(ctx, []*types.Notification{
		notification("n-1", "student-a", now),
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.ConsumeNotification(ctx, "n-1"); err != nil {
		t.Fatalf("first consume: %v", err)
	}

	err := s.ConsumeNotification(ctx, "n-1")
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("second consume should conflict, got %v", err)
	}

	pending, err := s.PendingNotifications(ctx, "student-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("consumed notification still pending: %+v", pending)
	}
}

func TestNotifications_ConsumeUnknown(t *testing.T) {
	s := newTestStore(t, nil)

	err := s.ConsumeNotification(context.Background(), "missing")
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("expected ErrNotificationNotFound, got %v", err)
	}
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("not classified as not-found: %v", err)
	}
}

func TestNotifications_EmptyBatchIsNoOp(t *testing.T) {
	s := newTestStore(t, nil)

	if err := s.CreateNotifications(context.Background(), nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}
