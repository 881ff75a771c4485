package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// mockNotificationStore is an in-memory NotificationStore. Setting the two
// gate channels makes PendingNotifications block, so tests can interleave a
// dispatch with an in-flight subscribe.
type mockNotificationStore struct {
	mu       sync.Mutex
	rows     []*types.Notification
	consumed map[string]bool
	err      error

	pendingStarted chan struct{}
	pendingRelease chan struct{}
}

func newMockNotificationStore() *mockNotificationStore {
	return &mockNotificationStore{consumed: make(map[string]bool)}
}

func (m *mockNotificationStore) CreateNotifications(ctx context.Context, notifications []*types.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, notifications...)
	return nil
}

func (m *mockNotificationStore) PendingNotifications(ctx context.Context, studentID string) ([]*types.Notification, error) {
	if m.pendingStarted != nil {
		m.pendingStarted <- struct{}{}
		<-m.pendingRelease
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*types.Notification
	for _, n := range m.rows {
		if n.StudentID == studentID && !m.consumed[n.ID] {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationStore) ConsumeNotification(ctx context.Context, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed[notificationID] = true
	return nil
}

func (m *mockNotificationStore) forStudent(studentID string) []*types.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Notification
	for _, n := range m.rows {
		if n.StudentID == studentID {
			out = append(out, n)
		}
	}
	return out
}

func startedSession() *types.Session {
	return &types.Session{
		ID:          "sess-1",
		ClassroomID: "class-1",
		TeacherID:   "teacher-1",
		TeacherName: "Ms. Rivera",
		ScenarioID:  "first-paycheck",
		Status:      types.SessionStatusActive,
	}
}

func waitForNotification(t *testing.T, ch <-chan *types.Notification) *types.Notification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return nil
	}
}

func TestDispatch_OneRowPerStudentSkippingTeacher(t *testing.T) {
	store := newMockNotificationStore()
	d := NewDispatcher(store, nil)
	defer d.Close()

	roster := []types.RosterEntry{
		{StudentID: "student-a", StudentName: "Ada"},
		{StudentID: "teacher-1", StudentName: "Ms. Rivera"}, // enrolled by mistake
		{StudentID: "student-b", StudentName: "Ben"},
	}
	if err := d.Dispatch(context.Background(), startedSession(), "Your First Paycheck", roster); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if got := len(store.forStudent("teacher-1")); got != 0 {
		t.Errorf("teacher received %d notifications", got)
	}
	for _, id := range []string{"student-a", "student-b"} {
		rows := store.forStudent(id)
		if len(rows) != 1 {
			t.Fatalf("%s received %d notifications", id, len(rows))
		}
		n := rows[0]
		if n.SessionID != "sess-1" || n.Type != types.NotificationTypeLiveSessionStarted {
			t.Errorf("notification = %+v", n)
		}
		if n.TeacherName != "Ms. Rivera" || n.ScenarioTitle != "Your First Paycheck" {
			t.Errorf("prompt payload = %+v", n)
		}
	}
}

func TestDispatch_EmptyRosterIsNoOp(t *testing.T) {
	store := newMockNotificationStore()
	d := NewDispatcher(store, nil)
	defer d.Close()

	if err := d.Dispatch(context.Background(), startedSession(), "t", nil); err != nil {
		t.Errorf("empty roster: %v", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("rows = %d", len(store.rows))
	}
}

func TestSubscribe_ReceivesLivePush(t *testing.T) {
	store := newMockNotificationStore()
	d := NewDispatcher(store, nil)
	defer d.Close()

	got := make(chan *types.Notification, 16)
	unsub, err := d.Subscribe(context.Background(), "student-a", func(n *types.Notification) { got <- n })
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer unsub()

	roster := []types.RosterEntry{{StudentID: "student-a"}, {StudentID: "student-b"}}
	if err := d.Dispatch(context.Background(), startedSession(), "t", roster); err != nil {
		t.Fatal(err)
	}

	n := waitForNotification(t, got)
	if n.StudentID != "student-a" || n.SessionID != "sess-1" {
		t.Errorf("notification = %+v", n)
	}
	select {
	case extra := <-got:
		t.Errorf("received foreign notification %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribe_ReplaysPendingBeforeLive(t *testing.T) {
	store := newMockNotificationStore()
	d := NewDispatcher(store, nil)
	defer d.Close()
	ctx := context.Background()

	// Dispatched while the student was offline.
	roster := []types.RosterEntry{{StudentID: "student-a"}}
	if err := d.Dispatch(ctx, startedSession(), "t", roster); err != nil {
		t.Fatal(err)
	}

	got := make(chan *types.Notification, 16)
	unsub, err := d.Subscribe(ctx, "student-a", func(n *types.Notification) { got <- n })
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	n := waitForNotification(t, got)
	if n.SessionID != "sess-1" {
		t.Errorf("replayed notification = %+v", n)
	}

	// Consumed notifications do not replay on the next subscribe.
	if err := d.Consume(ctx, n.ID); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	unsub()

	got2 := make(chan *types.Notification, 16)
	unsub2, err := d.Subscribe(ctx, "student-a", func(n *types.Notification) { got2 <- n })
	if err != nil {
		t.Fatal(err)
	}
	defer unsub2()
	select {
	case n := <-got2:
		t.Errorf("consumed notification replayed: %+v", n)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribe_DispatchDuringPendingQueryIsDelivered(t *testing.T) {
	// A notification dispatched while Subscribe is still reading the pending
	// rows must land on the fresh subscription instead of vanishing until
	// the next reconnect. Registration happens before the query, so once the
	// query is observably in flight the live push already has a target.
	store := newMockNotificationStore()
	store.pendingStarted = make(chan struct{})
	store.pendingRelease = make(chan struct{})
	d := NewDispatcher(store, nil)
	defer d.Close()

	got := make(chan *types.Notification, 16)
	type subResult struct {
		unsub func()
		err   error
	}
	done := make(chan subResult, 1)
	go func() {
		unsub, err := d.Subscribe(context.Background(), "student-a",
			func(n *types.Notification) { got <- n })
		done <- subResult{unsub, err}
	}()

	<-store.pendingStarted
	roster := []types.RosterEntry{{StudentID: "student-a"}}
	if err := d.Dispatch(context.Background(), startedSession(), "t", roster); err != nil {
		t.Fatal(err)
	}
	close(store.pendingRelease)

	res := <-done
	if res.err != nil {
		t.Fatalf("Subscribe() error: %v", res.err)
	}
	defer res.unsub()

	n := waitForNotification(t, got)
	if n.StudentID != "student-a" || n.SessionID != "sess-1" {
		t.Errorf("notification = %+v", n)
	}
}

func TestSubscribe_InvalidStudentID(t *testing.T) {
	d := NewDispatcher(newMockNotificationStore(), nil)
	defer d.Close()

	if _, err := d.Subscribe(context.Background(), "has spaces", func(*types.Notification) {}); err == nil {
		t.Error("expected validation error")
	}
}

func TestClose_ReleasesSubscribers(t *testing.T) {
	store := newMockNotificationStore()
	d := NewDispatcher(store, nil)

	unsub, err := d.Subscribe(context.Background(), "student-a", func(*types.Notification) {})
	if err != nil {
		t.Fatal(err)
	}

	d.Close()
	d.Close() // idempotent
	unsub()   // safe after close

	if _, err := d.Subscribe(context.Background(), "student-b", func(*types.Notification) {}); err == nil {
		t.Error("subscribe after close should fail")
	}
}

func TestInbox_DismissalFilters(t *testing.T) {
	inbox := NewInbox()

	notifications := []*types.Notification{
		{ID: "n-1", SessionID: "sess-1"},
		{ID: "n-2", SessionID: "sess-2"},
	}

	if got := inbox.Filter(notifications); len(got) != 2 {
		t.Fatalf("filter before dismissal = %d", len(got))
	}

	inbox.Dismiss("sess-1")
	if !inbox.Dismissed("sess-1") {
		t.Error("dismissal not recorded")
	}

	got := inbox.Filter(notifications)
	if len(got) != 1 || got[0].SessionID != "sess-2" {
		t.Errorf("filter after dismissal = %+v", got)
	}

	// A fresh inbox forgets dismissals: the same prompt shows again.
	if got := NewInbox().Filter(notifications); len(got) != 2 {
		t.Errorf("fresh inbox filter = %d", len(got))
	}
}
