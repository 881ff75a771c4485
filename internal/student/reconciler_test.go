package student

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

func snapshot(sceneID, status string, choices map[string]string) *types.Session {
	if choices == nil {
		choices = map[string]string{}
	}
	return &types.Session{
		ID:             "session-1",
		ClassroomID:    "class-1",
		TeacherID:      "teacher-1",
		TeacherName:    "Ms. Rivera",
		ScenarioID:     "first-paycheck",
		CurrentSceneID: sceneID,
		Status:         status,
		Participants: map[string]types.Participant{
			"student-a": {StudentID: "student-a", StudentName: "A", JoinedAt: time.Now(), IsActive: true},
		},
		CurrentChoices: choices,
		Presence:       map[string]types.PresenceInfo{},
	}
}

func TestReduce_BranchOrder(t *testing.T) {
	tests := []struct {
		name string
		prev State
		snap *types.Session
		want State
	}{
		{
			name: "ended short-circuits everything else",
			prev: State{Phase: PhaseVoted, SceneID: "start", HasVoted: true, SelectedChoiceID: "save"},
			snap: snapshot("start", types.SessionStatusEnded, map[string]string{"student-a": "save"}),
			want: State{Phase: PhaseSessionEnded, SceneID: "start"},
		},
		{
			name: "scene mismatch resets vote state and ignores choices this pass",
			prev: State{Phase: PhaseVoted, SceneID: "start", HasVoted: true, SelectedChoiceID: "save"},
			// Stale choice entry for the student must not be inspected when
			// the scene moved.
			snap: snapshot("wants-vs-needs", types.SessionStatusActive, map[string]string{"student-a": "save"}),
			want: State{Phase: PhaseWaitingForScene, SceneID: "wants-vs-needs"},
		},
		{
			name: "matching scene with own choice present",
			prev: State{Phase: PhaseVoting, SceneID: "start"},
			snap: snapshot("start", types.SessionStatusActive, map[string]string{"student-a": "post"}),
			want: State{Phase: PhaseVoted, SceneID: "start", HasVoted: true, SelectedChoiceID: "post"},
		},
		{
			name: "matching scene without own choice",
			prev: State{Phase: PhaseWaitingForScene, SceneID: "start"},
			snap: snapshot("start", types.SessionStatusActive, map[string]string{"student-b": "post"}),
			want: State{Phase: PhaseVoting, SceneID: "start"},
		},
		{
			name: "ended is terminal even for later active snapshots",
			prev: State{Phase: PhaseSessionEnded, SceneID: "start"},
			snap: snapshot("roommate-deal", types.SessionStatusActive, nil),
			want: State{Phase: PhaseSessionEnded, SceneID: "start"},
		},
		{
			name: "disconnected lands directly on the live scene",
			prev: InitialState(),
			snap: snapshot("roommate-deal", types.SessionStatusActive, nil),
			want: State{Phase: PhaseWaitingForScene, SceneID: "roommate-deal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.prev, tt.snap, "student-a")
			if got != tt.want {
				t.Errorf("Reduce() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReduce_IdempotentOnSettledStates(t *testing.T) {
	snaps := []*types.Session{
		snapshot("start", types.SessionStatusActive, nil),
		snapshot("start", types.SessionStatusActive, map[string]string{"student-a": "save"}),
		snapshot("start", types.SessionStatusEnded, nil),
	}

	for i, snap := range snaps {
		first := Reduce(InitialState(), snap, "student-a")
		second := Reduce(first, snap, "student-a")
		third := Reduce(second, snap, "student-a")
		// Reconciliation from any state settles within two applications and
		// redelivery after that is a strict no-op.
		if third != second {
			t.Errorf("snapshot %d: redelivery changed settled state: %+v -> %+v", i, second, third)
		}
	}
}

func TestReduce_SceneAdvanceThenAuthoritativeChoices(t *testing.T) {
	// The first pass over an advance snapshot resets to WaitingForScene; a
	// second application of the same snapshot settles Voting, because the
	// advance patch cleared choices in the same atomic write.
	state := State{Phase: PhaseVoted, SceneID: "start", HasVoted: true, SelectedChoiceID: "call-friend"}

	advance := snapshot("wants-vs-needs", types.SessionStatusActive, nil)
	state = Reduce(state, advance, "student-a")
	if state.Phase != PhaseWaitingForScene || state.SceneID != "wants-vs-needs" {
		t.Fatalf("after advance: %+v", state)
	}
	if state.HasVoted || state.SelectedChoiceID != "" {
		t.Fatalf("vote state not reset: %+v", state)
	}

	state = Reduce(state, advance, "student-a")
	if state.Phase != PhaseVoting {
		t.Fatalf("after settling snapshot: %+v", state)
	}
}

func TestReduce_ReconnectSkipsIntermediateScenes(t *testing.T) {
	// Student D disconnects while voting on "start"; the teacher advances
	// twice. The first snapshot after reconnect lands directly on the live
	// scene with no flicker through the skipped ones.
	state := State{Phase: PhaseDisconnected, SceneID: "start"}

	reconnectSnap := snapshot("roommate-deal", types.SessionStatusActive, nil)
	state = Reduce(state, reconnectSnap, "student-d")
	if state.Phase != PhaseWaitingForScene || state.SceneID != "roommate-deal" {
		t.Fatalf("reconnect landed on %+v", state)
	}
	state = Reduce(state, reconnectSnap, "student-d")
	if state.Phase != PhaseVoting || state.SceneID != "roommate-deal" {
		t.Fatalf("settle landed on %+v", state)
	}
}

// mockSubmitter scripts submit outcomes and records calls.
type mockSubmitter struct {
	mu            sync.Mutex
	submitErr     error
	submits       []string
	submitScenes  []string
	presenceCalls int
	presenceErr   error
}

func (m *mockSubmitter) SubmitChoice(ctx context.Context, sessionID, studentID, sceneID, choiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, choiceID)
	m.submitScenes = append(m.submitScenes, sceneID)
	return m.submitErr
}

func (m *mockSubmitter) UpdatePresence(ctx context.Context, sessionID, studentID, sceneID string, isTyping bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presenceCalls++
	return m.presenceErr
}

func votingReconciler(t *testing.T, sub *mockSubmitter) *Reconciler {
	t.Helper()
	r := NewReconciler("session-1", "student-a", sub, nil)
	// One snapshot is enough: the scene-landing pass and the settling pass
	// both run against the same delivery.
	r.HandleSnapshot(snapshot("start", types.SessionStatusActive, nil))
	if got := r.State().Phase; got != PhaseVoting {
		t.Fatalf("setup: expected Voting, got %s", got)
	}
	return r
}

func TestSubmitChoice_OptimisticThenAcknowledged(t *testing.T) {
	sub := &mockSubmitter{}
	r := votingReconciler(t, sub)

	if err := r.SubmitChoice(context.Background(), "save"); err != nil {
		t.Fatalf("SubmitChoice() error: %v", err)
	}

	state := r.State()
	if state.Phase != PhaseVoted || !state.HasVoted || state.SelectedChoiceID != "save" {
		t.Errorf("state after submit: %+v", state)
	}
	if len(sub.submits) != 1 || sub.submits[0] != "save" {
		t.Errorf("submits = %v", sub.submits)
	}
	// The write carries the scene it targets so the store can reject it if
	// the teacher advances first.
	if len(sub.submitScenes) != 1 || sub.submitScenes[0] != "start" {
		t.Errorf("submitScenes = %v", sub.submitScenes)
	}
}

func TestSubmitChoice_RollbackOnWriteFailure(t *testing.T) {
	sub := &mockSubmitter{submitErr: fmt.Errorf("%w: store unavailable", types.ErrTransient)}
	r := votingReconciler(t, sub)

	err := r.SubmitChoice(context.Background(), "save")
	if err == nil {
		t.Fatal("expected error from failed submit")
	}
	if !errors.Is(err, types.ErrTransient) {
		t.Errorf("expected retryable error, got %v", err)
	}

	state := r.State()
	if state.Phase != PhaseVoting || state.HasVoted || state.SelectedChoiceID != "" {
		t.Errorf("rollback failed, state: %+v", state)
	}
}

func TestSubmitChoice_ConflictTreatedAsRecorded(t *testing.T) {
	sub := &mockSubmitter{submitErr: fmt.Errorf("%w: already voted", types.ErrConflict)}
	r := votingReconciler(t, sub)

	if err := r.SubmitChoice(context.Background(), "save"); err != nil {
		t.Fatalf("conflict should be a no-op success, got %v", err)
	}
	if state := r.State(); state.Phase != PhaseVoted {
		t.Errorf("state after conflict submit: %+v", state)
	}
}

func TestSubmitChoice_RejectedOutsideVoting(t *testing.T) {
	sub := &mockSubmitter{}
	r := NewReconciler("session-1", "student-a", sub, nil)

	// Stale UI event while disconnected: rejected before any network call.
	err := r.SubmitChoice(context.Background(), "save")
	if !errors.Is(err, types.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(sub.submits) != 0 {
		t.Errorf("submitter must not be called, got %v", sub.submits)
	}

	// Same once already voted.
	r = votingReconciler(t, sub)
	if err := r.SubmitChoice(context.Background(), "save"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := r.SubmitChoice(context.Background(), "post"); !errors.Is(err, types.ErrConflict) {
		t.Fatalf("expected conflict on second submit, got %v", err)
	}
}

func TestSnapshotDuringInflightSubmitSupersedesRollback(t *testing.T) {
	sub := &mockSubmitter{submitErr: fmt.Errorf("%w: store unavailable", types.ErrTransient)}
	r := votingReconciler(t, sub)

	// Simulate the teacher advancing while the submit is in flight: the
	// pending record becomes moot and failure must not roll back onto the
	// new scene's state.
	done := make(chan error, 1)
	sub.mu.Lock() // hold the submitter so the advance lands first
	go func() { done <- r.SubmitChoice(context.Background(), "save") }()

	time.Sleep(20 * time.Millisecond)
	r.HandleSnapshot(snapshot("wants-vs-needs", types.SessionStatusActive, nil))
	sub.mu.Unlock()

	<-done
	state := r.State()
	if state.SceneID != "wants-vs-needs" {
		t.Errorf("rollback clobbered newer scene state: %+v", state)
	}
	if state.Phase == PhaseVoted {
		t.Errorf("stale optimistic vote survived scene advance: %+v", state)
	}
}

func TestUpdatePresence_FireAndForget(t *testing.T) {
	sub := &mockSubmitter{presenceErr: errors.New("socket gone")}
	r := votingReconciler(t, sub)

	// Must not panic, block, or alter state.
	r.UpdatePresence(context.Background(), true)
	if state := r.State(); state.Phase != PhaseVoting {
		t.Errorf("presence update changed state: %+v", state)
	}
	if sub.presenceCalls != 1 {
		t.Errorf("presenceCalls = %d", sub.presenceCalls)
	}
}

func TestHandleSnapshot_CallbackFiresOnlyOnChange(t *testing.T) {
	var calls int
	r := NewReconciler("session-1", "student-a", &mockSubmitter{}, func(State) { calls++ })

	snap := snapshot("start", types.SessionStatusActive, nil)
	r.HandleSnapshot(snap) // disconnected -> voting, one observable change
	r.HandleSnapshot(snap) // settled: no transition
	r.HandleSnapshot(snap) // settled: no transition

	if calls != 1 {
		t.Errorf("onChange calls = %d, want 1", calls)
	}

	r.HandleSnapshot(snapshot("start", types.SessionStatusEnded, nil))
	if calls != 2 {
		t.Errorf("onChange calls after end = %d, want 2", calls)
	}
}

func TestHandleSnapshot_AdvanceSettlesWithoutRedelivery(t *testing.T) {
	// The feed delivers each committed write once. In a quiet session the
	// advance snapshot is the only delivery until the next write, so it
	// alone must carry students from the old scene into Voting on the new
	// one.
	sub := &mockSubmitter{}
	r := votingReconciler(t, sub)
	if err := r.SubmitChoice(context.Background(), "save"); err != nil {
		t.Fatalf("SubmitChoice() error: %v", err)
	}

	r.HandleSnapshot(snapshot("wants-vs-needs", types.SessionStatusActive, nil))

	state := r.State()
	if state.Phase != PhaseVoting || state.SceneID != "wants-vs-needs" {
		t.Fatalf("advance snapshot alone must reopen voting, got %+v", state)
	}
	if state.HasVoted || state.SelectedChoiceID != "" {
		t.Fatalf("vote state not reset: %+v", state)
	}
	if err := r.SubmitChoice(context.Background(), "pay-rent"); err != nil {
		t.Fatalf("submit on new scene: %v", err)
	}
	if got := sub.submitScenes[len(sub.submitScenes)-1]; got != "wants-vs-needs" {
		t.Errorf("second submit targeted scene %q", got)
	}
}

func TestHandleSnapshot_RedeliveryHoldsOptimisticVote(t *testing.T) {
	// A pre-vote snapshot redelivered while the write is in flight must not
	// flip the optimistic Voted state back to Voting; the UI would offer a
	// second submit for a vote that is about to commit.
	sub := &mockSubmitter{}
	r := votingReconciler(t, sub)

	done := make(chan error, 1)
	sub.mu.Lock() // hold the submitter so the redelivery lands mid-flight
	go func() { done <- r.SubmitChoice(context.Background(), "save") }()

	time.Sleep(20 * time.Millisecond)
	r.HandleSnapshot(snapshot("start", types.SessionStatusActive, nil))
	if state := r.State(); state.Phase != PhaseVoted || state.SelectedChoiceID != "save" {
		t.Errorf("redelivery reopened voting mid-flight: %+v", state)
	}
	sub.mu.Unlock()

	if err := <-done; err != nil {
		t.Fatalf("SubmitChoice() error: %v", err)
	}
	// The confirming snapshot then settles the same state.
	r.HandleSnapshot(snapshot("start", types.SessionStatusActive, map[string]string{"student-a": "save"}))
	if state := r.State(); state.Phase != PhaseVoted || state.SelectedChoiceID != "save" {
		t.Errorf("state after confirmation: %+v", state)
	}
}
