// Package store implements the durable session store over SQLite. All writes
// funnel through a single writer goroutine; every mutation is one transaction,
// so subscribers can never observe a scene change with stale choices.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/SaranshG2501/LifePath-sub000/internal/observability"
	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Options configures a Store.
type Options struct {
	// Path is the SQLite database file path.
	Path string
	// Timeout bounds each queued write operation.
	Timeout time.Duration
	// Publisher receives a snapshot after every committed mutation. Nil
	// disables publishing.
	Publisher interfaces.ChangeFeedPublisher
	// Metrics is optional.
	Metrics *observability.Metrics
}

// Store is the authoritative session record. Active sessions are cached in
// memory; ended sessions are served from the database. The mutex serializes
// the read-modify-write of each patch so multi-field changes are atomic from
// every reader's point of view, and snapshots publish in write order.
type Store struct {
	db        *sql.DB
	timeout   time.Duration
	publisher interfaces.ChangeFeedPublisher
	metrics   *observability.Metrics

	mu              sync.RWMutex
	sessions        map[string]*types.Session // active sessions by id
	classroomActive map[string]string         // classroomID -> active sessionID

	writeCh  chan writeOp
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	closeMu  sync.RWMutex
}

type writeOp struct {
	fn     func(*sql.DB) error
	result chan error
}

// Open opens (creating if needed) the database and loads active sessions.
func Open(opts Options) (*Store, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	db, err := sql.Open("sqlite3", opts.Path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{
		db:              db,
		timeout:         opts.Timeout,
		publisher:       opts.Publisher,
		metrics:         opts.Metrics,
		sessions:        make(map[string]*types.Session),
		classroomActive: make(map[string]string),
		writeCh:         make(chan writeOp, 100),
		shutdown:        make(chan struct{}),
	}

	s.wg.Add(1)
	go s.writeLoop()

	if err := s.loadActiveSessions(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// writeLoop processes all writes in a single goroutine. SQLite performs best
// with one writer; everything else reads concurrently through the pool.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeCh:
			err := op.fn(s.db)
			if err != nil && !isDomainError(err) {
				log.Printf("store: write failed, retrying once: %v", err)
				time.Sleep(time.Second)
				err = op.fn(s.db)
			}
			op.result <- err

		case <-s.shutdown:
			return
		}
	}
}

// isDomainError reports whether err carries a taxonomy classification.
// Domain failures are deterministic and never worth retrying.
func isDomainError(err error) bool {
	return errors.Is(err, types.ErrValidation) ||
		errors.Is(err, types.ErrConflict) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrPermission)
}

func (s *Store) executeWrite(fn func(*sql.DB) error) error {
	s.closeMu.RLock()
	if s.closed {
		s.closeMu.RUnlock()
		return ErrStoreClosed
	}
	s.closeMu.RUnlock()

	result := make(chan error, 1)
	select {
	case s.writeCh <- writeOp{fn: fn, result: result}:
		return <-result
	case <-time.After(s.timeout):
		return fmt.Errorf("%w: write queue timeout", types.ErrTransient)
	case <-s.shutdown:
		return ErrStoreClosed
	}
}

func (s *Store) loadActiveSessions(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		sessionColumnsSQL+` FROM sessions WHERE status = ?`, types.SessionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to load active sessions: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return err
		}
		s.sessions[session.ID] = session
		s.classroomActive[session.ClassroomID] = session.ID
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load active sessions: %w", err)
	}

	log.Printf("store: loaded %d active sessions", len(s.sessions))
	return nil
}

// CreateSession persists a new active session. The classroom's active-session
// pointer is checked and set inside the same transaction as the insert, so
// concurrent starts for one classroom admit exactly one winner.
func (s *Store) CreateSession(ctx context.Context, session *types.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %s", types.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.classroomActive[session.ClassroomID]; busy {
		return ErrClassroomBusy
	}

	record := session.Clone()
	err := s.executeWrite(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		// Re-check the pointer inside the transaction; the cache check above
		// is only the fast path.
		var active string
		err = tx.QueryRowContext(ctx,
			`SELECT active_session_id FROM classrooms WHERE id = ?`, record.ClassroomID).Scan(&active)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read classroom pointer: %w", err)
		}
		if active != "" {
			return ErrClassroomBusy
		}

		if err := insertSession(ctx, tx, record); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO classrooms (id, active_session_id) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET active_session_id = excluded.active_session_id`,
			record.ClassroomID, record.ID)
		if err != nil {
			return fmt.Errorf("failed to set classroom pointer: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return err
	}

	s.sessions[record.ID] = record
	s.classroomActive[record.ClassroomID] = record.ID
	s.metrics.SetActiveSessions(len(s.sessions))
	s.publish(record)

	log.Printf("store: created session id=%s classroom=%s scenario=%s",
		record.ID, record.ClassroomID, record.ScenarioID)
	return nil
}

// GetSession returns a snapshot of a session, active or ended.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	s.mu.RLock()
	if session, ok := s.sessions[sessionID]; ok {
		snap := session.Clone()
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	return s.querySession(ctx, sessionID)
}

// ListActiveSessions returns snapshots of all active sessions.
func (s *Store) ListActiveSessions(ctx context.Context) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*types.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session.Clone())
	}
	return sessions, nil
}

// PatchSession atomically applies a multi-field patch and returns the new
// snapshot. The whole read-modify-write-publish sequence runs under the store
// lock, so snapshots reach the feed in write order.
func (s *Store) PatchSession(ctx context.Context, sessionID string, patch types.SessionPatch, guard interfaces.Guard) (*types.Session, error) {
	if patch.IsZero() {
		return nil, ErrEmptyPatch
	}

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[sessionID]
	if !ok {
		// Ended sessions still accept result-only patches.
		loaded, err := s.querySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		current = loaded
	}

	if guard != nil {
		if err := guard(current.Clone()); err != nil {
			return nil, err
		}
	}

	work := current.Clone()
	ended, err := applyPatch(work, patch)
	if err != nil {
		return nil, err
	}
	work.LastUpdated = time.Now().UTC()

	err = s.executeWrite(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := updateSession(ctx, tx, work); err != nil {
			return err
		}

		// Ending a session detaches the classroom pointer in the same
		// transaction, so a new session can start immediately after.
		if ended {
			_, err = tx.ExecContext(ctx, `
				UPDATE classrooms SET active_session_id = ''
				WHERE id = ? AND active_session_id = ?`,
				work.ClassroomID, work.ID)
			if err != nil {
				return fmt.Errorf("failed to detach classroom pointer: %w", err)
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	if ended {
		delete(s.sessions, work.ID)
		delete(s.classroomActive, work.ClassroomID)
	} else if _, cached := s.sessions[work.ID]; cached {
		s.sessions[work.ID] = work
	}
	s.metrics.SetActiveSessions(len(s.sessions))
	s.metrics.ObservePatch(time.Since(start))

	snap := work.Clone()
	s.publish(snap)
	return snap, nil
}

// applyPatch mutates work in place. It returns whether this patch transitions
// the session to ended. All invariant enforcement lives here.
func applyPatch(work *types.Session, patch types.SessionPatch) (bool, error) {
	// Frozen after end; only the result payload may still be written.
	if work.IsEnded() && !patch.TouchesOnlyResult() {
		return false, ErrSessionEnded
	}

	ended := false
	if patch.Status != nil {
		switch *patch.Status {
		case types.SessionStatusEnded:
			ended = true
			work.Status = types.SessionStatusEnded
		case types.SessionStatusActive:
			if work.Status != types.SessionStatusActive {
				return false, ErrSessionEnded
			}
		default:
			return false, fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidStatus)
		}
	}

	if patch.CurrentSceneID != nil && *patch.CurrentSceneID != work.CurrentSceneID {
		if !types.IsValidSceneID(*patch.CurrentSceneID) {
			return false, fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidSceneID)
		}
		// Scene transition: the choice map and every typing flag clear in the
		// same patch, never separately.
		work.CurrentSceneID = *patch.CurrentSceneID
		work.CurrentChoices = make(map[string]string)
		for id, p := range work.Presence {
			p.IsTyping = false
			work.Presence[id] = p
		}
	}

	if patch.AddParticipant != nil {
		p := *patch.AddParticipant
		if !types.IsValidID(p.StudentID) {
			return false, fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidUserID)
		}
		if existing, ok := work.Participants[p.StudentID]; ok {
			// Re-join keeps the original join time.
			existing.IsActive = true
			existing.StudentName = p.StudentName
			work.Participants[p.StudentID] = existing
		} else {
			p.IsActive = true
			if p.JoinedAt.IsZero() {
				p.JoinedAt = time.Now().UTC()
			}
			work.Participants[p.StudentID] = p
		}
	}

	if patch.SetChoice != nil {
		sub := *patch.SetChoice
		if !types.IsValidChoiceID(sub.ChoiceID) {
			return false, fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidChoiceID)
		}
		// Choice keys stay a subset of participant ids.
		if _, ok := work.Participants[sub.StudentID]; !ok {
			return false, ErrNotParticipant
		}
		work.CurrentChoices[sub.StudentID] = sub.ChoiceID
	}

	if patch.SetActivity != nil {
		act := *patch.SetActivity
		existing, ok := work.Participants[act.StudentID]
		if !ok {
			return false, ErrNotParticipant
		}
		existing.IsActive = act.IsActive
		work.Participants[act.StudentID] = existing
	}

	if patch.SetPresence != nil {
		pr := *patch.SetPresence
		if _, ok := work.Participants[pr.StudentID]; !ok {
			return false, ErrNotParticipant
		}
		work.Presence[pr.StudentID] = types.PresenceInfo{
			CurrentSceneID: pr.SceneID,
			IsTyping:       pr.IsTyping,
		}
	}

	if patch.RevealVotes != nil {
		work.RevealVotes = *patch.RevealVotes
	}

	if patch.Result != nil {
		work.Result = patch.Result
	}

	return ended, nil
}

func (s *Store) publish(snap *types.Session) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(snap)
}

// Close stops the writer and closes the database.
func (s *Store) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	close(s.shutdown)
	s.wg.Wait()
	return s.db.Close()
}

var _ interfaces.SessionStore = (*Store)(nil)
var _ interfaces.NotificationStore = (*Store)(nil)
