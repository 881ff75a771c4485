package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

const sessionColumnsSQL = `SELECT id, classroom_id, teacher_id, teacher_name, scenario_id,
	current_scene_id, status, participants, current_choices, presence,
	reveal_votes, mirror_moments, created_at, last_updated, result`

type rowScanner interface {
	Scan(dest ...any) error
}

// Collection fields serialize to JSON columns; the schema stays flat while
// the Go types keep their natural map shapes.
func marshalCollections(s *types.Session) (participants, choices, presence string, result sql.NullString, err error) {
	p, err := json.Marshal(s.Participants)
	if err != nil {
		return "", "", "", sql.NullString{}, fmt.Errorf("failed to marshal participants: %w", err)
	}
	c, err := json.Marshal(s.CurrentChoices)
	if err != nil {
		return "", "", "", sql.NullString{}, fmt.Errorf("failed to marshal choices: %w", err)
	}
	pr, err := json.Marshal(s.Presence)
	if err != nil {
		return "", "", "", sql.NullString{}, fmt.Errorf("failed to marshal presence: %w", err)
	}
	if s.Result != nil {
		r, err := json.Marshal(s.Result)
		if err != nil {
			return "", "", "", sql.NullString{}, fmt.Errorf("failed to marshal result: %w", err)
		}
		result = sql.NullString{String: string(r), Valid: true}
	}
	return string(p), string(c), string(pr), result, nil
}

func insertSession(ctx context.Context, tx *sql.Tx, s *types.Session) error {
	participants, choices, presence, result, err := marshalCollections(s)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, classroom_id, teacher_id, teacher_name, scenario_id,
			current_scene_id, status, participants, current_choices, presence,
			reveal_votes, mirror_moments, created_at, last_updated, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ClassroomID, s.TeacherID, s.TeacherName, s.ScenarioID,
		s.CurrentSceneID, s.Status, participants, choices, presence,
		s.RevealVotes, s.MirrorMomentsEnabled, s.CreatedAt, s.LastUpdated, result)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func updateSession(ctx context.Context, tx *sql.Tx, s *types.Session) error {
	participants, choices, presence, result, err := marshalCollections(s)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET
			current_scene_id = ?, status = ?, participants = ?, current_choices = ?,
			presence = ?, reveal_votes = ?, last_updated = ?, result = ?
		WHERE id = ?`,
		s.CurrentSceneID, s.Status, participants, choices,
		presence, s.RevealVotes, s.LastUpdated, result, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Store) querySession(ctx context.Context, sessionID string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, sessionColumnsSQL+` FROM sessions WHERE id = ?`, sessionID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: failed to query session: %v", types.ErrTransient, err)
	}
	return session, nil
}

func scanSession(row rowScanner) (*types.Session, error) {
	var (
		s            types.Session
		participants string
		choices      string
		presence     string
		result       sql.NullString
	)

	err := row.Scan(&s.ID, &s.ClassroomID, &s.TeacherID, &s.TeacherName, &s.ScenarioID,
		&s.CurrentSceneID, &s.Status, &participants, &choices, &presence,
		&s.RevealVotes, &s.MirrorMomentsEnabled, &s.CreatedAt, &s.LastUpdated, &result)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(participants), &s.Participants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
	}
	if err := json.Unmarshal([]byte(choices), &s.CurrentChoices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal choices: %w", err)
	}
	if err := json.Unmarshal([]byte(presence), &s.Presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	if result.Valid {
		if err := json.Unmarshal([]byte(result.String), &s.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}

	return &s, nil
}
