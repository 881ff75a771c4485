package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// CreateNotifications persists a batch of notifications in one transaction.
// The batch is one row per roster student for a session start.
func (s *Store) CreateNotifications(ctx context.Context, notifications []*types.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	return s.executeWrite(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO notifications (id, student_id, session_id, teacher_name, scenario_title, type, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare notification insert: %w", err)
		}
		defer stmt.Close()

		for _, n := range notifications {
			if _, err := stmt.ExecContext(ctx, n.ID, n.StudentID, n.SessionID,
				n.TeacherName, n.ScenarioTitle, n.Type, n.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert notification: %w", err)
			}
		}

		return tx.Commit()
	})
}

// PendingNotifications returns a student's unconsumed notifications, oldest
// first. These survive reconnect until acted upon.
func (s *Store) PendingNotifications(ctx context.Context, studentID string) ([]*types.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, session_id, teacher_name, scenario_title, type, created_at
		FROM notifications
		WHERE student_id = ? AND consumed = 0
		ORDER BY created_at ASC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query notifications: %v", types.ErrTransient, err)
	}
	defer rows.Close()

	var notifications []*types.Notification
	for rows.Next() {
		var n types.Notification
		if err := rows.Scan(&n.ID, &n.StudentID, &n.SessionID,
			&n.TeacherName, &n.ScenarioTitle, &n.Type, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read notifications: %v", types.ErrTransient, err)
	}

	return notifications, nil
}

// ConsumeNotification marks a notification acted upon. Consuming twice is a
// conflict so exactly one client acts on each signal.
func (s *Store) ConsumeNotification(ctx context.Context, notificationID string) error {
	return s.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			UPDATE notifications SET consumed = 1
			WHERE id = ? AND consumed = 0`, notificationID)
		if err != nil {
			return fmt.Errorf("failed to consume notification: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check consume result: %w", err)
		}
		if affected == 0 {
			var exists int
			err := db.QueryRowContext(ctx,
				`SELECT COUNT(1) FROM notifications WHERE id = ?`, notificationID).Scan(&exists)
			if err == nil && exists == 0 {
				return ErrNotificationNotFound
			}
			return fmt.Errorf("%w: notification already consumed", types.ErrConflict)
		}
		return nil
	})
}
