package store

// Schema is created at open. The engine owns a single fixed schema; there is
// no migration history to replay.
//
// The classrooms table is the single-active-session pointer: a non-empty
// active_session_id means that classroom has a live session. The pointer is
// set inside the session-create transaction and detached inside the
// session-end transaction, so the invariant can never straddle two commits.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	classroom_id     TEXT NOT NULL,
	teacher_id       TEXT NOT NULL,
	teacher_name     TEXT NOT NULL,
	scenario_id      TEXT NOT NULL,
	current_scene_id TEXT NOT NULL,
	status           TEXT NOT NULL,
	participants     TEXT NOT NULL,
	current_choices  TEXT NOT NULL,
	presence         TEXT NOT NULL,
	reveal_votes     INTEGER NOT NULL DEFAULT 0,
	mirror_moments   INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL,
	last_updated     DATETIME NOT NULL,
	result           TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_classroom ON sessions(classroom_id);

CREATE TABLE IF NOT EXISTS classrooms (
	id                TEXT PRIMARY KEY,
	active_session_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notifications (
	id             TEXT PRIMARY KEY,
	student_id     TEXT NOT NULL,
	session_id     TEXT NOT NULL,
	teacher_name   TEXT NOT NULL,
	scenario_title TEXT NOT NULL,
	type           TEXT NOT NULL,
	created_at     DATETIME NOT NULL,
	consumed       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_notifications_student ON notifications(student_id, consumed);
`
