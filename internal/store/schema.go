package store

import "context"

// schema is applied at startup. The unique constraint on
// (student_id, date, teacher_id) is what makes concurrent QR redemptions
// safe: the ledger relies on the insert failing rather than on any
// application-level lock.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS teachers (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		pass_hash  TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id         TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES teachers(id),
		roll_no    TEXT NOT NULL,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		grade      TEXT NOT NULL DEFAULT '',
		status     TEXT NOT NULL DEFAULT 'active',
		photo_url  TEXT NOT NULL DEFAULT '',
		card_url   TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (teacher_id, roll_no)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_sessions (
		id           TEXT PRIMARY KEY,
		teacher_id   TEXT NOT NULL REFERENCES teachers(id),
		label        TEXT NOT NULL,
		date         TEXT NOT NULL,
		window_start TIMESTAMPTZ NOT NULL,
		window_end   TIMESTAMPTZ NOT NULL,
		token        TEXT NOT NULL UNIQUE,
		active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (window_end > window_start)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		teacher_id TEXT NOT NULL REFERENCES teachers(id),
		date       TEXT NOT NULL,
		status     TEXT NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (student_id, date, teacher_id)
	)`,
	`CREATE TABLE IF NOT EXISTS exams (
		id         TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES teachers(id),
		title      TEXT NOT NULL,
		subject    TEXT NOT NULL DEFAULT '',
		date       TEXT NOT NULL,
		max_score  DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS exam_marks (
		id         TEXT PRIMARY KEY,
		exam_id    TEXT NOT NULL REFERENCES exams(id),
		student_id TEXT NOT NULL REFERENCES students(id),
		score      DOUBLE PRECISION NOT NULL,
		grade      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (exam_id, student_id)
	)`,
}

// Migrate applies the schema statements in order.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
