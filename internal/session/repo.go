package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new session. A unique violation on the token column is
// translated to ErrTokenConflict.
func (r *Repository) Insert(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (id, teacher_id, label, date, window_start, window_end, token, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, s.ID, s.TeacherID, s.Label, s.Date, s.WindowStart, s.WindowEnd, s.Token, s.Active)
	if err := row.Scan(&s.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Session{}, ErrTokenConflict
		}
		return Session{}, err
	}
	return s, nil
}

// GetByToken returns the session for a redemption token, or nil.
func (r *Repository) GetByToken(ctx context.Context, token string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, label, date, window_start, window_end, token, active, created_at
		FROM attendance_sessions WHERE token = $1
	`, token)
	return scanSession(row)
}

// Get returns a session only if it belongs to the teacher.
func (r *Repository) Get(ctx context.Context, teacherID, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, label, date, window_start, window_end, token, active, created_at
		FROM attendance_sessions WHERE id = $1 AND teacher_id = $2
	`, id, teacherID)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.TeacherID, &s.Label, &s.Date, &s.WindowStart, &s.WindowEnd, &s.Token, &s.Active, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetInactive flips a session inactive. Flipping an already-inactive
// session is a no-op; there is no way back to active.
func (r *Repository) SetInactive(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions SET active = FALSE WHERE id = $1
	`, id)
	return err
}

// List returns the teacher's sessions, most recently created first.
func (r *Repository) List(ctx context.Context, teacherID string) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, teacher_id, label, date, window_start, window_end, token, active, created_at
		FROM attendance_sessions
		WHERE teacher_id = $1
		ORDER BY created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.Label, &s.Date, &s.WindowStart, &s.WindowEnd, &s.Token, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
