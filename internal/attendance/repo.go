package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance entries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new entry. A unique-constraint violation on
// (student_id, date, teacher_id) is translated to ErrDuplicate so callers
// can treat a lost race the same as a repeat request.
func (r *Repository) Insert(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, teacher_id, date, status, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, e.ID, e.StudentID, e.TeacherID, e.Date, e.Status, e.Note)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Entry{}, ErrDuplicate
		}
		return Entry{}, err
	}
	return e, nil
}

// Upsert inserts or overwrites the entry for (student, date, teacher).
// This is the manual marking path: last write wins.
func (r *Repository) Upsert(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, teacher_id, date, status, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (student_id, date, teacher_id) DO UPDATE SET
			status = EXCLUDED.status,
			note = EXCLUDED.note,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, e.ID, e.StudentID, e.TeacherID, e.Date, e.Status, e.Note)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns the entry for (student, date, teacher), or nil.
func (r *Repository) Get(ctx context.Context, teacherID, studentID, date string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, teacher_id, date, status, note, created_at, updated_at
		FROM attendance
		WHERE student_id = $1 AND date = $2 AND teacher_id = $3
	`, studentID, date, teacherID)
	var e Entry
	if err := row.Scan(&e.ID, &e.StudentID, &e.TeacherID, &e.Date, &e.Status, &e.Note, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// ListRange returns entries for the teacher between from and to inclusive,
// newest date first. Empty bounds are open-ended.
func (r *Repository) ListRange(ctx context.Context, teacherID, from, to string) ([]Entry, error) {
	if from == "" {
		from = "0000-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, teacher_id, date, status, note, created_at, updated_at
		FROM attendance
		WHERE teacher_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC, student_id
	`, teacherID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.TeacherID, &e.Date, &e.Status, &e.Note, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// ReportRow is one line of the CSV export, joined with student identity.
type ReportRow struct {
	Date    string
	RollNo  string
	Name    string
	Status  string
	Note    string
	Created time.Time
}

// Report returns entries joined with student names for export.
func (r *Repository) Report(ctx context.Context, teacherID, from, to string) ([]ReportRow, error) {
	if from == "" {
		from = "0000-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.date, s.roll_no, s.name, a.status, a.note, a.created_at
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.teacher_id = $1 AND a.date >= $2 AND a.date <= $3
		ORDER BY a.date, s.name
	`, teacherID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.Date, &row.RollNo, &row.Name, &row.Status, &row.Note, &row.Created); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// Stats aggregates per-student counts across the teacher's ledger.
func (r *Repository) Stats(ctx context.Context, teacherID string) ([]StudentStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.roll_no, s.name,
			COUNT(a.id),
			COUNT(a.id) FILTER (WHERE a.status = 'present'),
			COUNT(a.id) FILTER (WHERE a.status = 'absent'),
			COUNT(a.id) FILTER (WHERE a.status = 'late'),
			COUNT(a.id) FILTER (WHERE a.status = 'excused')
		FROM students s
		LEFT JOIN attendance a ON a.student_id = s.id AND a.teacher_id = s.teacher_id
		WHERE s.teacher_id = $1
		GROUP BY s.id, s.roll_no, s.name
		ORDER BY s.name
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StudentStats
	for rows.Next() {
		var st StudentStats
		if err := rows.Scan(&st.StudentID, &st.RollNo, &st.Name, &st.Total, &st.Present, &st.Absent, &st.Late, &st.Excused); err != nil {
			return nil, err
		}
		if st.Total > 0 {
			st.Rate = int(float64(st.Present)/float64(st.Total)*100 + 0.5)
		}
		res = append(res, st)
	}
	return res, rows.Err()
}
