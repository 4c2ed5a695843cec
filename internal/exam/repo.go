package exam

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Repository persists exams and marks in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new exam.
func (r *Repository) Insert(ctx context.Context, e Exam) (Exam, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO exams (id, teacher_id, title, subject, date, max_score)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, e.ID, e.TeacherID, e.Title, e.Subject, e.Date, e.MaxScore)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return Exam{}, err
	}
	return e, nil
}

// Get returns an exam only if it belongs to the teacher.
func (r *Repository) Get(ctx context.Context, teacherID, examID string) (*Exam, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, title, subject, date, max_score, created_at
		FROM exams WHERE id = $1 AND teacher_id = $2
	`, examID, teacherID)
	var e Exam
	if err := row.Scan(&e.ID, &e.TeacherID, &e.Title, &e.Subject, &e.Date, &e.MaxScore, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns the teacher's exams, newest date first.
func (r *Repository) List(ctx context.Context, teacherID string) ([]Exam, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, teacher_id, title, subject, date, max_score, created_at
		FROM exams WHERE teacher_id = $1 ORDER BY date DESC, created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Exam
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.TeacherID, &e.Title, &e.Subject, &e.Date, &e.MaxScore, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// UpsertMark inserts or overwrites a student's score for an exam.
func (r *Repository) UpsertMark(ctx context.Context, m Mark) (Mark, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO exam_marks (id, exam_id, student_id, score, grade)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (exam_id, student_id) DO UPDATE SET
			score = EXCLUDED.score,
			grade = EXCLUDED.grade,
			updated_at = NOW()
		RETURNING id, updated_at
	`, m.ID, m.ExamID, m.StudentID, m.Score, m.Grade)
	if err := row.Scan(&m.ID, &m.UpdatedAt); err != nil {
		return Mark{}, err
	}
	return m, nil
}

// Marks returns all marks for an exam joined with student identity.
func (r *Repository) Marks(ctx context.Context, examID string) ([]Mark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.exam_id, m.student_id, s.roll_no, s.name, m.score, m.grade, m.updated_at
		FROM exam_marks m
		JOIN students s ON s.id = m.student_id
		WHERE m.exam_id = $1
		ORDER BY s.name
	`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Mark
	for rows.Next() {
		var m Mark
		if err := rows.Scan(&m.ID, &m.ExamID, &m.StudentID, &m.RollNo, &m.Name, &m.Score, &m.Grade, &m.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
