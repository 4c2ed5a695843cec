package roster

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Repository persists teachers and students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// InsertTeacher creates a teacher account.
func (r *Repository) InsertTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (id, email, name, pass_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, t.ID, t.Email, t.Name, t.PassHash)
	if err := row.Scan(&t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Teacher{}, ErrEmailTaken
		}
		return Teacher{}, err
	}
	return t, nil
}

// TeacherByEmail returns a teacher account for login.
func (r *Repository) TeacherByEmail(ctx context.Context, email string) (*Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, pass_hash, created_at FROM teachers WHERE email = $1
	`, email)
	var t Teacher
	if err := row.Scan(&t.ID, &t.Email, &t.Name, &t.PassHash, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// InsertStudent adds a student to the teacher's roster.
func (r *Repository) InsertStudent(ctx context.Context, s Student) (Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = "active"
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, teacher_id, roll_no, name, email, grade, status, photo_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, s.ID, s.TeacherID, s.RollNo, s.Name, s.Email, s.Grade, s.Status, s.PhotoURL)
	if err := row.Scan(&s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Student{}, ErrRollTaken
		}
		return Student{}, err
	}
	return s, nil
}

// GetStudent returns a student only if it belongs to the teacher.
func (r *Repository) GetStudent(ctx context.Context, teacherID, studentID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, roll_no, name, email, grade, status, photo_url, card_url, created_at
		FROM students WHERE id = $1 AND teacher_id = $2
	`, studentID, teacherID)
	var s Student
	if err := row.Scan(&s.ID, &s.TeacherID, &s.RollNo, &s.Name, &s.Email, &s.Grade, &s.Status, &s.PhotoURL, &s.CardURL, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// StudentExists reports whether the student belongs to the teacher's roster.
func (r *Repository) StudentExists(ctx context.Context, teacherID, studentID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM students WHERE id = $1 AND teacher_id = $2
	`, studentID, teacherID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListStudents returns the teacher's roster ordered by name.
func (r *Repository) ListStudents(ctx context.Context, teacherID string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, teacher_id, roll_no, name, email, grade, status, photo_url, card_url, created_at
		FROM students WHERE teacher_id = $1 ORDER BY name
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.RollNo, &s.Name, &s.Email, &s.Grade, &s.Status, &s.PhotoURL, &s.CardURL, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpdateStudent overwrites mutable student fields, scoped to the owner.
func (r *Repository) UpdateStudent(ctx context.Context, s Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET name = $3, email = $4, grade = $5, status = $6
		WHERE id = $1 AND teacher_id = $2
	`, s.ID, s.TeacherID, s.Name, s.Email, s.Grade, s.Status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// SetStudentPhoto records the uploaded photo URL.
func (r *Repository) SetStudentPhoto(ctx context.Context, teacherID, studentID, url string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET photo_url = $3 WHERE id = $1 AND teacher_id = $2
	`, studentID, teacherID, url)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// SetStudentCard records the rendered ID card URL.
func (r *Repository) SetStudentCard(ctx context.Context, teacherID, studentID, url string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET card_url = $3 WHERE id = $1 AND teacher_id = $2
	`, studentID, teacherID, url)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// DeleteStudent removes a student from the roster.
func (r *Repository) DeleteStudent(ctx context.Context, teacherID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM students WHERE id = $1 AND teacher_id = $2
	`, studentID, teacherID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
