package roster

import (
	"context"
	"errors"
	"strings"

	"classtrack/internal/auth"
)

// Store is the persistence surface the service needs.
type Store interface {
	InsertTeacher(ctx context.Context, t Teacher) (Teacher, error)
	TeacherByEmail(ctx context.Context, email string) (*Teacher, error)
	InsertStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, teacherID, studentID string) (*Student, error)
	ListStudents(ctx context.Context, teacherID string) ([]Student, error)
	UpdateStudent(ctx context.Context, s Student) error
	SetStudentPhoto(ctx context.Context, teacherID, studentID, url string) error
	DeleteStudent(ctx context.Context, teacherID, studentID string) error
}

// ErrBadCredentials is returned on failed login.
var ErrBadCredentials = errors.New("invalid email or password")

// Service validates and coordinates roster operations.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// RegisterTeacher creates a teacher account with a bcrypt-hashed password.
func (s *Service) RegisterTeacher(ctx context.Context, email, name, password string) (Teacher, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return Teacher{}, errors.New("valid email required")
	}
	if len(password) < 8 {
		return Teacher{}, errors.New("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Teacher{}, err
	}
	return s.store.InsertTeacher(ctx, Teacher{Email: email, Name: strings.TrimSpace(name), PassHash: hash})
}

// Authenticate verifies credentials and returns the teacher account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Teacher, error) {
	t, err := s.store.TeacherByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Teacher{}, ErrBadCredentials
		}
		return Teacher{}, err
	}
	if !auth.CheckPassword(password, t.PassHash) {
		return Teacher{}, ErrBadCredentials
	}
	return *t, nil
}

// AddStudent validates and inserts a roster entry.
func (s *Service) AddStudent(ctx context.Context, st Student) (Student, error) {
	st.RollNo = strings.TrimSpace(st.RollNo)
	st.Name = strings.TrimSpace(st.Name)
	if st.TeacherID == "" || st.RollNo == "" || st.Name == "" {
		return Student{}, errors.New("roll number and name required")
	}
	return s.store.InsertStudent(ctx, st)
}

// Students returns the teacher's roster.
func (s *Service) Students(ctx context.Context, teacherID string) ([]Student, error) {
	return s.store.ListStudents(ctx, teacherID)
}

// Student returns one owned student.
func (s *Service) Student(ctx context.Context, teacherID, studentID string) (*Student, error) {
	return s.store.GetStudent(ctx, teacherID, studentID)
}

// UpdateStudent merges the provided fields over the stored record.
func (s *Service) UpdateStudent(ctx context.Context, teacherID, studentID string, patch Student) (*Student, error) {
	cur, err := s.store.GetStudent(ctx, teacherID, studentID)
	if err != nil {
		return nil, err
	}
	if patch.Name != "" {
		cur.Name = patch.Name
	}
	if patch.Email != "" {
		cur.Email = patch.Email
	}
	if patch.Grade != "" {
		cur.Grade = patch.Grade
	}
	if patch.Status != "" {
		if patch.Status != "active" && patch.Status != "inactive" {
			return nil, errors.New("status must be active or inactive")
		}
		cur.Status = patch.Status
	}
	if err := s.store.UpdateStudent(ctx, *cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// SetPhoto records the uploaded photo URL on the student.
func (s *Service) SetPhoto(ctx context.Context, teacherID, studentID, url string) error {
	return s.store.SetStudentPhoto(ctx, teacherID, studentID, url)
}

// RemoveStudent deletes a roster entry.
func (s *Service) RemoveStudent(ctx context.Context, teacherID, studentID string) error {
	return s.store.DeleteStudent(ctx, teacherID, studentID)
}
