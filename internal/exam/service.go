package exam

import (
	"context"
	"fmt"
	"time"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, e Exam) (Exam, error)
	Get(ctx context.Context, teacherID, examID string) (*Exam, error)
	List(ctx context.Context, teacherID string) ([]Exam, error)
	UpsertMark(ctx context.Context, m Mark) (Mark, error)
	Marks(ctx context.Context, examID string) ([]Mark, error)
}

// Roster resolves student ownership.
type Roster interface {
	StudentExists(ctx context.Context, teacherID, studentID string) (bool, error)
}

// Service validates and coordinates exam operations.
type Service struct {
	store  Store
	roster Roster
}

// NewService creates a service.
func NewService(store Store, roster Roster) *Service {
	return &Service{store: store, roster: roster}
}

// Create records a new exam.
func (s *Service) Create(ctx context.Context, teacherID, title, subject, date string, maxScore float64) (Exam, error) {
	if title == "" {
		return Exam{}, fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return Exam{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if maxScore <= 0 {
		return Exam{}, fmt.Errorf("%w: max score must be positive", ErrInvalidInput)
	}
	return s.store.Insert(ctx, Exam{
		TeacherID: teacherID,
		Title:     title,
		Subject:   subject,
		Date:      date,
		MaxScore:  maxScore,
	})
}

// List returns the teacher's exams.
func (s *Service) List(ctx context.Context, teacherID string) ([]Exam, error) {
	return s.store.List(ctx, teacherID)
}

// RecordMark upserts one student's score for an owned exam and derives the
// letter grade from the exam's max score.
func (s *Service) RecordMark(ctx context.Context, teacherID, examID, studentID string, score float64) (Mark, error) {
	e, err := s.store.Get(ctx, teacherID, examID)
	if err != nil {
		return Mark{}, err
	}
	if score < 0 || score > e.MaxScore {
		return Mark{}, fmt.Errorf("%w: score must be between 0 and %g", ErrInvalidInput, e.MaxScore)
	}
	ok, err := s.roster.StudentExists(ctx, teacherID, studentID)
	if err != nil {
		return Mark{}, err
	}
	if !ok {
		return Mark{}, ErrUnknownSubject
	}
	return s.store.UpsertMark(ctx, Mark{
		ExamID:    examID,
		StudentID: studentID,
		Score:     score,
		Grade:     LetterGrade(score, e.MaxScore),
	})
}

// Marks returns all marks for an owned exam.
func (s *Service) Marks(ctx context.Context, teacherID, examID string) ([]Mark, error) {
	if _, err := s.store.Get(ctx, teacherID, examID); err != nil {
		return nil, err
	}
	return s.store.Marks(ctx, examID)
}
