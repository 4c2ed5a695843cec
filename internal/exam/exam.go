package exam

import (
	"errors"
	"time"
)

// Exam is a graded assessment owned by one teacher.
type Exam struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject,omitempty"`
	Date      string    `json:"date"`
	MaxScore  float64   `json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
}

// Mark is one student's score on an exam. At most one per (exam, student);
// re-submitting overwrites.
type Mark struct {
	ID        string    `json:"id"`
	ExamID    string    `json:"exam_id"`
	StudentID string    `json:"student_id"`
	RollNo    string    `json:"roll_no,omitempty"`
	Name      string    `json:"name,omitempty"`
	Score     float64   `json:"score"`
	Grade     string    `json:"grade,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrNotFound is returned for missing or foreign exams.
	ErrNotFound = errors.New("exam not found")
	// ErrUnknownSubject is returned when the marked student is not on
	// the owner's roster.
	ErrUnknownSubject = errors.New("student not found")
	// ErrInvalidInput covers bad titles, dates, or scores.
	ErrInvalidInput = errors.New("invalid input")
)

// LetterGrade maps a percentage to the report-card letter used on marks
// tables.
func LetterGrade(score, maxScore float64) string {
	if maxScore <= 0 {
		return ""
	}
	pct := score / maxScore * 100
	switch {
	case pct >= 90:
		return "A"
	case pct >= 80:
		return "B"
	case pct >= 70:
		return "C"
	case pct >= 60:
		return "D"
	default:
		return "F"
	}
}
