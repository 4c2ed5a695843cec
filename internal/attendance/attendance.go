package attendance

import (
	"errors"
	"time"
)

// Valid entry statuses.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// Entry is one attendance record: at most one exists per
// (student, date, teacher), enforced by the database.
type Entry struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	TeacherID string    `json:"teacher_id"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentStats aggregates a single student's entries.
type StudentStats struct {
	StudentID string `json:"student_id"`
	RollNo    string `json:"roll_no"`
	Name      string `json:"name"`
	Total     int    `json:"total_days"`
	Present   int    `json:"present"`
	Absent    int    `json:"absent"`
	Late      int    `json:"late"`
	Excused   int    `json:"excused"`
	Rate      int    `json:"attendance_rate"`
}

var (
	// ErrDuplicate is returned when an entry already exists for the
	// (student, date, teacher) triple.
	ErrDuplicate = errors.New("attendance already recorded for this date")
	// ErrUnknownSubject is returned when the student is not on the
	// owner's roster.
	ErrUnknownSubject = errors.New("student not found")
	// ErrInvalidInput is returned for malformed dates or statuses.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidStatus reports whether s is one of the four entry statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// ValidDate reports whether s is a calendar date in 2006-01-02 form.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
