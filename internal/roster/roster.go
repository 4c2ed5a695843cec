package roster

import (
	"errors"
	"time"
)

// Teacher is an account that owns a roster.
type Teacher struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PassHash  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Student belongs to exactly one teacher.
type Student struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	RollNo    string    `json:"roll_no"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Grade     string    `json:"grade,omitempty"`
	Status    string    `json:"status"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CardURL   string    `json:"card_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrNotFound is returned when a teacher or student does not exist
	// under the requesting owner.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned on duplicate teacher registration.
	ErrEmailTaken = errors.New("email already registered")
	// ErrRollTaken is returned when a roll number already exists for the teacher.
	ErrRollTaken = errors.New("roll number already in use")
)
