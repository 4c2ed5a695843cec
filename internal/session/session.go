// Package session implements the QR attendance session protocol: time-boxed
// redemption tokens a teacher displays and students scan to self-report
// presence. A session is active from creation until its window ends or the
// teacher deactivates it; expiry is enforced lazily at redemption time.
package session

import (
	"errors"
	"time"
)

// Session is one attendance-collection window.
type Session struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Label       string    `json:"label"`
	Date        string    `json:"date"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Token       string    `json:"token"`
	Active      bool      `json:"active"`
	// Expired is computed at read time; the owner's list view can tell a
	// run-out session from an explicitly deactivated one, anonymous
	// scanners cannot.
	Expired   bool      `json:"expired"`
	CreatedAt time.Time `json:"created_at"`
}

// Redemption error kinds. Anonymous scanners only ever see these four;
// in particular a deactivated session is indistinguishable from a token
// that never existed.
var (
	ErrInvalidCode    = errors.New("invalid or expired code")
	ErrExpired        = errors.New("code has expired")
	ErrUnknownSubject = errors.New("student not found")
	ErrAlreadyMarked  = errors.New("attendance already marked for today")
	ErrInvalidInput   = errors.New("invalid input")
)

// ErrNotFound is returned for owner-scoped lookups of missing sessions.
var ErrNotFound = errors.New("session not found")

// ErrTokenConflict is returned by the store when a generated token collides
// with an existing one. The controller retries with a fresh token.
var ErrTokenConflict = errors.New("token already in use")

// Kind maps a redemption error to its wire error_kind string, or "" for
// unexpected failures.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, ErrAlreadyMarked):
		return "already_marked"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return ""
}
