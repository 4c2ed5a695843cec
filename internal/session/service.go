package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classtrack/internal/attendance"
)

// Store is the session persistence surface.
type Store interface {
	Insert(ctx context.Context, s Session) (Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	Get(ctx context.Context, teacherID, id string) (*Session, error)
	SetInactive(ctx context.Context, id string) error
	List(ctx context.Context, teacherID string) ([]Session, error)
}

// Roster resolves a scanned student against the session owner's roster.
type Roster interface {
	StudentExists(ctx context.Context, teacherID, studentID string) (bool, error)
}

// Ledger writes the attendance entry a successful redemption produces.
type Ledger interface {
	Get(ctx context.Context, teacherID, studentID, date string) (*attendance.Entry, error)
	Insert(ctx context.Context, e attendance.Entry) (attendance.Entry, error)
}

// Service owns session lifecycle and redemption.
type Service struct {
	store  Store
	roster Roster
	ledger Ledger
	now    func() time.Time
}

// NewService creates a service.
func NewService(store Store, roster Roster, ledger Ledger) *Service {
	return &Service{store: store, roster: roster, ledger: ledger, now: time.Now}
}

const createAttempts = 3

// Create opens a new collection window and returns the persisted session,
// token included, for display. On the off chance a generated token collides
// with an existing row it retries with a fresh one.
func (s *Service) Create(ctx context.Context, teacherID, label, date string, durationMinutes int) (Session, error) {
	if teacherID == "" {
		return Session{}, fmt.Errorf("%w: teacher required", ErrInvalidInput)
	}
	if label == "" {
		return Session{}, fmt.Errorf("%w: label required", ErrInvalidInput)
	}
	if durationMinutes <= 0 {
		return Session{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if !attendance.ValidDate(date) {
		return Session{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	start := s.now().UTC()
	var lastErr error
	for i := 0; i < createAttempts; i++ {
		token, err := GenerateToken()
		if err != nil {
			return Session{}, err
		}
		created, err := s.store.Insert(ctx, Session{
			TeacherID:   teacherID,
			Label:       label,
			Date:        date,
			WindowStart: start,
			WindowEnd:   start.Add(time.Duration(durationMinutes) * time.Minute),
			Token:       token,
			Active:      true,
		})
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrTokenConflict) {
			return Session{}, err
		}
		lastErr = err
	}
	return Session{}, lastErr
}

// Deactivate flips the owner's session inactive. Deactivating an
// already-inactive session is a no-op success.
func (s *Service) Deactivate(ctx context.Context, teacherID, sessionID string) error {
	sess, err := s.store.Get(ctx, teacherID, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNotFound
	}
	if !sess.Active {
		return nil
	}
	return s.store.SetInactive(ctx, sessionID)
}

// List returns the owner's sessions newest first, with Expired computed so
// the owner view can distinguish run-out sessions from deactivated ones.
func (s *Service) List(ctx context.Context, teacherID string) ([]Session, error) {
	sessions, err := s.store.List(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range sessions {
		sessions[i].Expired = now.After(sessions[i].WindowEnd)
	}
	return sessions, nil
}

// Get returns one owned session.
func (s *Service) Get(ctx context.Context, teacherID, sessionID string) (*Session, error) {
	sess, err := s.store.Get(ctx, teacherID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	sess.Expired = s.now().After(sess.WindowEnd)
	return sess, nil
}

// Redeem validates a scanned token for a student and records at most one
// present entry for the session's date.
//
// Side effects: on an expired token the session is flipped inactive (lazy
// expiry) before ErrExpired is returned; on success exactly one attendance
// entry is created. Concurrent duplicate scans are resolved by the ledger's
// unique constraint, not by any lock here: losing the insert race yields
// ErrAlreadyMarked, same as a repeat scan.
func (s *Service) Redeem(ctx context.Context, token, studentID string) (attendance.Entry, error) {
	if token == "" || studentID == "" {
		return attendance.Entry{}, fmt.Errorf("%w: token and student_id required", ErrInvalidInput)
	}

	sess, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return attendance.Entry{}, err
	}
	// Missing and deactivated look identical to an anonymous scanner so
	// tokens cannot be probed for lifecycle state.
	if sess == nil || !sess.Active {
		return attendance.Entry{}, ErrInvalidCode
	}

	if s.now().After(sess.WindowEnd) {
		if err := s.store.SetInactive(ctx, sess.ID); err != nil {
			return attendance.Entry{}, err
		}
		return attendance.Entry{}, ErrExpired
	}

	// Resolve against the session owner's roster, not any claimed owner.
	ok, err := s.roster.StudentExists(ctx, sess.TeacherID, studentID)
	if err != nil {
		return attendance.Entry{}, err
	}
	if !ok {
		return attendance.Entry{}, ErrUnknownSubject
	}

	existing, err := s.ledger.Get(ctx, sess.TeacherID, studentID, sess.Date)
	if err != nil {
		return attendance.Entry{}, err
	}
	if existing != nil {
		return attendance.Entry{}, ErrAlreadyMarked
	}

	entry, err := s.ledger.Insert(ctx, attendance.Entry{
		StudentID: studentID,
		TeacherID: sess.TeacherID,
		Date:      sess.Date,
		Status:    attendance.StatusPresent,
		Note:      "Marked via QR code: " + sess.Label,
	})
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicate) {
			return attendance.Entry{}, ErrAlreadyMarked
		}
		return attendance.Entry{}, err
	}
	return entry, nil
}
