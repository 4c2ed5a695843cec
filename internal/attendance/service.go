package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
)

// Ledger is the persistence surface the service needs.
type Ledger interface {
	Insert(ctx context.Context, e Entry) (Entry, error)
	Upsert(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, teacherID, studentID, date string) (*Entry, error)
	ListRange(ctx context.Context, teacherID, from, to string) ([]Entry, error)
	Report(ctx context.Context, teacherID, from, to string) ([]ReportRow, error)
	Stats(ctx context.Context, teacherID string) ([]StudentStats, error)
}

// Roster resolves student ownership for the manual marking path.
type Roster interface {
	StudentExists(ctx context.Context, teacherID, studentID string) (bool, error)
}

// Service owns the teacher-facing ledger operations.
type Service struct {
	ledger Ledger
	roster Roster
}

// NewService creates a service.
func NewService(ledger Ledger, roster Roster) *Service {
	return &Service{ledger: ledger, roster: roster}
}

// Mark upserts an entry for (student, date). Unlike QR redemption this is
// idempotent by replacement: re-marking overwrites status and note.
func (s *Service) Mark(ctx context.Context, teacherID, studentID, date, status, note string) (Entry, error) {
	if !ValidDate(date) {
		return Entry{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if !ValidStatus(status) {
		return Entry{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	ok, err := s.roster.StudentExists(ctx, teacherID, studentID)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, ErrUnknownSubject
	}
	return s.ledger.Upsert(ctx, Entry{
		StudentID: studentID,
		TeacherID: teacherID,
		Date:      date,
		Status:    status,
		Note:      note,
	})
}

// List returns ledger entries in a date range.
func (s *Service) List(ctx context.Context, teacherID, from, to string) ([]Entry, error) {
	if from != "" && !ValidDate(from) || to != "" && !ValidDate(to) {
		return nil, fmt.Errorf("%w: dates must be YYYY-MM-DD", ErrInvalidInput)
	}
	return s.ledger.ListRange(ctx, teacherID, from, to)
}

// Stats returns per-student aggregates.
func (s *Service) Stats(ctx context.Context, teacherID string) ([]StudentStats, error) {
	return s.ledger.Stats(ctx, teacherID)
}

// ExportCSV renders the teacher's ledger for a date range as CSV.
func (s *Service) ExportCSV(ctx context.Context, teacherID, from, to string) ([]byte, error) {
	rows, err := s.ledger.Report(ctx, teacherID, from, to)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"date", "roll_no", "name", "status", "note"})
	for _, row := range rows {
		if err := w.Write([]string{row.Date, row.RollNo, row.Name, row.Status, row.Note}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
