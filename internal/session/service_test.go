package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"classtrack/internal/attendance"
)

// fakeStore keeps sessions in memory and enforces token uniqueness the way
// the database does.
type fakeStore struct {
	mu       sync.Mutex
	sessions []*Session
	seq      int
	// insertErrs is drained before real inserts, to simulate conflicts.
	insertErrs []error
}

func (f *fakeStore) Insert(_ context.Context, s Session) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return Session{}, err
		}
	}
	for _, existing := range f.sessions {
		if existing.Token == s.Token {
			return Session{}, ErrTokenConflict
		}
	}
	f.seq++
	s.ID = fmt.Sprintf("sess-%d", f.seq)
	s.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)
	cp := s
	f.sessions = append(f.sessions, &cp)
	return s, nil
}

func (f *fakeStore) GetByToken(_ context.Context, token string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Token == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Get(_ context.Context, teacherID, id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id && s.TeacherID == teacherID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SetInactive(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			s.Active = false
		}
	}
	return nil
}

func (f *fakeStore) List(_ context.Context, teacherID string) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []Session
	for i := len(f.sessions) - 1; i >= 0; i-- {
		if f.sessions[i].TeacherID == teacherID {
			res = append(res, *f.sessions[i])
		}
	}
	return res, nil
}

type fakeRoster struct {
	students map[string]string // studentID -> teacherID
}

func (f *fakeRoster) StudentExists(_ context.Context, teacherID, studentID string) (bool, error) {
	return f.students[studentID] == teacherID, nil
}

// fakeLedger models the database unique constraint: the check-and-insert
// under one mutex is the moral equivalent of the 23505 translation.
type fakeLedger struct {
	mu      sync.Mutex
	entries map[string]attendance.Entry // teacher|student|date
}

func key(teacherID, studentID, date string) string {
	return teacherID + "|" + studentID + "|" + date
}

func (f *fakeLedger) Get(_ context.Context, teacherID, studentID, date string) (*attendance.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[key(teacherID, studentID, date)]; ok {
		return &e, nil
	}
	return nil, nil
}

func (f *fakeLedger) Insert(_ context.Context, e attendance.Entry) (attendance.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(e.TeacherID, e.StudentID, e.Date)
	if _, ok := f.entries[k]; ok {
		return attendance.Entry{}, attendance.ErrDuplicate
	}
	e.ID = k
	f.entries[k] = e
	return e, nil
}

func newTestService() (*Service, *fakeStore, *fakeLedger) {
	store := &fakeStore{}
	ledger := &fakeLedger{entries: make(map[string]attendance.Entry)}
	rost := &fakeRoster{students: map[string]string{
		"stu-1": "teach-1",
		"stu-2": "teach-1",
		"stu-9": "teach-2",
	}}
	return NewService(store, rost, ledger), store, ledger
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name     string
		label    string
		date     string
		duration int
	}{
		{"empty label", "", "2026-03-02", 15},
		{"zero duration", "Morning", "2026-03-02", 0},
		{"negative duration", "Morning", "2026-03-02", -5},
		{"bad date", "Morning", "yesterday", 15},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, "teach-1", tc.label, tc.date, tc.duration)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestCreateWindow(t *testing.T) {
	svc, _, _ := newTestService()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	sess, err := svc.Create(context.Background(), "teach-1", "Morning", "2026-03-02", 15)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sess.Active {
		t.Error("new session should be active")
	}
	if !sess.WindowEnd.After(sess.WindowStart) {
		t.Error("window end must be after window start")
	}
	if got := sess.WindowEnd.Sub(sess.WindowStart); got != 15*time.Minute {
		t.Errorf("window = %v, want 15m", got)
	}
	if len(sess.Token) != 32 {
		t.Errorf("token length = %d, want 32", len(sess.Token))
	}
}

func TestCreateRetriesOnTokenConflict(t *testing.T) {
	svc, store, _ := newTestService()
	store.insertErrs = []error{ErrTokenConflict, ErrTokenConflict}

	sess, err := svc.Create(context.Background(), "teach-1", "Morning", "2026-03-02", 15)
	if err != nil {
		t.Fatalf("create should succeed after retries: %v", err)
	}
	if sess.Token == "" {
		t.Error("expected a token on the persisted session")
	}

	store.insertErrs = []error{ErrTokenConflict, ErrTokenConflict, ErrTokenConflict}
	if _, err := svc.Create(context.Background(), "teach-1", "Morning", "2026-03-02", 15); !errors.Is(err, ErrTokenConflict) {
		t.Errorf("err = %v, want ErrTokenConflict after exhausting retries", err)
	}
}

func TestRedeemSuccess(t *testing.T) {
	svc, _, ledger := newTestService()
	ctx := context.Background()
	sess, err := svc.Create(ctx, "teach-1", "Morning", "2026-03-02", 15)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	entry, err := svc.Redeem(ctx, sess.Token, "stu-1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if entry.Status != attendance.StatusPresent {
		t.Errorf("status = %q, want present", entry.Status)
	}
	if entry.Date != "2026-03-02" {
		t.Errorf("date = %q, want session date", entry.Date)
	}
	if entry.Note != "Marked via QR code: Morning" {
		t.Errorf("note = %q, want session label provenance", entry.Note)
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(ledger.entries))
	}
}

func TestRedeemTwiceIsAlreadyMarked(t *testing.T) {
	svc, _, ledger := newTestService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "teach-1", "Morning", "2026-03-02", 15)

	if _, err := svc.Redeem(ctx, sess.Token, "stu-1"); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := svc.Redeem(ctx, sess.Token, "stu-1"); !errors.Is(err, ErrAlreadyMarked) {
		t.Fatalf("second redeem err = %v, want ErrAlreadyMarked", err)
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(ledger.entries))
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Redeem(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef", "stu-1"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
}

func TestRedeemDeactivatedLooksLikeInvalidCode(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "teach-1", "Morning", "2026-03-02", 15)

	if err := svc.Deactivate(ctx, "teach-1", sess.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Redeem(ctx, sess.Token, "stu-1"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode (must not reveal deactivation)", err)
	}
}

func TestRedeemExpiredFlipsSessionInactive(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	sess, _ := svc.Create(ctx, "teach-1", "Morning", "2026-03-02", 15)

	now = now.Add(16 * time.Minute)
	if _, err := svc.Redeem(ctx, sess.Token, "stu-1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}

	stored, _ := store.GetByToken(ctx, sess.Token)
	if stored.Active {
		t.Error("lazy expiry should have flipped the session inactive")
	}

	// Later scans short-circuit on the inactive flag.
	if _, err := svc.Redeem(ctx, sess.Token, "stu-1"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("post-expiry err = %v, want ErrInvalidCode", err)
	}
}

func TestRedeemUnknownStudent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "teach-1", "Morning", "2026-03-02", 15)

	// stu-9 belongs to another teacher: resolution happens against the
	// session owner's roster, not any claimed owner.
	if _, err := svc.Redeem(ctx, sess.Token, "stu-9"); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("err = %v, want ErrUnknownSubject", err)
	}
	if _, err := svc.Redeem(ctx, sess.Token, "nobody"); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("err = %v, want ErrUnknownSubject", err)
	}
}

func TestDeactivateIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "teach-1", "Morning", "2026-03-02", 15)

	for i := 0; i < 2; i++ {
		if err := svc.Deactivate(ctx, "teach-1", sess.ID); err != nil {
			t.Fatalf("deactivate #%d: %v", i+1, err)
		}
	}
	if err := svc.Deactivate(ctx, "teach-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := svc.Deactivate(ctx, "teach-2", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirstWithExpiry(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first, _ := svc.Create(ctx, "teach-1", "First", "2026-03-02", 5)
	second, _ := svc.Create(ctx, "teach-1", "Second", "2026-03-02", 60)

	now = now.Add(10 * time.Minute)
	sessions, err := svc.List(ctx, "teach-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Error("sessions should be listed most recently created first")
	}
	if !sessions[1].Expired {
		t.Error("first session's window has passed, Expired should be true")
	}
	if sessions[0].Expired {
		t.Error("second session is still open, Expired should be false")
	}
	// The stored flag is untouched by listing: expiry there is lazy.
	if !sessions[1].Active {
		t.Error("stored active flag should be untouched by List")
	}
}

func TestConcurrentRedemptionSingleWinner(t *testing.T) {
	svc, _, ledger := newTestService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "teach-1", "Morning", "2026-03-02", 15)

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(ctx, sess.Token, "stu-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, already, other int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyMarked):
			already++
		default:
			other++
		}
	}
	if ok != 1 || already != attempts-1 || other != 0 {
		t.Fatalf("got %d ok, %d already_marked, %d other; want 1/%d/0", ok, already, other, attempts-1)
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("ledger has %d entries, want exactly 1", len(ledger.entries))
	}
}

func TestKind(t *testing.T) {
	cases := map[error]string{
		ErrInvalidCode:    "invalid_code",
		ErrExpired:        "expired",
		ErrUnknownSubject: "unknown_subject",
		ErrAlreadyMarked:  "already_marked",
		ErrInvalidInput:   "invalid_input",
		context.Canceled:  "",
	}
	for err, want := range cases {
		if got := Kind(err); got != want {
			t.Errorf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
}
