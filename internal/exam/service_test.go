package exam

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	exams map[string]Exam
	marks map[string]Mark // examID|studentID
}

func (f *fakeStore) Insert(_ context.Context, e Exam) (Exam, error) {
	e.ID = "exam-1"
	e.CreatedAt = time.Now()
	f.exams[e.ID] = e
	return e, nil
}

func (f *fakeStore) Get(_ context.Context, teacherID, examID string) (*Exam, error) {
	e, ok := f.exams[examID]
	if !ok || e.TeacherID != teacherID {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (f *fakeStore) List(_ context.Context, teacherID string) ([]Exam, error) {
	var res []Exam
	for _, e := range f.exams {
		if e.TeacherID == teacherID {
			res = append(res, e)
		}
	}
	return res, nil
}

func (f *fakeStore) UpsertMark(_ context.Context, m Mark) (Mark, error) {
	k := m.ExamID + "|" + m.StudentID
	m.ID = k
	f.marks[k] = m
	return m, nil
}

func (f *fakeStore) Marks(_ context.Context, examID string) ([]Mark, error) {
	var res []Mark
	for _, m := range f.marks {
		if m.ExamID == examID {
			res = append(res, m)
		}
	}
	return res, nil
}

type fakeRoster struct{ owned map[string]bool }

func (f *fakeRoster) StudentExists(_ context.Context, _, studentID string) (bool, error) {
	return f.owned[studentID], nil
}

func newTestService() (*Service, *fakeStore) {
	store := &fakeStore{exams: make(map[string]Exam), marks: make(map[string]Mark)}
	return NewService(store, &fakeRoster{owned: map[string]bool{"stu-1": true}}), store
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "teach-1", "", "", "2026-03-02", 100); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty title err = %v", err)
	}
	if _, err := svc.Create(ctx, "teach-1", "Midterm", "", "soon", 100); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad date err = %v", err)
	}
	if _, err := svc.Create(ctx, "teach-1", "Midterm", "", "2026-03-02", 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero max score err = %v", err)
	}
}

func TestRecordMark(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	e, err := svc.Create(ctx, "teach-1", "Midterm", "Math", "2026-03-02", 50)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m, err := svc.RecordMark(ctx, "teach-1", e.ID, "stu-1", 42)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if m.Grade != "B" {
		t.Errorf("grade = %q, want B for 84%%", m.Grade)
	}

	// Re-submitting overwrites rather than duplicating.
	if _, err := svc.RecordMark(ctx, "teach-1", e.ID, "stu-1", 48); err != nil {
		t.Fatalf("re-record: %v", err)
	}
	if len(store.marks) != 1 {
		t.Fatalf("got %d marks, want 1", len(store.marks))
	}
	if store.marks[e.ID+"|stu-1"].Grade != "A" {
		t.Errorf("grade = %q, want A after overwrite", store.marks[e.ID+"|stu-1"].Grade)
	}

	if _, err := svc.RecordMark(ctx, "teach-1", e.ID, "stu-1", 60); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("over-max err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.RecordMark(ctx, "teach-1", e.ID, "stranger", 10); !errors.Is(err, ErrUnknownSubject) {
		t.Errorf("foreign student err = %v, want ErrUnknownSubject", err)
	}
	if _, err := svc.RecordMark(ctx, "teach-2", e.ID, "stu-1", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign exam err = %v, want ErrNotFound", err)
	}
}

func TestLetterGrade(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{95, "A"}, {90, "A"}, {85, "B"}, {72, "C"}, {61, "D"}, {10, "F"},
	}
	for _, tc := range cases {
		if got := LetterGrade(tc.score, 100); got != tc.want {
			t.Errorf("LetterGrade(%g, 100) = %q, want %q", tc.score, got, tc.want)
		}
	}
	if LetterGrade(50, 0) != "" {
		t.Error("zero max score should yield empty grade")
	}
}
