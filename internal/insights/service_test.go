package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"classtrack/internal/attendance"
)

type fakeGen struct {
	prompt string
	text   string
	err    error
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

type fakeStats struct {
	stats []attendance.StudentStats
}

func (f *fakeStats) Stats(_ context.Context, _ string) ([]attendance.StudentStats, error) {
	return f.stats, nil
}

func TestAnalyze(t *testing.T) {
	gen := &fakeGen{text: "Class attendance is healthy."}
	svc := NewService(gen, &fakeStats{stats: []attendance.StudentStats{
		{StudentID: "stu-1", RollNo: "17", Name: "Ada Lovelace", Total: 10, Present: 9, Absent: 1, Rate: 90},
		{StudentID: "stu-2", RollNo: "18", Name: "Grace Hopper", Total: 10, Present: 6, Absent: 4, Rate: 60},
	}})

	report, err := svc.Analyze(context.Background(), "teach-1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Insights != "Class attendance is healthy." {
		t.Errorf("insights = %q", report.Insights)
	}
	if report.TotalStudents != 2 {
		t.Errorf("total students = %d, want 2", report.TotalStudents)
	}
	if report.ClassAverage != 75 {
		t.Errorf("class average = %d, want 75", report.ClassAverage)
	}
	for _, want := range []string{"Total Students: 2", "Ada Lovelace", "90% attendance", "Grace Hopper"} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnalyzeNoStudents(t *testing.T) {
	svc := NewService(&fakeGen{}, &fakeStats{})
	if _, err := svc.Analyze(context.Background(), "teach-1"); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestAnalyzeNoEntries(t *testing.T) {
	// Students exist but nothing has been recorded yet.
	svc := NewService(&fakeGen{}, &fakeStats{stats: []attendance.StudentStats{
		{StudentID: "stu-1", Name: "Ada Lovelace"},
	}})
	if _, err := svc.Analyze(context.Background(), "teach-1"); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestAnalyzePropagatesGeneratorError(t *testing.T) {
	boom := errors.New("upstream down")
	svc := NewService(&fakeGen{err: boom}, &fakeStats{stats: []attendance.StudentStats{
		{StudentID: "stu-1", Name: "Ada Lovelace", Total: 1, Present: 1, Rate: 100},
	}})
	if _, err := svc.Analyze(context.Background(), "teach-1"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want generator error", err)
	}
}
