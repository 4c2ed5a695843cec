package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classtrack/internal/attendance"
)

// Generator produces narrative text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Stats supplies per-student attendance aggregates.
type Stats interface {
	Stats(ctx context.Context, teacherID string) ([]attendance.StudentStats, error)
}

// ErrNoData is returned when there is nothing to analyze yet.
var ErrNoData = errors.New("no attendance data to analyze")

// Report is the insights response: narrative plus the numbers behind it.
type Report struct {
	Insights      string                    `json:"insights"`
	TotalStudents int                       `json:"total_students"`
	ClassAverage  int                       `json:"class_average"`
	StudentStats  []attendance.StudentStats `json:"student_stats"`
}

// Service builds the analyst prompt from ledger stats and asks the
// generator for a narrative summary.
type Service struct {
	gen   Generator
	stats Stats
}

// NewService creates a service.
func NewService(gen Generator, stats Stats) *Service {
	return &Service{gen: gen, stats: stats}
}

// Analyze returns AI-generated attendance insights for the teacher's class.
func (s *Service) Analyze(ctx context.Context, teacherID string) (Report, error) {
	stats, err := s.stats.Stats(ctx, teacherID)
	if err != nil {
		return Report{}, err
	}
	if len(stats) == 0 {
		return Report{}, ErrNoData
	}
	recorded := 0
	sum := 0
	for _, st := range stats {
		if st.Total > 0 {
			recorded++
		}
		sum += st.Rate
	}
	if recorded == 0 {
		return Report{}, ErrNoData
	}
	avg := sum / len(stats)

	text, err := s.gen.Generate(ctx, buildPrompt(stats, avg))
	if err != nil {
		return Report{}, err
	}
	return Report{
		Insights:      text,
		TotalStudents: len(stats),
		ClassAverage:  avg,
		StudentStats:  stats,
	}, nil
}

func buildPrompt(stats []attendance.StudentStats, classAverage int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an educational attendance analyst. Analyze the following classroom attendance data and provide actionable insights.\n\n")
	fmt.Fprintf(&b, "Class Statistics:\n- Total Students: %d\n- Class Average Attendance Rate: %d%%\n\n", len(stats), classAverage)
	b.WriteString("Individual Student Data:\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "- %s (ID: %s): %d%% attendance (%d present, %d absent, %d late, %d excused out of %d days)\n",
			s.Name, s.RollNo, s.Rate, s.Present, s.Absent, s.Late, s.Excused, s.Total)
	}
	b.WriteString(`
Please provide:
1. Overall class attendance analysis (2-3 sentences)
2. Students who need attention (identify students with attendance rates below 80% or concerning patterns)
3. Positive trends (students with excellent attendance or improvement)
4. Actionable recommendations for the teacher (3-4 specific suggestions)

Format your response in clear sections with bullet points where appropriate. Be concise and practical.`)
	return b.String()
}
