package attendance

import (
	"context"
	"fmt"
	"time"

	"smartcampus/internal/recognition"
)

// Service builds the attendance views shown on the dashboards.
type Service struct {
	repo *Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a service backed by a repository. Calendar days are
// computed in loc.
func NewService(repo *Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Repo exposes the underlying repository.
func (s *Service) Repo() *Repository { return s.repo }

func (s *Service) today() time.Time { return s.now().In(s.loc) }

// RegisterStudent validates and adds a student to the directory.
func (s *Service) RegisterStudent(ctx context.Context, st Student) (Student, error) {
	if st.StudentID == "" || st.Name == "" {
		return Student{}, fmt.Errorf("student id and name are required")
	}
	return s.repo.CreateStudent(ctx, st)
}

// Student returns a student or ErrStudentNotFound.
func (s *Service) Student(ctx context.Context, studentID string) (Student, error) {
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, ErrStudentNotFound
	}
	return *st, nil
}

// StudentDashboard returns today's status, totals and the latest mark.
func (s *Service) StudentDashboard(ctx context.Context, studentID string) (StudentDashboard, error) {
	st, err := s.Student(ctx, studentID)
	if err != nil {
		return StudentDashboard{}, err
	}
	today := s.today()

	present, err := s.repo.EventExists(ctx, studentID, today.Format(recognition.DateLayout))
	if err != nil {
		return StudentDashboard{}, err
	}
	total, err := s.repo.CountEvents(ctx, studentID, "")
	if err != nil {
		return StudentDashboard{}, err
	}
	month, err := s.repo.CountEvents(ctx, studentID, today.Format("2006-01"))
	if err != nil {
		return StudentDashboard{}, err
	}
	latest, err := s.repo.ListEvents(ctx, EventFilter{StudentID: studentID, Limit: 1})
	if err != nil {
		return StudentDashboard{}, err
	}

	d := StudentDashboard{Student: st, TodayStatus: status(present), Total: total, ThisMonth: month}
	if len(latest) > 0 {
		d.Latest = &latest[0]
	}
	return d, nil
}

// ParentDashboard summarizes each linked child. Unknown ids are skipped.
func (s *Service) ParentDashboard(ctx context.Context, studentIDs []string) ([]ChildSummary, error) {
	date := s.today().Format(recognition.DateLayout)
	rows := make([]ChildSummary, 0, len(studentIDs))
	for _, id := range studentIDs {
		st, err := s.repo.GetStudent(ctx, id)
		if err != nil {
			return nil, err
		}
		if st == nil {
			continue
		}
		total, err := s.repo.CountEvents(ctx, id, "")
		if err != nil {
			return nil, err
		}
		present, err := s.repo.EventExists(ctx, id, date)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ChildSummary{
			StudentID:   st.StudentID,
			Name:        st.Name,
			Branch:      orDash(st.Branch),
			Year:        orDash(st.Year),
			Total:       total,
			TodayStatus: status(present),
		})
	}
	return rows, nil
}

// TeacherDashboard returns campus totals for today and the ten latest marks.
func (s *Service) TeacherDashboard(ctx context.Context) (TeacherDashboard, error) {
	date := s.today().Format(recognition.DateLayout)
	students, err := s.repo.CountStudents(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	records, err := s.repo.CountEvents(ctx, "", "")
	if err != nil {
		return TeacherDashboard{}, err
	}
	present, err := s.repo.CountPresent(ctx, date)
	if err != nil {
		return TeacherDashboard{}, err
	}
	recent, err := s.repo.ListEvents(ctx, EventFilter{Limit: 10})
	if err != nil {
		return TeacherDashboard{}, err
	}
	return TeacherDashboard{
		Date:          date,
		TotalStudents: students,
		TotalRecords:  records,
		PresentToday:  present,
		AbsentToday:   max(students-present, 0),
		Recent:        recent,
	}, nil
}

// History lists a student's marks, newest first.
func (s *Service) History(ctx context.Context, studentID string, limit, offset int) ([]Event, error) {
	return s.repo.ListEvents(ctx, EventFilter{StudentID: studentID, Limit: limit, Offset: offset})
}

// Monthly groups marks per month, for one student or everyone.
func (s *Service) Monthly(ctx context.Context, studentID string) ([]MonthCount, error) {
	return s.repo.MonthlyCounts(ctx, studentID)
}

func status(present bool) string {
	if present {
		return StatusPresent
	}
	return StatusAbsent
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
