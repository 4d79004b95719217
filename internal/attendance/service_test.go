package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartcampus/internal/recognition"
)

func newTestService(t *testing.T, now time.Time, students ...string) *Service {
	t.Helper()
	svc := NewService(newTestRepo(t, students...), time.UTC)
	svc.now = func() time.Time { return now }
	return svc
}

func TestDashboards(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, now, "S001", "S002", "S003")
	ctx := context.Background()
	repo := svc.Repo()
	for _, m := range []recognition.Mark{
		{StudentID: "S001", Date: "2024-02-20", Time: "09:00:00"},
		{StudentID: "S001", Date: "2024-03-05", Time: "09:00:00"},
		{StudentID: "S002", Date: "2024-03-04", Time: "09:00:00"},
	} {
		if _, err := repo.InsertEvent(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	sd, err := svc.StudentDashboard(ctx, "S001")
	if err != nil {
		t.Fatal(err)
	}
	if sd.TodayStatus != StatusPresent || sd.Total != 2 || sd.ThisMonth != 1 || sd.Latest == nil || sd.Latest.Date != "2024-03-05" {
		t.Fatalf("student dashboard = %+v", sd)
	}

	if _, err := svc.StudentDashboard(ctx, "S999"); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("err = %v, want ErrStudentNotFound", err)
	}

	children, err := svc.ParentDashboard(ctx, []string{"S002", "S404"})
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 || children[0].TodayStatus != StatusAbsent || children[0].Total != 1 {
		t.Fatalf("children = %+v", children)
	}

	td, err := svc.TeacherDashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if td.TotalStudents != 3 || td.TotalRecords != 3 || td.PresentToday != 1 || td.AbsentToday != 2 || len(td.Recent) != 3 {
		t.Fatalf("teacher dashboard = %+v", td)
	}
}

func TestOrDash(t *testing.T) {
	if orDash("") != "-" || orDash("ECE") != "ECE" {
		t.Fatal("orDash mismatch")
	}
}
