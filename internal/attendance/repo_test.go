package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartcampus/internal/recognition"
	"smartcampus/internal/store/storetest"
)

func newTestRepo(t *testing.T, students ...string) *Repository {
	t.Helper()
	repo := NewRepository(storetest.OpenSQLite(t).Client)
	for _, id := range students {
		if _, err := repo.CreateStudent(context.Background(), Student{StudentID: id, Name: "Student " + id, Branch: "CSE", Year: "2"}); err != nil {
			t.Fatalf("CreateStudent(%s): %v", id, err)
		}
	}
	return repo
}

func TestCreateStudentDuplicate(t *testing.T) {
	repo := newTestRepo(t, "S001")
	_, err := repo.CreateStudent(context.Background(), Student{StudentID: "S001", Name: "Again"})
	if !errors.Is(err, ErrStudentExists) {
		t.Fatalf("err = %v, want ErrStudentExists", err)
	}
}

func TestGetStudentMissing(t *testing.T) {
	repo := newTestRepo(t)
	st, err := repo.GetStudent(context.Background(), "nope")
	if err != nil || st != nil {
		t.Fatalf("GetStudent() = %v, %v; want nil, nil", st, err)
	}
}

func TestDeciderWithRepository(t *testing.T) {
	repo := newTestRepo(t, "S001", "S002")
	ctx := context.Background()
	d := recognition.NewDecider(repo, repo, recognition.WithLocation(time.UTC))
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	results := []recognition.Result{{IdentityKey: "S001", Confidence: 45}, {IdentityKey: "S002", Confidence: 90}}
	first, err := d.Decide(ctx, results, now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Decide(ctx, results, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if first.Outcome != recognition.OutcomeMarked || second.Outcome != recognition.OutcomeAlreadyMarked {
		t.Fatalf("outcomes = %s, %s", first.Outcome, second.Outcome)
	}

	n, err := repo.CountEvents(ctx, "S001", "")
	if err != nil || n != 1 {
		t.Fatalf("CountEvents = %d, %v; want 1", n, err)
	}
	if n, _ := repo.CountEvents(ctx, "S002", ""); n != 0 {
		t.Fatalf("S002 events = %d, want 0", n)
	}
}

func TestInsertEventConflict(t *testing.T) {
	repo := newTestRepo(t, "S001")
	ctx := context.Background()
	m := recognition.Mark{StudentID: "S001", Date: "2024-03-01", Time: "09:00:00", Confidence: 10}

	ok, err := repo.InsertEvent(ctx, m)
	if err != nil || !ok {
		t.Fatalf("first insert = %v, %v", ok, err)
	}
	ok, err = repo.InsertEvent(ctx, m)
	if err != nil || ok {
		t.Fatalf("second insert = %v, %v; want false, nil", ok, err)
	}
}

func TestListAndMonthly(t *testing.T) {
	repo := newTestRepo(t, "S001", "S002")
	ctx := context.Background()
	for _, m := range []recognition.Mark{
		{StudentID: "S001", Date: "2024-02-28", Time: "09:00:00"},
		{StudentID: "S001", Date: "2024-03-01", Time: "09:00:00"},
		{StudentID: "S002", Date: "2024-03-01", Time: "09:05:00"},
		{StudentID: "S001", Date: "2024-03-04", Time: "08:55:00"},
	} {
		if _, err := repo.InsertEvent(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	events, err := repo.ListEvents(ctx, EventFilter{StudentID: "S001"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 || events[0].Date != "2024-03-04" || events[0].Name != "Student S001" {
		t.Fatalf("events = %+v", events)
	}

	monthly, err := repo.MonthlyCounts(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	want := []MonthCount{{Month: "2024-02", Count: 1}, {Month: "2024-03", Count: 3}}
	if len(monthly) != len(want) {
		t.Fatalf("monthly = %+v", monthly)
	}
	for i := range want {
		if monthly[i] != want[i] {
			t.Errorf("monthly[%d] = %+v, want %+v", i, monthly[i], want[i])
		}
	}

	present, err := repo.CountPresent(ctx, "2024-03-01")
	if err != nil || present != 2 {
		t.Fatalf("CountPresent = %d, %v; want 2", present, err)
	}
	march, err := repo.CountEvents(ctx, "S001", "2024-03")
	if err != nil || march != 2 {
		t.Fatalf("CountEvents(March) = %d, %v; want 2", march, err)
	}
}

func TestJobs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	job, err := repo.CreateJob(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CompleteJob(ctx, job.ID, recognition.Decision{Outcome: recognition.OutcomeMarked, IdentityKey: "S001", Confidence: 42}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != JobProcessed || got.Outcome != "marked" || got.Confidence == nil || *got.Confidence != 42 {
		t.Fatalf("job = %+v", got)
	}

	if _, err := repo.GetJob(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
	if err := repo.FailJob(ctx, "missing", "x"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("FailJob err = %v, want ErrJobNotFound", err)
	}
}
