package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smartcampus/internal/attendance"
	"smartcampus/internal/auth"
	"smartcampus/internal/blob"
	"smartcampus/internal/portal"
	"smartcampus/internal/store/storetest"
)

func newSeeder(t *testing.T) *Seeder {
	t.Helper()
	db := storetest.OpenSQLite(t)
	students := attendance.NewRepository(db.Client)
	local, err := blob.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tokens := auth.TokenConfig{Issuer: "campus-test", SigningKey: "k", AccessTTL: time.Minute, RefreshTTL: time.Hour}
	return &Seeder{
		Auth:     auth.NewService(auth.NewRepository(db.Client), auth.NewHasherWithConfig(auth.LightConfig()), students, tokens, nil),
		Students: students,
		Portal:   portal.NewService(portal.NewRepository(db.Client), blob.NewFallback(nil, local, nil), time.UTC, nil),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, StudentFile), `{
		"S2024001": {"name": "Asha", "branch": "CSE", "year": "2"},
		"S2024002": {"name": "Ravi"}
	}`)
	writeFile(t, filepath.Join(dir, AuthFile), `{
		"admins": {"root": {"password": "rootpw", "name": "Root"}},
		"teachers": {"t1": {"password": "t1pass"}},
		"students": {"S2024002": {"password": "custom"}},
		"parents": {
			"mom": {"password": "mom123", "students": ["S2024001", "S9999"]},
			"ghost": {"password": "ghost1", "students": ["S9999"]}
		}
	}`)
	writeFile(t, filepath.Join(dir, AnnouncementFile), `[
		{"title": "Exams", "description": "Week 10", "date": "2026-03-01"},
		{"title": "Holiday"}
	]`)
	writeFile(t, filepath.Join(dir, SyllabusFile), `{"Maths": "maths.pdf", "Physics": "missing.pdf"}`)
	writeFile(t, filepath.Join(dir, "uploads", "maths.pdf"), "%PDF maths")

	s := newSeeder(t)
	ctx := context.Background()

	rep, err := s.Run(ctx, dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := Report{Students: 2, Users: 5, Announcements: 2, Resources: 1}
	if rep != want {
		t.Fatalf("first run = %v, want %v", rep, want)
	}

	rep, err = s.Run(ctx, dir)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if rep != (Report{}) {
		t.Fatalf("second run = %v, want nothing created", rep)
	}

	for _, tc := range []struct{ user, pass, role string }{
		{"root", "rootpw", ""},
		{"t1", "t1pass", ""},
		{"S2024001", "4001", ""},
		{"S2024002", "custom", ""},
		{"mom", "mom123", auth.RoleParent},
	} {
		if _, err := s.Auth.Login(ctx, tc.user, tc.pass, tc.role); err != nil {
			t.Errorf("Login(%s) error = %v", tc.user, err)
		}
	}
	if _, err := s.Auth.Login(ctx, "admin", "0010", ""); err == nil {
		t.Error("default admin created although auth file exists")
	}
	if _, err := s.Auth.Login(ctx, "ghost", "ghost1", ""); err == nil {
		t.Error("parent without known students was created")
	}

	st, err := s.Students.GetStudent(ctx, "S2024002")
	if err != nil || st == nil || st.Name != "Ravi" {
		t.Fatalf("student = %+v, %v", st, err)
	}
	res, err := s.Portal.Resources(ctx, portal.KindSyllabus)
	if err != nil || len(res) != 1 || res[0].Subject != "Maths" {
		t.Fatalf("syllabus = %+v, %v", res, err)
	}
}

func TestRunDefaults(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()

	rep, err := s.Run(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep != (Report{Users: 2}) {
		t.Fatalf("report = %v", rep)
	}
	if _, err := s.Auth.Login(ctx, "admin", "0010", ""); err != nil {
		t.Errorf("default admin login: %v", err)
	}
	if _, err := s.Auth.Login(ctx, "teacher1", "teach123", ""); err != nil {
		t.Errorf("default teacher login: %v", err)
	}
	if len(DefaultAuthUsers.Admins) != 1 {
		t.Errorf("DefaultAuthUsers mutated: %v", DefaultAuthUsers.Admins)
	}
}

func TestRunRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, StudentFile), `[not json`)
	if _, err := newSeeder(t).Run(context.Background(), dir); err == nil {
		t.Fatal("expected parse error")
	}
}
