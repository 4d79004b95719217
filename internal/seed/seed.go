// Package seed loads the initial campus directory from JSON files: students,
// logins, announcements and syllabus PDFs. Running it twice changes nothing.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"smartcampus/internal/attendance"
	"smartcampus/internal/auth"
	"smartcampus/internal/blob"
	"smartcampus/internal/logger"
	"smartcampus/internal/portal"
)

const (
	StudentFile      = "student_data.json"
	AuthFile         = "auth_users.json"
	AnnouncementFile = "announcements.json"
	SyllabusFile     = "syllabus.json"
)

// StudentInfo is one entry of student_data.json, keyed by student id.
type StudentInfo struct {
	Name   string `json:"name"`
	Branch string `json:"branch"`
	Year   string `json:"year"`
}

// Account is a login entry of auth_users.json.
type Account struct {
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Students []string `json:"students,omitempty"`
}

// AuthUsers is the layout of auth_users.json. Each map is keyed by username;
// student entries override the default password of a student id.
type AuthUsers struct {
	Admins   map[string]Account `json:"admins"`
	Teachers map[string]Account `json:"teachers"`
	Parents  map[string]Account `json:"parents"`
	Students map[string]Account `json:"students"`
}

// DefaultAuthUsers is used when no auth file exists.
var DefaultAuthUsers = AuthUsers{
	Admins:   map[string]Account{"admin": {Password: "0010", Name: "System Admin"}},
	Teachers: map[string]Account{"teacher1": {Password: "teach123", Name: "Default Teacher"}},
}

// Report counts what a run created.
type Report struct {
	Students      int
	Users         int
	Announcements int
	Resources     int
}

func (r Report) String() string {
	return fmt.Sprintf("students=%d users=%d announcements=%d resources=%d",
		r.Students, r.Users, r.Announcements, r.Resources)
}

// Seeder writes seed data through the domain services.
type Seeder struct {
	Auth     *auth.Service
	Students *attendance.Repository
	Portal   *portal.Service
	Log      *zap.Logger
}

// Run loads every seed file found in dir. Missing files are skipped.
func (s *Seeder) Run(ctx context.Context, dir string) (Report, error) {
	log := logger.OrNop(s.Log)
	var rep Report

	students := map[string]StudentInfo{}
	if _, err := readJSON(filepath.Join(dir, StudentFile), &students); err != nil {
		return rep, err
	}
	for _, id := range sortedKeys(students) {
		info := students[id]
		if info.Name == "" {
			info.Name = "Student"
		}
		existing, err := s.Students.GetStudent(ctx, id)
		if err != nil {
			return rep, err
		}
		if err := s.Students.UpsertStudent(ctx, attendance.Student{StudentID: id, Name: info.Name, Branch: info.Branch, Year: info.Year}); err != nil {
			return rep, fmt.Errorf("student %s: %w", id, err)
		}
		if existing == nil {
			rep.Students++
		}
	}

	var users AuthUsers
	found, err := readJSON(filepath.Join(dir, AuthFile), &users)
	if err != nil {
		return rep, err
	}
	if !found {
		users = DefaultAuthUsers
	}
	ensure := func(in auth.NewUser) error {
		_, created, err := s.Auth.EnsureUser(ctx, in)
		if err != nil {
			return fmt.Errorf("user %s (%s): %w", in.Username, in.Role, err)
		}
		if created {
			rep.Users++
		}
		return nil
	}
	for _, name := range sortedKeys(users.Admins) {
		a := users.Admins[name]
		if err := ensure(auth.NewUser{Username: name, Password: a.Password, Role: auth.RoleAdmin, Name: a.Name}); err != nil {
			return rep, err
		}
	}
	for _, name := range sortedKeys(users.Teachers) {
		a := users.Teachers[name]
		if err := ensure(auth.NewUser{Username: name, Password: a.Password, Role: auth.RoleTeacher, Name: a.Name}); err != nil {
			return rep, err
		}
	}
	for _, id := range sortedKeys(students) {
		a := users.Students[id]
		if a.Password == "" {
			a.Password = auth.DefaultStudentPassword(id)
		}
		if a.Name == "" {
			a.Name = students[id].Name
		}
		if err := ensure(auth.NewUser{Username: id, Password: a.Password, Role: auth.RoleStudent, Name: a.Name, StudentIDs: []string{id}}); err != nil {
			return rep, err
		}
	}
	for _, name := range sortedKeys(users.Parents) {
		a := users.Parents[name]
		linked, err := s.knownStudents(ctx, a.Students)
		if err != nil {
			return rep, err
		}
		if len(linked) == 0 {
			log.Warn("parent skipped, no known students", zap.String("username", name))
			continue
		}
		if err := ensure(auth.NewUser{Username: name, Password: a.Password, Role: auth.RoleParent, Name: a.Name, StudentIDs: linked}); err != nil {
			return rep, err
		}
	}

	n, err := s.announcements(ctx, dir)
	rep.Announcements = n
	if err != nil {
		return rep, err
	}
	n, err = s.syllabus(ctx, dir)
	rep.Resources = n
	if err != nil {
		return rep, err
	}

	log.Info("seed complete",
		zap.Int("students", rep.Students),
		zap.Int("users", rep.Users),
		zap.Int("announcements", rep.Announcements),
		zap.Int("resources", rep.Resources),
	)
	return rep, nil
}

func (s *Seeder) knownStudents(ctx context.Context, ids []string) ([]string, error) {
	known := make([]string, 0, len(ids))
	for _, id := range ids {
		ok, err := s.Students.IdentityExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			known = append(known, id)
		}
	}
	return known, nil
}

func (s *Seeder) announcements(ctx context.Context, dir string) (int, error) {
	var items []portal.Announcement
	if _, err := readJSON(filepath.Join(dir, AnnouncementFile), &items); err != nil {
		return 0, err
	}
	created := 0
	for _, a := range items {
		if strings.TrimSpace(a.Title) == "" {
			a.Title = "Untitled"
		}
		if a.Date == "" {
			a.Date = s.Portal.Today()
		}
		exists, err := s.Portal.Repo().AnnouncementExists(ctx, strings.TrimSpace(a.Title), a.Date)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if _, err := s.Portal.Announce(ctx, a); err != nil {
			return created, fmt.Errorf("announcement %q: %w", a.Title, err)
		}
		created++
	}
	return created, nil
}

// syllabus uploads each subject's PDF from dir/uploads. Entries whose file is
// missing are skipped.
func (s *Seeder) syllabus(ctx context.Context, dir string) (int, error) {
	subjects := map[string]string{}
	if _, err := readJSON(filepath.Join(dir, SyllabusFile), &subjects); err != nil {
		return 0, err
	}
	created := 0
	for _, subject := range sortedKeys(subjects) {
		pdf := subjects[subject]
		exists, err := s.Portal.Repo().ResourceExists(ctx, portal.KindSyllabus, blob.SanitizeFileName(pdf))
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		f, err := os.Open(filepath.Join(dir, "uploads", pdf))
		if errors.Is(err, fs.ErrNotExist) {
			logger.OrNop(s.Log).Warn("syllabus file missing", zap.String("subject", subject), zap.String("file", pdf))
			continue
		}
		if err != nil {
			return created, err
		}
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return created, err
		}
		_, err = s.Portal.Upload(ctx, portal.Upload{
			Kind:     portal.KindSyllabus,
			Subject:  subject,
			FileName: pdf,
			Size:     st.Size(),
			Body:     f,
		})
		f.Close()
		if err != nil {
			return created, fmt.Errorf("syllabus %s: %w", subject, err)
		}
		created++
	}
	return created, nil
}

// readJSON decodes path into v and reports whether the file existed.
func readJSON(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
