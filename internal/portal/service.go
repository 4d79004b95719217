package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"smartcampus/internal/blob"
)

// Storage is the object store resources are written to.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (blob.Object, error)
	OpenFrom(ctx context.Context, backend, key string) (io.ReadCloser, error)
}

// Upload is an incoming resource file.
type Upload struct {
	Kind        string
	Subject     string
	Topic       string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service runs the announcement and resource use cases.
type Service struct {
	repo    *Repository
	storage Storage
	loc     *time.Location
	log     *zap.Logger
	now     func() time.Time
	pick    func(n int) int
}

func NewService(repo *Repository, storage Storage, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, storage: storage, loc: loc, log: log, now: time.Now, pick: rand.IntN}
}

func (s *Service) Repo() *Repository { return s.repo }

// Today is the current date in the campus time zone.
func (s *Service) Today() string { return s.now().In(s.loc).Format("2006-01-02") }

// Announce posts a notice. The date defaults to today.
func (s *Service) Announce(ctx context.Context, a Announcement) (Announcement, error) {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return Announcement{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	now := s.now()
	if a.Date == "" {
		a.Date = s.Today()
	} else if _, err := time.Parse("2006-01-02", a.Date); err != nil {
		return Announcement{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
	}
	a.CreatedAt = now.UTC()
	return s.repo.CreateAnnouncement(ctx, a)
}

func (s *Service) Announcements(ctx context.Context) ([]Announcement, error) {
	return s.repo.ListAnnouncements(ctx, 100)
}

// Upload stores the file and records it. Notes without a subject are filed
// under "Notes"; a syllabus has no topic.
func (s *Service) Upload(ctx context.Context, u Upload) (Resource, error) {
	if u.Kind != KindNotes && u.Kind != KindSyllabus {
		return Resource{}, ErrInvalidKind
	}
	name := blob.SanitizeFileName(u.FileName)
	if name == "" || u.Body == nil {
		return Resource{}, ErrInvalidFile
	}
	subject := strings.TrimSpace(u.Subject)
	topic := strings.TrimSpace(u.Topic)
	switch u.Kind {
	case KindNotes:
		if subject == "" {
			subject = "Notes"
		}
	case KindSyllabus:
		if subject == "" {
			return Resource{}, fmt.Errorf("%w: syllabus subject is required", ErrInvalidFile)
		}
		topic = ""
	}
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	now := s.now()
	obj, err := s.storage.Put(ctx, blob.ObjectKey(u.Kind, name, now), u.Body, u.Size, contentType)
	if err != nil {
		return Resource{}, fmt.Errorf("store file: %w", err)
	}
	res, err := s.repo.CreateResource(ctx, Resource{
		Kind:        u.Kind,
		Subject:     subject,
		Topic:       topic,
		FileName:    name,
		Backend:     obj.Backend,
		StoragePath: obj.Key,
		FileURL:     obj.URL,
		UploadedAt:  now.UTC(),
	})
	if err != nil {
		return Resource{}, err
	}
	s.log.Info("resource uploaded",
		zap.Int64("id", res.ID), zap.String("kind", res.Kind), zap.String("backend", res.Backend))
	return res, nil
}

func (s *Service) Resources(ctx context.Context, kind string) ([]Resource, error) {
	if kind != "" && kind != KindNotes && kind != KindSyllabus {
		return nil, ErrInvalidKind
	}
	return s.repo.ListResources(ctx, kind)
}

// Open returns the resource and, when it is not served from a remote URL, a
// reader over its content.
func (s *Service) Open(ctx context.Context, id int64) (Resource, io.ReadCloser, error) {
	res, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return Resource{}, nil, err
	}
	if res.FileURL != "" {
		return res, nil, nil
	}
	rc, err := s.storage.OpenFrom(ctx, res.Backend, res.StoragePath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrBadKey) {
			return Resource{}, nil, ErrNotFound
		}
		return Resource{}, nil, err
	}
	return res, rc, nil
}

// Suggestion picks a study activity.
func (s *Service) Suggestion() string {
	return Suggestions[s.pick(len(Suggestions))]
}
