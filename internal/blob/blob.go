package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
	"unicode"
)

const (
	BackendLocal      = "local"
	BackendMinIO      = "minio"
	BackendCloudinary = "cloudinary"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrRemoteOnly = errors.New("object is served from its remote url")
	ErrBadKey     = errors.New("invalid object key")
)

// Object describes where an upload ended up. URL is set only when the backend
// serves the object itself.
type Object struct {
	Backend string
	Key     string
	URL     string
}

// Store is an object store.
type Store interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// SanitizeFileName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore. Returns "" when nothing usable is left.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" || out == "." {
		return ""
	}
	return out
}

// ObjectKey builds "<folder>/<UTC timestamp>_<name>" so repeated uploads of
// the same file never collide on the same second.
func ObjectKey(folder, name string, now time.Time) string {
	return folder + "/" + now.UTC().Format("20060102150405") + "_" + name
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrBadKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrBadKey
		}
	}
	return nil
}
