package app

import (
	"context"
	"path/filepath"
	"testing"

	"smartcampus/internal/config"
	"smartcampus/internal/queue"
)

func testConfig(t *testing.T) config.App {
	t.Helper()
	dir := t.TempDir()
	return config.App{
		DBDriver:             "sqlite3",
		DatabaseURL:          "file:" + filepath.Join(dir, "campus.db"),
		AutoMigrate:          true,
		JWTSigningKey:        "k",
		RecognitionThreshold: 80,
		Timezone:             "UTC",
		FaceSkip:             true,
		QueueBackend:         QueueMemory,
		RateLimitBackend:     "memory",
		StorageBackend:       "local",
		UploadDir:            filepath.Join(dir, "uploads"),
	}
}

func TestOpenMemoryStack(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig(t), nil)
	if err != nil {
		t.Skipf("sqlite unavailable, skipping: %v", err)
	}
	defer a.Close()

	if _, ok := a.Queue.(*queue.InMemory); !ok {
		t.Fatalf("queue = %T, want in-memory", a.Queue)
	}
	if a.Redis != nil {
		t.Fatal("redis opened for an all-memory config")
	}
	if a.Relay() != nil {
		t.Fatal("relay enabled without an external queue")
	}
	if a.Camera() != nil {
		t.Fatal("camera configured without a snapshot url")
	}

	checks := a.Checks()
	if len(checks) != 2 {
		t.Fatalf("checks = %d, want db and face", len(checks))
	}
	for _, c := range checks {
		if err := c.Fn(ctx); err != nil {
			t.Errorf("check %s: %v", c.Name, err)
		}
	}

	versions, err := a.DB.MigrationsApplied(ctx)
	if err != nil || len(versions) == 0 {
		t.Fatalf("migrations = %v, %v", versions, err)
	}
}

func TestOpenRejectsBadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "mysql"
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error")
	}
}
