package httpmiddleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestTokenBucket(t *testing.T) {
	l := NewSimpleTokenBucket(2, 60)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		if got, _ := l.Allow(ctx, "ip"); got != want {
			t.Fatalf("request %d allowed = %v, want %v", i, got, want)
		}
	}
	if got, _ := l.Allow(ctx, "other"); !got {
		t.Fatal("separate key should have its own bucket")
	}
	now = now.Add(2 * time.Second)
	if got, _ := l.Allow(ctx, "ip"); !got {
		t.Fatal("bucket should refill after two seconds at 60/min")
	}
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("redis down")
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name    string
		limiter Limiter
		want    []int
	}{
		{"limits", NewSimpleTokenBucket(1, 1), []int{http.StatusOK, http.StatusTooManyRequests}},
		{"fails open", erroringLimiter{}, []int{http.StatusOK, http.StatusOK}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimit(tt.limiter, zap.NewNop()))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
			for i, want := range tt.want {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
				if w.Code != want {
					t.Fatalf("request %d status = %d, want %d", i, w.Code, want)
				}
			}
		})
	}
}

func TestSecurityHeadersAndLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop(), "/healthz"), SecurityHeaders())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("headers = %v", w.Header())
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS outside release mode")
	}
}
