package livefeed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"smartcampus/internal/recognition"
)

func TestEventFor(t *testing.T) {
	if _, ok := EventFor(recognition.Decision{Outcome: recognition.OutcomeAlreadyMarked, IdentityKey: "S1"}); ok {
		t.Fatal("already_marked should not produce an event")
	}
	evt, ok := EventFor(recognition.Decision{Outcome: recognition.OutcomeMarked, IdentityKey: "S1", Confidence: 40, Date: "2024-03-05", Time: "09:00:00"})
	if !ok || evt.StudentID != "S1" || evt.Type != EventMarked {
		t.Fatalf("evt = %+v", evt)
	}
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestHubFiltersByStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/live", hub.HandleWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	all := dial(t, srv, "")
	defer all.Close()
	one := dial(t, srv, "?student_id=S2")
	defer one.Close()

	// registration happens asynchronously
	time.Sleep(50 * time.Millisecond)

	_ = hub.Publish(ctx, recognition.Decision{Outcome: recognition.OutcomeMarked, IdentityKey: "S1"})
	_ = hub.Publish(ctx, recognition.Decision{Outcome: recognition.OutcomeNotRecognized})
	_ = hub.Publish(ctx, recognition.Decision{Outcome: recognition.OutcomeMarked, IdentityKey: "S2"})

	read := func(conn *websocket.Conn) Event {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatal(err)
		}
		return evt
	}

	if got := read(all).StudentID; got != "S1" {
		t.Fatalf("first event = %s, want S1", got)
	}
	if got := read(all).StudentID; got != "S2" {
		t.Fatalf("second event = %s, want S2", got)
	}
	if got := read(one).StudentID; got != "S2" {
		t.Fatalf("filtered event = %s, want S2", got)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://campus.test"})
	req := httptest.NewRequest("GET", "/live", nil)
	if !check(req) {
		t.Fatal("request without origin should pass")
	}
	req.Header.Set("Origin", "http://evil.test")
	if check(req) {
		t.Fatal("foreign origin accepted")
	}
	req.Header.Set("Origin", "http://campus.test")
	if !check(req) {
		t.Fatal("allowed origin rejected")
	}
}
