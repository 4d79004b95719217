package recognition

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type staticSource struct{ calls int }

func (s *staticSource) Frame(context.Context) ([]byte, error) {
	s.calls++
	return []byte("jpeg"), nil
}

// flakySource fails its first reads with err, then serves frames. A negative
// failures count fails every read.
type flakySource struct {
	failures int
	err      error
	calls    int
}

func (s *flakySource) Frame(context.Context) ([]byte, error) {
	s.calls++
	if s.failures < 0 || s.calls <= s.failures {
		return nil, s.err
	}
	return []byte("jpeg"), nil
}

type scriptedRecognizer struct {
	script [][]Result
	err    error
	calls  int
}

func (r *scriptedRecognizer) Recognize(context.Context, []byte) ([]Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	i := r.calls
	r.calls++
	if i >= len(r.script) {
		i = len(r.script) - 1
	}
	return r.script[i], nil
}

func TestCaptureMarksOnFirstKnownFace(t *testing.T) {
	d, _, ledger := newTestDecider("S001")
	rec := &scriptedRecognizer{script: [][]Result{
		nil,
		{{IdentityKey: "S404", Confidence: 20}},
		{{IdentityKey: "S001", Confidence: 35}},
	}}

	got, err := d.Capture(context.Background(), &staticSource{}, rec, time.Second, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got.Outcome != OutcomeMarked || got.IdentityKey != "S001" {
		t.Fatalf("got %+v, want S001 marked", got)
	}
	if rec.calls != 3 || ledger.inserts != 1 {
		t.Fatalf("recognize calls = %d, inserts = %d", rec.calls, ledger.inserts)
	}
}

func TestCaptureTimeout(t *testing.T) {
	tests := []struct {
		name   string
		script [][]Result
		want   Outcome
	}{
		{"never a face", [][]Result{nil}, OutcomeNoFace},
		{"faces but unknown", [][]Result{nil, {{IdentityKey: "S404", Confidence: 5}}}, OutcomeNotRecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := newTestDecider("S001")
			got, err := d.Capture(context.Background(), &staticSource{}, &scriptedRecognizer{script: tt.script}, 30*time.Millisecond, time.Millisecond)
			if err != nil {
				t.Fatal(err)
			}
			if got.Outcome != tt.want {
				t.Fatalf("Outcome = %q, want %q", got.Outcome, tt.want)
			}
		})
	}
}

func TestCaptureRecognizerFailure(t *testing.T) {
	d, _, _ := newTestDecider("S001")
	rec := &scriptedRecognizer{err: ErrRecognizerUnavailable}
	_, err := d.Capture(context.Background(), &staticSource{}, rec, time.Second, time.Millisecond)
	if !errors.Is(err, ErrRecognizerUnavailable) {
		t.Fatalf("err = %v, want ErrRecognizerUnavailable", err)
	}
}

func TestCaptureSkipsFailedCameraReads(t *testing.T) {
	d, _, ledger := newTestDecider("S001")
	cam := &flakySource{failures: 1, err: fmt.Errorf("%w: camera returned 503", ErrRecognizerUnavailable)}
	rec := &scriptedRecognizer{script: [][]Result{{{IdentityKey: "S001", Confidence: 20}}}}

	got, err := d.Capture(context.Background(), cam, rec, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if got.Outcome != OutcomeMarked || got.IdentityKey != "S001" {
		t.Fatalf("got %+v, want S001 marked", got)
	}
	if cam.calls != 2 || ledger.inserts != 1 {
		t.Fatalf("camera calls = %d, inserts = %d", cam.calls, ledger.inserts)
	}
}

func TestCaptureCameraErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   error
		wantCalls func(int) bool
	}{
		{
			name:      "camera down for the whole window",
			err:       fmt.Errorf("%w: camera request failed", ErrRecognizerUnavailable),
			wantErr:   ErrRecognizerUnavailable,
			wantCalls: func(n int) bool { return n > 1 },
		},
		{
			name:      "camera not configured",
			err:       fmt.Errorf("%w: %w", ErrRecognizerUnavailable, ErrNoCamera),
			wantErr:   ErrNoCamera,
			wantCalls: func(n int) bool { return n == 1 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, ledger := newTestDecider("S001")
			cam := &flakySource{failures: -1, err: tt.err}
			rec := &scriptedRecognizer{script: [][]Result{{{IdentityKey: "S001", Confidence: 20}}}}

			_, err := d.Capture(context.Background(), cam, rec, 30*time.Millisecond, time.Millisecond)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !tt.wantCalls(cam.calls) {
				t.Fatalf("camera calls = %d", cam.calls)
			}
			if rec.calls != 0 || ledger.inserts != 0 {
				t.Fatalf("recognize calls = %d, inserts = %d", rec.calls, ledger.inserts)
			}
		})
	}
}

func TestCaptureParentCancelled(t *testing.T) {
	d, _, _ := newTestDecider("S001")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Capture(ctx, &staticSource{}, &scriptedRecognizer{script: [][]Result{nil}}, time.Second, time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRecognizeFrame(t *testing.T) {
	d, _, _ := newTestDecider("S001")
	rec := &scriptedRecognizer{script: [][]Result{{{IdentityKey: "S001", Confidence: 12}}}}

	if _, err := d.RecognizeFrame(context.Background(), rec, nil); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("empty frame err = %v, want ErrInvalidFrame", err)
	}
	got, err := d.RecognizeFrame(context.Background(), rec, []byte("jpeg"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Outcome != OutcomeMarked {
		t.Fatalf("Outcome = %q, want marked", got.Outcome)
	}
}
