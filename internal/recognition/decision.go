// Package recognition decides whether the faces found in a captured frame
// credit a student with attendance for the day.
package recognition

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"smartcampus/internal/logger"
	"smartcampus/internal/observability"
)

// DefaultThreshold is the highest accepted confidence score. Scores are
// distances: lower means more similar.
const DefaultThreshold = 80.0

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Outcome is the result of one marking attempt.
type Outcome string

const (
	OutcomeMarked        Outcome = "marked"
	OutcomeAlreadyMarked Outcome = "already_marked"
	OutcomeNotRecognized Outcome = "not_recognized"
	OutcomeNoFace        Outcome = "no_face"
)

// Sources recorded on attendance events.
const (
	SourceFrame   = "frame"
	SourceResults = "results"
	SourceCapture = "capture"
	SourceJob     = "job"
)

// Region is a face bounding box in frame pixels.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Result is one face found in a frame with its predicted identity.
type Result struct {
	IdentityKey string  `json:"identity_key"`
	Confidence  float64 `json:"confidence"`
	Region      Region  `json:"region"`
}

// Mark is the attendance event the decider asks the ledger to write.
type Mark struct {
	StudentID  string
	Date       string
	Time       string
	Confidence float64
	Source     string
	At         time.Time
}

// Decision describes what happened to a frame.
type Decision struct {
	Outcome     Outcome `json:"outcome"`
	IdentityKey string  `json:"student_id,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Message     string  `json:"message"`
}

// Directory resolves predicted identities to known students.
type Directory interface {
	IdentityExists(ctx context.Context, key string) (bool, error)
}

// Ledger reads and writes per-day attendance events. InsertEvent reports
// false when a uniqueness conflict prevented the write.
type Ledger interface {
	EventExists(ctx context.Context, key, date string) (bool, error)
	InsertEvent(ctx context.Context, m Mark) (bool, error)
}

// Decider applies the confidence gate and the once-per-day rule.
type Decider struct {
	dir       Directory
	ledger    Ledger
	threshold float64
	loc       *time.Location
	source    string
	now       func() time.Time
	log       *zap.Logger
}

// Option configures a Decider.
type Option func(*Decider)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(d *Decider) {
		if t > 0 {
			d.threshold = t
		}
	}
}

// WithLocation sets the time zone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(d *Decider) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithClock replaces time.Now, used by Capture.
func WithClock(now func() time.Time) Option {
	return func(d *Decider) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decider) { d.log = logger.OrNop(l) }
}

// NewDecider builds a decider over the directory and ledger.
func NewDecider(dir Directory, ledger Ledger, opts ...Option) *Decider {
	d := &Decider{
		dir:       dir,
		ledger:    ledger,
		threshold: DefaultThreshold,
		loc:       time.Local,
		source:    SourceFrame,
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Threshold returns the configured confidence threshold.
func (d *Decider) Threshold() float64 { return d.threshold }

// Now returns the decider's clock reading.
func (d *Decider) Now() time.Time { return d.now() }

// WithSource returns a copy that tags written events with src.
func (d *Decider) WithSource(src string) *Decider {
	cp := *d
	cp.source = src
	return &cp
}

// Decide picks the best acceptable identity among results and records
// attendance for it at most once per calendar day. A candidate is acceptable
// when its confidence is at or below the threshold and its key names a known
// student; among those the lowest confidence wins, earlier results first.
func (d *Decider) Decide(ctx context.Context, results []Result, now time.Time) (Decision, error) {
	local := now.In(d.loc)
	dec := Decision{Date: local.Format(DateLayout), Time: local.Format(TimeLayout)}

	if len(results) == 0 {
		dec.Outcome = OutcomeNoFace
		dec.Message = "no face detected"
		d.record(dec)
		return dec, nil
	}

	candidates := make([]Result, 0, len(results))
	for _, r := range results {
		if r.IdentityKey == "" || math.IsNaN(r.Confidence) || r.Confidence > d.threshold {
			continue
		}
		candidates = append(candidates, r)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence < candidates[j].Confidence
	})

	var (
		selected Result
		found    bool
		checked  = make(map[string]bool, len(candidates))
	)
	for _, c := range candidates {
		if checked[c.IdentityKey] {
			continue
		}
		checked[c.IdentityKey] = true
		ok, err := d.dir.IdentityExists(ctx, c.IdentityKey)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: identity lookup %q: %w", ErrLookupUnavailable, c.IdentityKey, err)
		}
		if ok {
			selected, found = c, true
			break
		}
	}

	if !found {
		dec.Outcome = OutcomeNotRecognized
		dec.Message = "face not recognized"
		d.record(dec)
		return dec, nil
	}

	dec.IdentityKey = selected.IdentityKey
	dec.Confidence = selected.Confidence

	exists, err := d.ledger.EventExists(ctx, selected.IdentityKey, dec.Date)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: attendance lookup: %w", ErrLookupUnavailable, err)
	}
	if exists {
		dec.Outcome = OutcomeAlreadyMarked
		dec.Message = fmt.Sprintf("attendance already marked for %s", selected.IdentityKey)
		d.record(dec)
		return dec, nil
	}

	inserted, err := d.ledger.InsertEvent(ctx, Mark{
		StudentID:  selected.IdentityKey,
		Date:       dec.Date,
		Time:       dec.Time,
		Confidence: selected.Confidence,
		Source:     d.source,
		At:         now.UTC(),
	})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: insert attendance: %w", ErrLookupUnavailable, err)
	}
	if !inserted {
		// A concurrent attempt wrote the row between the check and the insert.
		dec.Outcome = OutcomeAlreadyMarked
		dec.Message = fmt.Sprintf("attendance already marked for %s", selected.IdentityKey)
		d.record(dec)
		return dec, nil
	}

	dec.Outcome = OutcomeMarked
	dec.Message = fmt.Sprintf("attendance marked for %s", selected.IdentityKey)
	d.record(dec)
	return dec, nil
}

func (d *Decider) record(dec Decision) {
	observability.AttendanceDecisions.WithLabelValues(string(dec.Outcome)).Inc()
	d.log.Debug("attendance decision",
		zap.String("outcome", string(dec.Outcome)),
		zap.String("student_id", dec.IdentityKey),
		zap.Float64("confidence", dec.Confidence),
		zap.String("date", dec.Date),
		zap.String("source", d.source),
	)
}
