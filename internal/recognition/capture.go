package recognition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smartcampus/internal/observability"
)

// Recognizer finds faces in an image and predicts their identities.
type Recognizer interface {
	Recognize(ctx context.Context, frame []byte) ([]Result, error)
}

// FrameSource yields camera frames.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

// RecognizeFrame runs the recognizer on one frame and decides on the result.
func (d *Decider) RecognizeFrame(ctx context.Context, rec Recognizer, frame []byte) (Decision, error) {
	if len(frame) == 0 {
		return Decision{}, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}
	start := time.Now()
	results, err := rec.Recognize(ctx, frame)
	observability.RecognitionDuration.WithLabelValues("recognize").Observe(time.Since(start).Seconds())
	if err != nil {
		return Decision{}, err
	}
	return d.Decide(ctx, results, d.now())
}

// Capture pulls frames from src until a student is marked (or found already
// marked) or the timeout elapses. Frames without faces or without a known
// face are skipped, and so are failed camera reads. On timeout the decision is
// not_recognized if any face was seen and no_face otherwise; when the camera
// never produced a frame the last camera error is returned instead.
func (d *Decider) Capture(ctx context.Context, src FrameSource, rec Recognizer, timeout, interval time.Duration) (Decision, error) {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	captureCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	seenFace := false
	attempts := 0
	var camErr error
	for {
		frame, err := d.grab(captureCtx, src)
		switch {
		case err == nil:
		case captureCtx.Err() != nil:
			return d.timedOut(ctx, seenFace, attempts, camErr)
		case errors.Is(err, ErrNoCamera):
			return Decision{}, err
		case errors.Is(err, ErrInvalidFrame), errors.Is(err, ErrRecognizerUnavailable):
			camErr = err
			d.log.Debug("camera frame skipped", zap.Error(err))
		default:
			return Decision{}, err
		}

		if err == nil {
			attempts++
			start := time.Now()
			results, rerr := rec.Recognize(captureCtx, frame)
			observability.RecognitionDuration.WithLabelValues("recognize").Observe(time.Since(start).Seconds())
			if rerr != nil {
				if captureCtx.Err() != nil {
					return d.timedOut(ctx, seenFace, attempts, camErr)
				}
				if !errors.Is(rerr, ErrInvalidFrame) {
					return Decision{}, rerr
				}
			} else {
				// Decide on the parent context so a deadline never cuts a write short.
				dec, derr := d.Decide(ctx, results, d.now())
				if derr != nil {
					return Decision{}, derr
				}
				switch dec.Outcome {
				case OutcomeMarked, OutcomeAlreadyMarked:
					return dec, nil
				case OutcomeNotRecognized:
					seenFace = true
				}
			}
		}

		select {
		case <-captureCtx.Done():
			return d.timedOut(ctx, seenFace, attempts, camErr)
		case <-time.After(interval):
		}
	}
}

func (d *Decider) grab(ctx context.Context, src FrameSource) ([]byte, error) {
	start := time.Now()
	defer func() {
		observability.RecognitionDuration.WithLabelValues("camera").Observe(time.Since(start).Seconds())
	}()
	return src.Frame(ctx)
}

func (d *Decider) timedOut(ctx context.Context, seenFace bool, attempts int, camErr error) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	if attempts == 0 && camErr != nil && errors.Is(camErr, ErrRecognizerUnavailable) {
		return Decision{}, camErr
	}
	local := d.now().In(d.loc)
	dec := Decision{Date: local.Format(DateLayout), Time: local.Format(TimeLayout)}
	if seenFace {
		dec.Outcome = OutcomeNotRecognized
		dec.Message = "face not recognized before capture timeout"
	} else {
		dec.Outcome = OutcomeNoFace
		dec.Message = "no face detected before capture timeout"
	}
	d.log.Info("capture timed out",
		zap.String("outcome", string(dec.Outcome)),
		zap.Int("frames", attempts),
	)
	return dec, nil
}
