package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"smartcampus/internal/attendance"
	"smartcampus/internal/observability"
	"smartcampus/internal/queue"
	"smartcampus/internal/recognition"
)

const jobRetried = "retried"

// RecognizeTask is the body of a recognize message.
type RecognizeTask struct {
	JobID string `json:"job_id"`
	Frame string `json:"frame"`
}

// Jobs tracks recognition job state.
type Jobs interface {
	CreateJob(ctx context.Context) (attendance.Job, error)
	CompleteJob(ctx context.Context, id string, dec recognition.Decision) error
	FailJob(ctx context.Context, id, reason string) error
}

// Notifier receives every decision a job reaches.
type Notifier interface {
	Publish(ctx context.Context, d recognition.Decision) error
}

// Processor turns queued frames into attendance decisions.
type Processor struct {
	decider *recognition.Decider
	rec     recognition.Recognizer
	jobs    Jobs
	notify  Notifier
	log     *zap.Logger
}

func NewProcessor(decider *recognition.Decider, rec recognition.Recognizer, jobs Jobs, notify Notifier, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		decider: decider.WithSource(recognition.SourceJob),
		rec:     rec,
		jobs:    jobs,
		notify:  notify,
		log:     log,
	}
}

// Enqueue creates a pending job for frame and publishes it.
func Enqueue(ctx context.Context, q queue.Queue, jobs Jobs, frame []byte) (attendance.Job, error) {
	if len(frame) == 0 {
		return attendance.Job{}, fmt.Errorf("%w: empty frame", recognition.ErrInvalidFrame)
	}
	job, err := jobs.CreateJob(ctx)
	if err != nil {
		return attendance.Job{}, err
	}
	msg, err := queue.NewMessage(queue.TypeRecognize, RecognizeTask{
		JobID: job.ID,
		Frame: base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return attendance.Job{}, err
	}
	if err := q.Publish(ctx, msg); err != nil {
		_ = jobs.FailJob(ctx, job.ID, "enqueue failed")
		return attendance.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// Handle processes one message. A returned error asks the queue to redeliver
// it, which only happens for transient failures with deliveries left. The job
// stays pending until then; bad input and the last failed delivery fail it.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeRecognize {
		p.log.Debug("skipping message", zap.String("type", msg.Type))
		return nil
	}
	var task RecognizeTask
	if err := json.Unmarshal(msg.Body, &task); err != nil || task.JobID == "" {
		p.log.Warn("malformed recognize task", zap.Error(err))
		return nil
	}
	log := p.log.With(zap.String("job_id", task.JobID))

	frame, err := recognition.DecodeFrame(task.Frame)
	if err != nil {
		return p.fail(ctx, log, msg, task.JobID, err, false)
	}

	start := time.Now()
	dec, err := p.decider.RecognizeFrame(ctx, p.rec, frame)
	if err != nil {
		retry := errors.Is(err, recognition.ErrRecognizerUnavailable) || errors.Is(err, recognition.ErrLookupUnavailable)
		return p.fail(ctx, log, msg, task.JobID, err, retry)
	}

	if err := p.jobs.CompleteJob(ctx, task.JobID, dec); err != nil {
		return fmt.Errorf("complete job %s: %w", task.JobID, err)
	}
	observability.RecognitionJobs.WithLabelValues(attendance.JobProcessed).Inc()
	log.Info("job processed",
		zap.String("outcome", string(dec.Outcome)),
		zap.String("student_id", dec.IdentityKey),
		zap.Duration("took", time.Since(start)))

	if p.notify != nil {
		if err := p.notify.Publish(ctx, dec); err != nil {
			log.Warn("live notify failed", zap.Error(err))
		}
	}
	return nil
}

func (p *Processor) fail(ctx context.Context, log *zap.Logger, msg queue.Message, jobID string, cause error, retry bool) error {
	if retry && msg.Redeliverable() {
		observability.RecognitionJobs.WithLabelValues(jobRetried).Inc()
		log.Warn("job attempt failed, awaiting redelivery", zap.Error(cause), zap.Int("delivery", msg.Delivery))
		return cause
	}
	observability.RecognitionJobs.WithLabelValues(attendance.JobFailed).Inc()
	log.Warn("job failed", zap.Error(cause), zap.Int("delivery", msg.Delivery))
	if err := p.jobs.FailJob(ctx, jobID, cause.Error()); err != nil {
		log.Error("record job failure", zap.Error(err))
	}
	return nil
}

// Run consumes q with n concurrent handlers until ctx is done.
func (p *Processor) Run(ctx context.Context, q queue.Queue, n int) error {
	if n <= 0 {
		n = 1
	}
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	p.log.Info("worker started", zap.Int("workers", n))

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				msg.Done(p.Handle(ctx, msg))
			}
		}()
	}
	wg.Wait()
	p.log.Info("worker stopped")
	return nil
}
