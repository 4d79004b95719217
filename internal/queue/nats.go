package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	JobsStreamName  = "RECOGNITION"
	JobsSubjectBase = "recognition"

	natsMaxDeliver   = 3
	natsRetryBackoff = 5 * time.Second
)

// NATSQueue publishes to a JetStream work queue and consumes through a
// durable pull consumer. A message that fails processing is delivered at
// most three times, with a growing delay between attempts.
type NATSQueue struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer string
	log      *zap.Logger
}

func NewNATSQueue(natsURL, consumer string, log *zap.Logger) (*NATSQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if consumer == "" {
		consumer = "recognition-workers"
	}
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return &NATSQueue{nc: nc, js: js, consumer: consumer, log: log}, nil
}

// EnsureStream creates the work queue stream, retrying while NATS starts.
func (q *NATSQueue) EnsureStream(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        JobsStreamName,
		Subjects:    []string{JobsSubjectBase + ".>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      10 * time.Minute,
		MaxBytes:    512 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Description: "Attendance recognition jobs",
	}
	const maxAttempts = 30
	for attempt := 1; ; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := q.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
		}
		q.log.Warn("ensure NATS stream (retrying...)", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (q *NATSQueue) Publish(ctx context.Context, msg Message) error {
	payload, err := serialize(msg)
	if err != nil {
		return err
	}
	if _, err := q.js.Publish(ctx, JobsSubjectBase+"."+msg.Type, payload); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}
	return nil
}

// Consume fetches batches from the durable consumer. Each message must be
// settled with Done.
func (q *NATSQueue) Consume(ctx context.Context) (<-chan Message, error) {
	stream, err := q.js.Stream(ctx, JobsStreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", JobsStreamName, err)
	}
	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          q.consumer,
		Durable:       q.consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       45 * time.Second,
		MaxDeliver:    natsMaxDeliver,
		FilterSubject: JobsSubjectBase + ".>",
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", q.consumer, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				q.log.Warn("fetch recognition jobs", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			for m := range batch.Messages() {
				msg, err := deserialize(m.Data())
				if err != nil {
					q.log.Warn("dropping malformed job", zap.String("subject", m.Subject()), zap.Error(err))
					_ = m.Term()
					continue
				}
				msg.MaxDeliver = natsMaxDeliver
				if meta, err := m.Metadata(); err == nil {
					msg.Delivery = int(meta.NumDelivered)
				}
				delay := redeliveryDelay(msg.Delivery)
				msg.ack = func(err error) {
					if err != nil {
						_ = m.NakWithDelay(delay)
						return
					}
					_ = m.Ack()
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					_ = m.Nak()
					return
				}
			}
		}
	}()
	return out, nil
}

// redeliveryDelay backs off linearly so a recovering vision service is not
// hit by every retry at once.
func redeliveryDelay(delivery int) time.Duration {
	return time.Duration(max(delivery, 1)) * natsRetryBackoff
}

// Ping reports whether the connection is up.
func (q *NATSQueue) Ping() error {
	if !q.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (q *NATSQueue) Close() {
	q.nc.Close()
}
