// Package worker consumes the email queue and delivers confirmation emails.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/queue"
	"github.com/sethvargo/go-retry"
)

const (
	defaultPollTimeout = 5 * time.Second
	defaultBaseBackoff = 500 * time.Millisecond
	defaultAttempts    = 3
)

// ConfirmationSender delivers the confirmation email for a token.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, email, token string) error
}

// Worker pops jobs one at a time and runs the matching handler.
type Worker struct {
	queue       queue.Queue
	sender      ConfirmationSender
	log         logging.Logger
	pollTimeout time.Duration
	backoff     func() retry.Backoff
}

// Option customises a Worker.
type Option func(*Worker)

// WithPollTimeout sets how long a single Dequeue may block.
func WithPollTimeout(d time.Duration) Option {
	return func(w *Worker) { w.pollTimeout = d }
}

// WithBackoff sets the retry schedule used for each delivery.
func WithBackoff(base time.Duration, attempts uint64) Option {
	return func(w *Worker) { w.backoff = newBackoff(base, attempts) }
}

func newBackoff(base time.Duration, attempts uint64) func() retry.Backoff {
	return func() retry.Backoff {
		// WithMaxRetries counts retries, not attempts.
		return retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
	}
}

func New(q queue.Queue, sender ConfirmationSender, log logging.Logger, opts ...Option) *Worker {
	w := &Worker{
		queue:       q,
		sender:      sender,
		log:         log.With("module", "worker"),
		pollTimeout: defaultPollTimeout,
		backoff:     newBackoff(defaultBaseBackoff, defaultAttempts),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info(ctx, "worker started", "queue", queue.EmailQueue)
	defer w.log.Info(context.Background(), "worker stopped")

	if r, ok := w.queue.(queue.Recoverer); ok {
		n, err := r.Recover(ctx)
		if err != nil {
			w.log.Error(ctx, "recovering pending jobs failed", "error", err)
		} else if n > 0 {
			w.log.Warn(ctx, "requeued jobs left pending by a previous run", "count", n)
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		err := w.ProcessNext(ctx)
		switch {
		case err == nil, errors.Is(err, queue.ErrNoJob):
		case ctx.Err() != nil:
			return nil
		default:
			w.log.Error(ctx, "queue poll failed", "error", err)
			// Redis outage: don't spin.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.pollTimeout):
			}
		}
	}
}

// ProcessNext handles at most one job. Malformed and unknown jobs are logged
// and dropped. A job whose delivery keeps failing is pushed back onto the
// tail of the queue. The dequeued job is acked only once it has been sent,
// dropped or requeued.
func (w *Worker) ProcessNext(ctx context.Context) error {
	job, err := w.queue.Dequeue(ctx, w.pollTimeout)
	if err != nil {
		if errors.Is(err, queue.ErrMalformedJob) {
			w.log.Warn(ctx, "dropping malformed job", "error", err)
			return nil
		}
		return err
	}

	log := w.log.With("job", job.Name)

	if job.Name != queue.JobSendWelcomeEmail {
		log.Warn(ctx, "dropping unknown job")
		return w.ack(ctx, job)
	}

	var p queue.EmailPayload
	if err := json.Unmarshal(job.Data, &p); err != nil || p.Email == "" || p.Token == "" {
		log.Warn(ctx, "dropping job with invalid payload", "error", err)
		return w.ack(ctx, job)
	}

	err = retry.Do(ctx, w.backoff(), func(ctx context.Context) error {
		if err := w.sender.SendConfirmation(ctx, p.Email, p.Token); err != nil {
			log.Warn(ctx, "email delivery attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		log.Info(ctx, "confirmation email sent", "email", p.Email)
		return w.ack(ctx, job)
	}

	log.Error(ctx, "email delivery failed, requeueing", "email", p.Email, "error", err)
	requeueCtx, cancel := detached(ctx)
	defer cancel()
	if qerr := w.queue.Enqueue(requeueCtx, *job); qerr != nil {
		// Still pending; the next start recovers it.
		return fmt.Errorf("requeue %s: %w", job.Name, qerr)
	}
	return w.ack(ctx, job)
}

// ack runs even when ctx is already done, so a finished job does not come
// back as pending.
func (w *Worker) ack(ctx context.Context, job *queue.Job) error {
	ackCtx, cancel := detached(ctx)
	defer cancel()
	if err := w.queue.Ack(ackCtx, job); err != nil {
		return fmt.Errorf("ack %s: %w", job.Name, err)
	}
	return nil
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}
