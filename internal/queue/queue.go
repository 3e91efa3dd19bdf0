// Package queue is the outbound port for background jobs. Jobs are JSON
// documents {"name": ..., "data": ...} pushed to the tail of a named list
// and taken from its head. A taken job stays pending until it is acked.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// EmailQueue is the list email jobs are pushed to.
	EmailQueue = "email"
	// JobSendWelcomeEmail asks the worker to send a confirmation email.
	JobSendWelcomeEmail = "send-welcome-email"
)

var (
	// ErrNoJob is returned by Dequeue when nothing arrived before the timeout.
	ErrNoJob = errors.New("no job available")
	// ErrMalformedJob is returned by Dequeue for a payload that is not a job.
	// The payload has already been removed from the queue.
	ErrMalformedJob = errors.New("malformed job")
)

// Job is a named unit of work with a JSON payload.
type Job struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`

	// raw is the payload as it was stored, used to ack it.
	raw []byte
}

// EmailPayload is the data of a JobSendWelcomeEmail job.
type EmailPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// NewSendWelcomeEmailJob builds the confirmation email job.
func NewSendWelcomeEmailJob(email, token string) (Job, error) {
	data, err := json.Marshal(EmailPayload{Email: email, Token: token})
	if err != nil {
		return Job{}, fmt.Errorf("encode payload: %w", err)
	}
	return Job{Name: JobSendWelcomeEmail, Data: data}, nil
}

// Queue is implemented by RedisQueue and MemoryQueue.
type Queue interface {
	// Enqueue appends job to the tail of the queue.
	Enqueue(ctx context.Context, job Job) error
	// Dequeue takes the head of the queue, waiting up to timeout. The job
	// stays pending until Ack.
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
	// Ack removes a dequeued job for good.
	Ack(ctx context.Context, job *Job) error
}

// Recoverer is implemented by queues that keep pending jobs across
// restarts. Recover puts them back at the head of the queue.
type Recoverer interface {
	Recover(ctx context.Context) (int, error)
}

func encode(job Job) ([]byte, error) {
	b, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	return b, nil
}

func decode(raw []byte) (*Job, error) {
	job := &Job{}
	if err := json.Unmarshal(raw, job); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	if job.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrMalformedJob)
	}
	job.raw = raw
	return job, nil
}
