package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []string
}

func (f *fakeSender) SendConfirmation(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, email+"|"+token)
	return nil
}

func (f *fakeSender) snapshot() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]string(nil), f.sent...)
}

func newTestWorker(q queue.Queue, s ConfirmationSender) *Worker {
	return New(q, s, logging.Nop{},
		WithPollTimeout(20*time.Millisecond),
		WithBackoff(time.Millisecond, 3))
}

func enqueue(t *testing.T, q queue.Queue, email, token string) {
	t.Helper()
	job, err := queue.NewSendWelcomeEmailJob(email, token)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), job))
}

func TestProcessNext_Sends(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	s := &fakeSender{}
	enqueue(t, q, "a@x.com", "tok")

	require.NoError(t, newTestWorker(q, s).ProcessNext(context.Background()))

	calls, sent := s.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a@x.com|tok"}, sent)
	assert.Equal(t, 0, q.Len())
}

func TestProcessNext_RetriesThenSucceeds(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	s := &fakeSender{failures: 2}
	enqueue(t, q, "a@x.com", "tok")

	require.NoError(t, newTestWorker(q, s).ProcessNext(context.Background()))

	calls, sent := s.snapshot()
	assert.Equal(t, 3, calls)
	assert.Len(t, sent, 1)
	assert.Equal(t, 0, q.Len())
}

func TestProcessNext_RequeuesAfterFinalFailure(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	s := &fakeSender{failures: 10}
	enqueue(t, q, "a@x.com", "tok")

	require.NoError(t, newTestWorker(q, s).ProcessNext(context.Background()))

	calls, sent := s.snapshot()
	assert.Equal(t, 3, calls)
	assert.Empty(t, sent)
	require.Equal(t, 1, q.Len())

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, queue.JobSendWelcomeEmail, job.Name)
}

func TestProcessNext_DropsUnknownAndBadPayload(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	s := &fakeSender{}
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.Job{Name: "resize-avatar", Data: []byte(`{}`)}))
	require.NoError(t, q.Enqueue(ctx, queue.Job{Name: queue.JobSendWelcomeEmail, Data: []byte(`{"email":""}`)}))

	w := newTestWorker(q, s)
	require.NoError(t, w.ProcessNext(ctx))
	require.NoError(t, w.ProcessNext(ctx))

	calls, _ := s.snapshot()
	assert.Zero(t, calls)
	assert.Equal(t, 0, q.Len())
}

func TestProcessNext_Empty(t *testing.T) {
	err := newTestWorker(queue.NewMemoryQueue(1), &fakeSender{}).ProcessNext(context.Background())
	require.ErrorIs(t, err, queue.ErrNoJob)
}

func TestRun_RedisDropsMalformedAndStops(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := queue.NewRedisQueue(client, queue.EmailQueue)
	_, err := mr.Lpush(queue.EmailQueue, "not json")
	require.NoError(t, err)
	enqueue(t, q, "b@x.com", "tok2")

	s := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWorker(q, s).Run(ctx) }()

	require.Eventually(t, func() bool {
		_, sent := s.snapshot()
		return len(sent) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// BLMOVE blocks for at least a second regardless of the poll timeout.
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	_, sent := s.snapshot()
	assert.Equal(t, []string{"b@x.com|tok2"}, sent)
	assert.False(t, mr.Exists(queue.EmailQueue))
	assert.False(t, mr.Exists(queue.EmailQueue+":processing"))
}

func TestRun_RedisResendsJobLeftPendingByCrash(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := queue.NewRedisQueue(client, queue.EmailQueue)
	enqueue(t, q, "a@x.com", "tok")

	// A previous worker took the job and died before sending it.
	_, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.False(t, mr.Exists(queue.EmailQueue))

	s := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWorker(q, s).Run(ctx) }()

	require.Eventually(t, func() bool {
		_, sent := s.snapshot()
		return len(sent) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	_, sent := s.snapshot()
	assert.Equal(t, []string{"a@x.com|tok"}, sent)
	assert.False(t, mr.Exists(queue.EmailQueue+":processing"))
}

func TestProcessNext_RedisRequeueClearsPending(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := queue.NewRedisQueue(client, queue.EmailQueue)
	enqueue(t, q, "a@x.com", "tok")

	s := &fakeSender{failures: 10}
	require.NoError(t, newTestWorker(q, s).ProcessNext(context.Background()))

	calls, _ := s.snapshot()
	assert.Equal(t, 3, calls)
	items, err := mr.List(queue.EmailQueue)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"name":"send-welcome-email","data":{"email":"a@x.com","token":"tok"}}`, items[0])
	assert.False(t, mr.Exists(queue.EmailQueue+":processing"))
}
