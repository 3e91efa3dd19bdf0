package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisQueue stores jobs in a Redis list. Dequeue moves the head onto a
// processing list (BLMOVE) and Ack removes it from there (LREM), so a job
// taken by a worker that dies before acking is still in Redis.
type RedisQueue struct {
	client     *redis.Client
	key        string
	processing string
}

// NewRedisQueue returns a queue over the list named key. Pending jobs live
// in key+":processing".
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, processing: key + ":processing"}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	b, err := encode(job)
	if err != nil {
		return errors.Join(common.ErrQueue, err)
	}
	if err := q.client.RPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("%w: rpush %s: %w", common.ErrQueue, q.key, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	raw, err := q.client.BLMove(ctx, q.key, q.processing, "LEFT", "RIGHT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("%w: blmove %s: %w", common.ErrQueue, q.key, err)
	}

	job, err := decode([]byte(raw))
	if err != nil {
		// Nothing can ever handle it.
		if lerr := q.remove(ctx, raw); lerr != nil {
			return nil, errors.Join(err, lerr)
		}
		return nil, err
	}
	return job, nil
}

func (q *RedisQueue) Ack(ctx context.Context, job *Job) error {
	return q.remove(ctx, string(job.raw))
}

// Recover moves every pending job back to the head of the queue, oldest
// first, and reports how many were moved. It must run before any consumer
// of the same queue starts dequeueing.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.key, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("%w: lmove %s: %w", common.ErrQueue, q.processing, err)
		}
		n++
	}
}

func (q *RedisQueue) remove(ctx context.Context, raw string) error {
	if err := q.client.LRem(ctx, q.processing, 1, raw).Err(); err != nil {
		return fmt.Errorf("%w: lrem %s: %w", common.ErrQueue, q.processing, err)
	}
	return nil
}
