package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/bubblehouse/connector/internal/infrastructure/config"
)

// DefaultPopTimeout is used when no pop timeout is configured
const DefaultPopTimeout = 5 * time.Second

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisOrderQueue is an OrderQueue backed by a Redis list.
// Producers LPUSH and consumers BRPOP, so ids are served first in first out.
type RedisOrderQueue struct {
	client     *redis.Client
	key        string
	popTimeout time.Duration
}

// NewRedisOrderQueue creates a queue on the list named by cfg.Key
func NewRedisOrderQueue(client *redis.Client, cfg config.QueueConfig) *RedisOrderQueue {
	timeout := cfg.PopTimeout
	if timeout <= 0 {
		timeout = DefaultPopTimeout
	}
	return &RedisOrderQueue{
		client:     client,
		key:        cfg.Key,
		popTimeout: timeout,
	}
}

// Push appends an order id to the queue
func (q *RedisOrderQueue) Push(ctx context.Context, orderID int64) error {
	if err := q.client.LPush(ctx, q.key, strconv.FormatInt(orderID, 10)).Err(); err != nil {
		return fmt.Errorf("failed to enqueue order %d: %w", orderID, err)
	}
	return nil
}

// Pop blocks for up to the pop timeout waiting for an order id
func (q *RedisOrderQueue) Pop(ctx context.Context) (int64, bool, error) {
	result, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to dequeue order: %w", err)
	}

	// BRPOP replies with [key, value]
	if len(result) != 2 {
		return 0, false, fmt.Errorf("%w: unexpected reply %v", ErrInvalidMessage, result)
	}
	orderID, err := strconv.ParseInt(result[1], 10, 64)
	if err != nil || orderID <= 0 {
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidMessage, result[1])
	}
	return orderID, true, nil
}

// Len returns the number of queued ids
func (q *RedisOrderQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// RedisOrderLocker takes a per-order lock with redislock
type RedisOrderLocker struct {
	locker *redislock.Client
	prefix string
	ttl    time.Duration
}

// NewRedisOrderLocker creates a locker whose keys live under "<cfg.Key>:lock:"
func NewRedisOrderLocker(client *redis.Client, cfg config.QueueConfig) *RedisOrderLocker {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisOrderLocker{
		locker: redislock.New(client),
		prefix: cfg.Key + ":lock:",
		ttl:    ttl,
	}
}

// Lock obtains the lock for orderID without waiting
func (l *RedisOrderLocker) Lock(ctx context.Context, orderID int64) (func(context.Context) error, error) {
	lock, err := l.locker.Obtain(ctx, l.prefix+strconv.FormatInt(orderID, 10), l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

var (
	_ OrderQueue  = (*RedisOrderQueue)(nil)
	_ OrderLocker = (*RedisOrderLocker)(nil)
)
