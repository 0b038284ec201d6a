package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ConsumerConfig holds configuration for the queue consumer
type ConsumerConfig struct {
	// ErrorBackoff is how long the consumer waits after the queue itself failed
	ErrorBackoff time.Duration
}

// DefaultConsumerConfig returns default configuration
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		ErrorBackoff: time.Second,
	}
}

// Consumer pops order ids and exports them one at a time.
// A failed export is logged and the consumer moves on to the next id.
type Consumer struct {
	queue     OrderQueue
	processor OrderProcessor
	locker    OrderLocker
	config    ConsumerConfig
	logger    *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ConsumerOption configures a Consumer
type ConsumerOption func(*Consumer)

// WithLocker makes the consumer hold a per-order lock while exporting
func WithLocker(locker OrderLocker) ConsumerOption {
	return func(c *Consumer) {
		c.locker = locker
	}
}

// NewConsumer creates a new queue consumer
func NewConsumer(queue OrderQueue, processor OrderProcessor, config ConsumerConfig, logger *zap.Logger, opts ...ConsumerOption) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = DefaultConsumerConfig().ErrorBackoff
	}
	c := &Consumer{
		queue:     queue,
		processor: processor,
		config:    config,
		logger:    logger.Named("queue"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start starts consuming in the background. Calling Start twice is a no-op.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("order queue consumer started")
	return nil
}

// Stop gracefully stops the consumer. The order being exported, if any,
// is finished before Stop returns unless ctx expires first.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("order queue consumer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		orderID, ok, err := c.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrInvalidMessage) {
				c.logger.Warn("discarding invalid queue message", zap.Error(err))
				continue
			}
			c.logger.Error("failed to pop order from queue", zap.Error(err))
			c.wait(ctx)
			continue
		}
		if !ok {
			continue
		}

		// the export itself runs to completion even when shutdown begins
		c.handle(context.WithoutCancel(ctx), orderID)
	}
}

// handle exports one order. Errors are logged, never returned.
func (c *Consumer) handle(ctx context.Context, orderID int64) {
	if c.locker != nil {
		release, err := c.locker.Lock(ctx, orderID)
		if errors.Is(err, ErrLockNotObtained) {
			c.logger.Warn("order is being exported by another worker, skipping", zap.Int64("order_id", orderID))
			return
		}
		if err != nil {
			c.logger.Error("failed to lock order", zap.Int64("order_id", orderID), zap.Error(err))
			return
		}
		defer func() {
			if err := release(ctx); err != nil {
				c.logger.Warn("failed to release order lock", zap.Int64("order_id", orderID), zap.Error(err))
			}
		}()
	}

	if err := c.processor.Process(ctx, orderID); err != nil {
		c.logger.Warn("queued order was not exported", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (c *Consumer) wait(ctx context.Context) {
	timer := time.NewTimer(c.config.ErrorBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
