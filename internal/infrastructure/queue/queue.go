// Package queue carries order ids from the storefront to the export worker.
package queue

import (
	"context"
	"errors"
)

var (
	// ErrInvalidMessage indicates a queue entry that is not a decimal order id
	ErrInvalidMessage = errors.New("queue: invalid message")
	// ErrLockNotObtained indicates another worker is exporting the same order
	ErrLockNotObtained = errors.New("queue: order lock not obtained")
)

// OrderQueue holds the ids of orders waiting to be exported
type OrderQueue interface {
	// Push appends an order id to the queue
	Push(ctx context.Context, orderID int64) error
	// Pop waits for the next order id. ok is false when the wait timed out
	// without a message.
	Pop(ctx context.Context) (orderID int64, ok bool, err error)
}

// OrderLocker serializes exports of the same order across workers
type OrderLocker interface {
	// Lock returns ErrLockNotObtained when the order is already locked.
	// The returned function releases the lock.
	Lock(ctx context.Context, orderID int64) (release func(context.Context) error, err error)
}

// OrderProcessor exports a single order
type OrderProcessor interface {
	Process(ctx context.Context, orderID int64) error
}
