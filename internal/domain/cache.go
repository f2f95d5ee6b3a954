package domain

import (
	"context"
	"time"
)

// SignalBus publishes ledger events for off-process consumers. Streams give
// indexers a durable, ordered feed; pub/sub feeds the websocket fanout.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// LockManager provides distributed locks. Acquire returns an unlock function
// on success, or ErrLockHeld when another party holds the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
