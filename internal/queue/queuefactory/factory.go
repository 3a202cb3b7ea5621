// Package queuefactory selects a queue.Queue backend by name. It is kept
// separate from package queue to avoid an import cycle: redisqueue and
// memqueue both depend on queue for the shared interface and RetryPolicy.
package queuefactory

import (
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"flashsale/internal/queue"
	"flashsale/internal/queue/memqueue"
	"flashsale/internal/queue/redisqueue"
)

// Backend names selectable via config.Tunables.QueueBackend.
const (
	Redis  = "redis"
	Memory = "memory"
)

// New builds the configured Queue backend. client may be nil when backend is
// Memory.
func New(backend string, client *goredis.Client, concurrency int, policy queue.RetryPolicy) (queue.Queue, error) {
	switch backend {
	case Redis:
		if client == nil {
			return nil, fmt.Errorf("queue: redis backend requires a redis client")
		}
		return redisqueue.New(client, concurrency, policy), nil
	case Memory:
		return memqueue.New(concurrency*64, policy), nil
	default:
		return nil, fmt.Errorf("queue: unknown backend %q", backend)
	}
}
