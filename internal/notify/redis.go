package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/contentforge/taskengine/internal/platform/logger"
)

// RedisNotifier publishes task lifecycle events on a Redis pub/sub
// channel, grounded on the teacher's clients/redis/sse_bus.go: same
// dial/ping-on-construct shape, same "log and swallow" publish failure
// handling.
type RedisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisNotifier(addr, channel string, log *logger.Logger) (*RedisNotifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	if channel == "" {
		channel = "tasks"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisNotifier{
		log:     log.With("component", "RedisTaskNotifier"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (n *RedisNotifier) Publish(e Event) {
	if n == nil || n.rdb == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		n.log.Warn("failed to marshal task event", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.log.Warn("failed to publish task event", "error", err, "kind", e.Kind, "task_id", e.TaskID)
	}
}

func (n *RedisNotifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}
