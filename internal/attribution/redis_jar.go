package attribution

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadlab/engage/internal/pkg/logger"
)

// RedisJar stores attribution values as TTL keys in Redis, scoped to a
// visitor id. It serves API deployments where the browser cookie jar is
// out of reach: the ingest endpoints resolve attribution server-side and
// the TTL enforces the attribution window.
//
// Redis errors degrade to "value absent" on read and are logged on write;
// attribution capture never fails a request.
type RedisJar struct {
	client  *redis.Client
	visitor string
	ctx     context.Context
}

// NewRedisJar scopes a jar to one visitor id.
func NewRedisJar(ctx context.Context, client *redis.Client, visitorID string) *RedisJar {
	return &RedisJar{client: client, visitor: visitorID, ctx: ctx}
}

func (j *RedisJar) key(name string) string {
	return "attr:" + j.visitor + ":" + name
}

func (j *RedisJar) Get(name string) string {
	v, err := j.client.Get(j.ctx, j.key(name)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("attribution redis get failed", "key", name, "error", err.Error())
		}
		return ""
	}
	return v
}

func (j *RedisJar) Set(name, value string, days int) {
	ttl := time.Duration(days) * 24 * time.Hour
	if err := j.client.Set(j.ctx, j.key(name), value, ttl).Err(); err != nil {
		logger.Warn("attribution redis set failed", "key", name, "error", err.Error())
	}
}
