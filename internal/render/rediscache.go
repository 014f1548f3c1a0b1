package render

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const terminalCacheTTL = 24 * time.Hour

// RedisTerminalCache shares terminal poll statuses across api and worker
// processes, so a job that finished is never polled at the provider again by
// either binary. Cache errors degrade to a miss.
type RedisTerminalCache struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisTerminalCache(client *redis.Client, logger zerolog.Logger) *RedisTerminalCache {
	return &RedisTerminalCache{client: client, logger: logger}
}

func terminalCacheKey(jobID string) string {
	return "render:terminal:" + jobID
}

func (c *RedisTerminalCache) Get(ctx context.Context, jobID string) (PollStatus, bool) {
	raw, err := c.client.Get(ctx, terminalCacheKey(jobID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Str("job_id", jobID).Msg("render: terminal cache read failed")
		}
		return PollStatus{}, false
	}
	var status PollStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		c.logger.Debug().Err(err).Str("job_id", jobID).Msg("render: terminal cache entry corrupt")
		return PollStatus{}, false
	}
	return status, true
}

func (c *RedisTerminalCache) Put(ctx context.Context, jobID string, status PollStatus) {
	raw, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, terminalCacheKey(jobID), raw, terminalCacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("job_id", jobID).Msg("render: terminal cache write failed")
	}
}

var _ TerminalCache = (*RedisTerminalCache)(nil)
