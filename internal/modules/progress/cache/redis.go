package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

// Redis keeps every record as one field of a single hash.
type Redis struct {
	rdb  goredis.UniversalClient
	hash string
	log  *logger.Logger
}

func NewRedis(rdb goredis.UniversalClient, prefix string, baseLog *logger.Logger) *Redis {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "pathprogress"
	}
	return &Redis{rdb: rdb, hash: prefix + ":progress", log: baseLog.With("cache", "redis")}
}

func (c *Redis) Load(ctx context.Context) (map[string]*types.PathProgress, error) {
	fields, err := c.rdb.HGetAll(ctx, c.hash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make(map[string]*types.PathProgress, len(fields))
	for k, raw := range fields {
		var p types.PathProgress
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			c.log.Warn("dropping unreadable cache field", "cache_key", k, "error", err)
			continue
		}
		out[k] = &p
	}
	return out, nil
}

func (c *Redis) Save(ctx context.Context, records map[string]*types.PathProgress) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]interface{}, 0, 2*len(records))
	for k, p := range records {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		values = append(values, k, string(raw))
	}
	if err := c.rdb.HSet(ctx, c.hash, values...).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}
