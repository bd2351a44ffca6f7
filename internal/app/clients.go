package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pathprogress/internal/clients/redis"
	"github.com/yungbote/pathprogress/internal/platform/logger"
	"github.com/yungbote/pathprogress/internal/realtime/bus"
)

type Clients struct {
	// Redis is nil when no address is configured.
	Redis *goredis.Client
	Bus   bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg RedisConfig) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.Addr == "" {
		log.Info("REDIS_ADDR not set, progress events stay in process")
		return Clients{Bus: bus.NewMemoryBus()}, nil
	}
	rdb, err := redis.NewClient(ctx, redis.Config{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	b, err := bus.NewRedisBus(rdb, cfg.Channel, log)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis bus: %w", err)
	}
	return Clients{Redis: rdb, Bus: b}, nil
}

func (c Clients) Close() {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
