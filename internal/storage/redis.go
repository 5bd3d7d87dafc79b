package storage

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	xerrors "pgai-openai/internal/errors"
)

// RedisConfig 描述 Redis 的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// OpenRedis 创建 Redis 客户端并确认可用。
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, xerrors.New(xerrors.CodeConfiguration, "Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 Redis 失败")
	}
	return client, nil
}
