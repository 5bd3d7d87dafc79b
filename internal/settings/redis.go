package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	xerrors "pgai-openai/internal/errors"
)

const defaultRedisHash = "pgai:settings"

// Redis 从一个 Redis hash 中读取设置，字段名即设置名。
type Redis struct {
	client redis.Cmdable
	hash   string
}

// NewRedis 创建 Redis 设置源，hash 为空时使用 pgai:settings。
func NewRedis(client redis.Cmdable, hash string) *Redis {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		hash = defaultRedisHash
	}
	return &Redis{client: client, hash: hash}
}

// Get 实现 Source。
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	if r == nil || r.client == nil {
		return "", false, xerrors.New(xerrors.CodeStorageFailure, "未配置 Redis 客户端")
	}
	value, err := r.client.HGet(ctx, r.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取 Redis 设置失败",
			xerrors.WithMetadata("key", key))
	}
	if strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}
