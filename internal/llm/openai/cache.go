package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"pgai-openai/internal/settings"
)

const defaultCacheSize = 16

type cacheKey struct {
	keyDigest string
	baseURL   string
	timeout   time.Duration
}

// Cache 复用已构建的异步客户端，使相同凭据与地址的调用共享连接池。
type Cache struct {
	clients *lru.Cache[cacheKey, *AsyncClient]
}

// NewCache 创建容量为 size 的客户端缓存，size<=0 时使用默认容量。
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	clients, err := lru.New[cacheKey, *AsyncClient](size)
	if err != nil {
		return nil, err
	}
	return &Cache{clients: clients}, nil
}

// AsyncClient 解析凭据后返回缓存中的客户端，未命中时新建并放入缓存。
func (c *Cache) AsyncClient(ctx context.Context, src settings.Source, opts Options) (*AsyncClient, error) {
	apiKey, baseURL, err := resolve(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}
	digest := sha256.Sum256([]byte(apiKey))
	key := cacheKey{keyDigest: hex.EncodeToString(digest[:]), baseURL: baseURL, timeout: timeout}

	if client, ok := c.clients.Get(key); ok {
		return client, nil
	}
	client := newAsyncClient(apiKey, baseURL, timeout)
	c.clients.Add(key, client)
	return client, nil
}

// Len 返回缓存中的客户端数量。
func (c *Cache) Len() int {
	return c.clients.Len()
}
