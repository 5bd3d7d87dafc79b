package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"pgai-openai/internal/settings"
)

// Options 描述构建客户端时调用方显式提供的参数，零值表示未提供。
type Options struct {
	APIKey  string
	BaseURL string
	// Timeout 仅对异步客户端生效。
	Timeout time.Duration
}

// Client 是绑定了凭据的同步客户端，调用在当前 goroutine 内完成。
type Client struct {
	api     *goopenai.Client
	baseURL string
}

// AsyncClient 是供 guard 在后台 goroutine 中驱动的客户端，额外携带超时。
type AsyncClient struct {
	*Client
	timeout time.Duration
}

// NewClient 创建同步客户端。未显式提供的 APIKey 与 BaseURL 从 src 中解析。
func NewClient(ctx context.Context, src settings.Source, opts Options) (*Client, error) {
	apiKey, baseURL, err := resolve(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	return newClient(clientConfig(apiKey, baseURL, 0)), nil
}

// NewAsyncClient 创建异步客户端，解析逻辑与 NewClient 相同。
func NewAsyncClient(ctx context.Context, src settings.Source, opts Options) (*AsyncClient, error) {
	apiKey, baseURL, err := resolve(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	return newAsyncClient(apiKey, baseURL, opts.Timeout), nil
}

func resolve(ctx context.Context, src settings.Source, opts Options) (apiKey, baseURL string, err error) {
	apiKey = strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		if apiKey, err = ResolveAPIKey(ctx, src); err != nil {
			return "", "", err
		}
	}
	baseURL = strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		if baseURL, err = ResolveBaseURL(ctx, src); err != nil {
			return "", "", err
		}
	}
	return apiKey, baseURL, nil
}

// clientConfig 只覆盖确实提供了的参数，其余沿用 go-openai 的默认值。
func clientConfig(apiKey, baseURL string, timeout time.Duration) goopenai.ClientConfig {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return cfg
}

func newAsyncClient(apiKey, baseURL string, timeout time.Duration) *AsyncClient {
	if timeout < 0 {
		timeout = 0
	}
	return &AsyncClient{
		Client:  newClient(clientConfig(apiKey, baseURL, timeout)),
		timeout: timeout,
	}
}

func newClient(cfg goopenai.ClientConfig) *Client {
	return &Client{
		api:     goopenai.NewClientWithConfig(cfg),
		baseURL: cfg.BaseURL,
	}
}

// API 返回底层的 go-openai 客户端。
func (c *Client) API() *goopenai.Client {
	return c.api
}

// BaseURL 返回客户端实际使用的 API 地址。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout 返回异步客户端的请求超时，0 表示沿用库默认值。
func (c *AsyncClient) Timeout() time.Duration {
	return c.timeout
}
