// Package bridge wires settings, the OpenAI client cache and the
// cancellation guard together so that one named operation can be invoked
// with JSON parameters on behalf of a database session.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	xerrors "pgai-openai/internal/errors"
	"pgai-openai/internal/llm"
	"pgai-openai/internal/llm/guard"
	"pgai-openai/internal/llm/openai"
	"pgai-openai/internal/settings"
	"pgai-openai/pkg/logger"
)

// 参数中可以逐次覆盖凭据的字段，调用前会从参数中移除。
const (
	ParamAPIKey  = "api_key"
	ParamBaseURL = "base_url"
)

// Bridge 负责一次次地把操作请求转成受保护的 OpenAI 调用。
type Bridge struct {
	source  settings.Source
	cache   *openai.Cache
	guard   *guard.Guard
	options openai.Options
	logger  *slog.Logger
	closers []func() error
}

// New 用现成的组件创建 Bridge。defaults 中的 APIKey/BaseURL 优先于 source。
func New(source settings.Source, cache *openai.Cache, g *guard.Guard, defaults openai.Options) (*Bridge, error) {
	if cache == nil {
		var err error
		if cache, err = openai.NewCache(0); err != nil {
			return nil, err
		}
	}
	if g == nil {
		g = guard.New(nil)
	}
	return &Bridge{
		source:  source,
		cache:   cache,
		guard:   g,
		options: defaults,
		logger:  logger.Named("bridge"),
	}, nil
}

// Invoke 执行名为 op 的操作。input 是 JSON 对象文本，nil 表示无参数。
func (b *Bridge) Invoke(ctx context.Context, op string, input *string) (any, error) {
	fn, ok := openai.Operation(op)
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("未知的操作 %q，可选: %s", op, strings.Join(openai.OperationNames(), ", ")))
	}

	params, err := llm.ProcessParams(input)
	if err != nil {
		return nil, err
	}
	opts := b.callOptions(params)

	client, err := b.cache.AsyncClient(ctx, b.source, opts)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("invoke", slog.String("operation", op), slog.String("base_url", client.BaseURL()))
	return guard.Execute[*openai.AsyncClient, any](ctx, b.guard, client, op, fn, params)
}

// callOptions 合并默认选项与参数中的逐次覆盖，并从参数中删除这些字段。
func (b *Bridge) callOptions(params llm.Params) openai.Options {
	opts := b.options
	if key, ok := params.String(ParamAPIKey); ok {
		opts.APIKey = key
	}
	if url, ok := params.String(ParamBaseURL); ok {
		opts.BaseURL = url
	}
	delete(params, ParamAPIKey)
	delete(params, ParamBaseURL)
	return opts
}

// Close 释放 Open 打开的连接。
func (b *Bridge) Close() error {
	var err error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if cerr := b.closers[i](); cerr != nil && err == nil {
			err = cerr
		}
	}
	b.closers = nil
	return err
}
