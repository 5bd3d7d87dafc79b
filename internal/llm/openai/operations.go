package openai

import (
	"context"
	"sort"

	goopenai "github.com/sashabaranov/go-openai"

	"pgai-openai/internal/llm"
)

// ListModels 列出当前凭据可用的模型。
func (c *Client) ListModels(ctx context.Context) (goopenai.ModelsList, error) {
	return c.api.ListModels(ctx)
}

// Embed 生成向量。必填参数 model、input；可选 dimensions、user、encoding_format。
func (c *Client) Embed(ctx context.Context, params llm.Params) (goopenai.EmbeddingResponse, error) {
	if err := params.Require("model", "input"); err != nil {
		return goopenai.EmbeddingResponse{}, err
	}
	var req goopenai.EmbeddingRequest
	if err := params.Decode(&req); err != nil {
		return goopenai.EmbeddingResponse{}, err
	}
	return c.api.CreateEmbeddings(ctx, req)
}

// ChatComplete 发起一次非流式的对话补全。必填参数 model、messages。
func (c *Client) ChatComplete(ctx context.Context, params llm.Params) (goopenai.ChatCompletionResponse, error) {
	if err := params.Require("model", "messages"); err != nil {
		return goopenai.ChatCompletionResponse{}, err
	}
	var req goopenai.ChatCompletionRequest
	if err := params.Decode(&req); err != nil {
		return goopenai.ChatCompletionResponse{}, err
	}
	req.Stream = false
	return c.api.CreateChatCompletion(ctx, req)
}

// Moderate 调用内容审核接口。必填参数 input，可选 model。
func (c *Client) Moderate(ctx context.Context, params llm.Params) (goopenai.ModerationResponse, error) {
	if err := params.Require("input"); err != nil {
		return goopenai.ModerationResponse{}, err
	}
	var req goopenai.ModerationRequest
	if err := params.Decode(&req); err != nil {
		return goopenai.ModerationResponse{}, err
	}
	return c.api.Moderations(ctx, req)
}

// 以下函数签名与 guard.Execute 期望的异步调用一致。

// ListModels 是 Client.ListModels 的异步形式。
func ListModels(ctx context.Context, c *AsyncClient, _ llm.Params) (goopenai.ModelsList, error) {
	return c.ListModels(ctx)
}

// Embed 是 Client.Embed 的异步形式。
func Embed(ctx context.Context, c *AsyncClient, params llm.Params) (goopenai.EmbeddingResponse, error) {
	return c.Embed(ctx, params)
}

// ChatComplete 是 Client.ChatComplete 的异步形式。
func ChatComplete(ctx context.Context, c *AsyncClient, params llm.Params) (goopenai.ChatCompletionResponse, error) {
	return c.ChatComplete(ctx, params)
}

// Moderate 是 Client.Moderate 的异步形式。
func Moderate(ctx context.Context, c *AsyncClient, params llm.Params) (goopenai.ModerationResponse, error) {
	return c.Moderate(ctx, params)
}

// Func 是结果类型被擦除后的异步调用。
type Func func(ctx context.Context, c *AsyncClient, params llm.Params) (any, error)

var operations = map[string]Func{
	"list_models":   erase(ListModels),
	"embed":         erase(Embed),
	"chat_complete": erase(ChatComplete),
	"moderate":      erase(Moderate),
}

// Operation 按名称查找异步调用。
func Operation(name string) (Func, bool) {
	fn, ok := operations[name]
	return fn, ok
}

// OperationNames 返回所有已注册的调用名称。
func OperationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func erase[T any](fn func(context.Context, *AsyncClient, llm.Params) (T, error)) Func {
	return func(ctx context.Context, c *AsyncClient, params llm.Params) (any, error) {
		result, err := fn(ctx, c, params)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}
