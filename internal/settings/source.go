package settings

import (
	"context"
	"strings"
)

// 约定的设置项名称。
const (
	KeyOpenAIAPIKey  = "ai.openai_api_key"
	KeyOpenAIBaseURL = "ai.openai_base_url"
)

// Source 描述一个可以按名称读取字符串设置的后端。
//
// 找不到设置（包括值为 NULL 或空串）时返回 ok=false 且 err=nil；
// 只有后端本身出错时才返回 error。
type Source interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
}

// SourceFunc 让普通函数满足 Source 接口。
type SourceFunc func(ctx context.Context, key string) (string, bool, error)

// Get 实现 Source。
func (f SourceFunc) Get(ctx context.Context, key string) (string, bool, error) {
	return f(ctx, key)
}

// Static 是调用方显式提供的设置集合。
type Static map[string]string

// Get 实现 Source。
func (s Static) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := s[key]
	if !ok || strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}

// Chain 依次查询多个 Source，返回第一个命中的值。
type Chain []Source

// Get 实现 Source。任一后端出错即终止查询。
func (c Chain) Get(ctx context.Context, key string) (string, bool, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		value, ok, err := src.Get(ctx, key)
		if err != nil {
			return "", false, err
		}
		if ok {
			return value, true, nil
		}
	}
	return "", false, nil
}
