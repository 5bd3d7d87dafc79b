package openai

import (
	"context"
	"strings"

	xerrors "pgai-openai/internal/errors"
	"pgai-openai/internal/settings"
)

// ResolveAPIKey 从设置中读取 API Key，缺失时返回致命的配置错误。
func ResolveAPIKey(ctx context.Context, src settings.Source) (string, error) {
	if src == nil {
		return "", xerrors.New(xerrors.CodeConfiguration, xerrors.ErrMissingAPIKey.Message(),
			xerrors.WithMetadata("setting", settings.KeyOpenAIAPIKey))
	}
	value, ok, err := src.Get(ctx, settings.KeyOpenAIAPIKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", xerrors.New(xerrors.CodeConfiguration, xerrors.ErrMissingAPIKey.Message(),
			xerrors.WithMetadata("setting", settings.KeyOpenAIAPIKey))
	}
	return strings.TrimSpace(value), nil
}

// ResolveBaseURL 从设置中读取自定义的 API 地址，缺失时返回空串。
func ResolveBaseURL(ctx context.Context, src settings.Source) (string, error) {
	if src == nil {
		return "", nil
	}
	value, ok, err := src.Get(ctx, settings.KeyOpenAIBaseURL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(value), nil
}
