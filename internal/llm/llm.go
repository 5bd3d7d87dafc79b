package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	xerrors "pgai-openai/internal/errors"
)

// Params 是传给远程调用的参数映射，通常来自一段 JSON 输入。
type Params map[string]any

// String 返回字符串参数，缺失或类型不符时 ok 为 false。
func (p Params) String(key string) (string, bool) {
	value, ok := p[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// Has 判断参数是否存在且不为 null。
func (p Params) Has(key string) bool {
	value, ok := p[key]
	return ok && value != nil
}

// Require 校验必填参数。
func (p Params) Require(keys ...string) error {
	for _, key := range keys {
		if !p.Has(key) {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("缺少参数 %s", key),
				xerrors.WithMetadata("param", key))
		}
	}
	return nil
}

// Decode 将参数映射解码到具体的请求结构体中。
func (p Params) Decode(dst any) error {
	encoded, err := json.Marshal(p)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "编码参数失败")
	}
	if err := json.Unmarshal(encoded, dst); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "参数格式不正确")
	}
	return nil
}
