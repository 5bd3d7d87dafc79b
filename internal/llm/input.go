package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	xerrors "pgai-openai/internal/errors"
)

// ProcessJSON 将 JSON 文本解析为结构化值。input 为 nil 时返回 nil。
//
// 数字保持为 json.Number，避免大整数丢失精度。非法 JSON 返回
// *json.SyntaxError，不做包装。
func ProcessJSON(input *string) (any, error) {
	if input == nil {
		return nil, nil
	}
	data := []byte(*input)
	if !json.Valid(data) {
		var discard any
		return nil, json.Unmarshal(data, &discard)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// ProcessParams 将 JSON 对象文本解析为 Params。input 为 nil 时返回空映射。
func ProcessParams(input *string) (Params, error) {
	value, err := ProcessJSON(input)
	if err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case nil:
		return Params{}, nil
	case map[string]any:
		return Params(v), nil
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("参数必须是 JSON 对象，实际为 %T", value))
	}
}
