package settings

import (
	"context"
	"os"
	"strings"
)

// Env 从进程环境变量读取设置。ai.openai_api_key 对应 AI_OPENAI_API_KEY，
// 设置 Prefix 后变为 <PREFIX>_AI_OPENAI_API_KEY。
type Env struct {
	Prefix string
	// Aliases 为个别设置项指定额外的环境变量名，按顺序尝试。
	Aliases map[string][]string
}

// Get 实现 Source。
func (e Env) Get(_ context.Context, key string) (string, bool, error) {
	names := append([]string{e.VarName(key)}, e.Aliases[key]...)
	for _, name := range names {
		value, ok := os.LookupEnv(name)
		if ok && strings.TrimSpace(value) != "" {
			return value, true, nil
		}
	}
	return "", false, nil
}

// VarName 返回设置项对应的环境变量名。
func (e Env) VarName(key string) string {
	name := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if prefix := strings.TrimSpace(e.Prefix); prefix != "" {
		name = strings.ToUpper(strings.TrimSuffix(prefix, "_")) + "_" + name
	}
	return name
}
