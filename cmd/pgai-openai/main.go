package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pgai-openai/internal/bridge"
	"pgai-openai/internal/config"
	xerrors "pgai-openai/internal/errors"
	"pgai-openai/internal/llm/openai"
	"pgai-openai/internal/observability/metrics"
	"pgai-openai/pkg/logger"
)

// main 是 pgai-openai 命令行工具的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		logger.L().Error("pgai-openai 运行失败", "error", err, "code", xerrors.CodeOf(err))
		_ = logger.Sync()
		if xerrors.IsCancelled(err) {
			os.Exit(130)
		}
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pgai-openai", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("PGAI_CONFIG"), "配置文件路径 (YAML 或 JSON)")
	op := fs.String("op", "list_models", "操作: "+strings.Join(openai.OperationNames(), ", "))
	params := fs.String("params", "", "JSON 对象形式的调用参数")
	metricsOut := fs.String("metrics-out", "", "调用结束后写出 Prometheus 指标的文件")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}

	b, err := bridge.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	var input *string
	if strings.TrimSpace(*params) != "" {
		input = params
	}
	result, invokeErr := b.Invoke(ctx, *op, input)

	if *metricsOut != "" {
		if err := os.WriteFile(*metricsOut, []byte(metrics.Default().Render()), 0o644); err != nil {
			invokeErr = errors.Join(invokeErr, fmt.Errorf("写出指标失败: %w", err))
		}
	}
	if invokeErr != nil {
		return invokeErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
