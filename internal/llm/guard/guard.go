// Package guard runs one remote call in the background while polling the
// database for cancellation of the enclosing query.
package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	xerrors "pgai-openai/internal/errors"
	"pgai-openai/internal/llm"
	"pgai-openai/internal/observability/metrics"
	"pgai-openai/pkg/logger"
)

// DefaultInterval 是两次取消探测之间的间隔。
const DefaultInterval = 100 * time.Millisecond

// 调用结果标签，用于日志与指标。
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeCancelled  = "cancelled"
	OutcomeProbeError = "probe_error"
)

// Probe 判断外层查询是否已被取消。
type Probe interface {
	Cancelled(ctx context.Context) (bool, error)
}

// ProbeFunc 让普通函数满足 Probe 接口。
type ProbeFunc func(ctx context.Context) (bool, error)

// Cancelled 实现 Probe。
func (f ProbeFunc) Cancelled(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Recorder 接收每次调用的结果统计。
type Recorder interface {
	ObserveCall(operation, outcome string, duration time.Duration)
}

// Func 是可以被 guard 驱动的异步调用。
type Func[C, T any] func(ctx context.Context, client C, params llm.Params) (T, error)

// Guard 持有探测器与轮询配置，可在多次调用间复用。
type Guard struct {
	probe    Probe
	interval time.Duration
	logger   *slog.Logger
	audit    *slog.Logger
	recorder Recorder
}

// Option 定义可选的 Guard 配置。
type Option func(*Guard)

// WithInterval 设置探测间隔，非正数时沿用默认值。
func WithInterval(interval time.Duration) Option {
	return func(g *Guard) {
		if interval > 0 {
			g.interval = interval
		}
	}
}

// WithLogger 设置运行日志与审计日志。
func WithLogger(log, audit *slog.Logger) Option {
	return func(g *Guard) {
		if log != nil {
			g.logger = log
		}
		if audit != nil {
			g.audit = audit
		}
	}
}

// WithRecorder 设置指标收集器。
func WithRecorder(recorder Recorder) Option {
	return func(g *Guard) {
		if recorder != nil {
			g.recorder = recorder
		}
	}
}

// New 创建 Guard。probe 为 nil 时只依赖 ctx 的取消信号。
func New(probe Probe, opts ...Option) *Guard {
	g := &Guard{
		probe:    probe,
		interval: DefaultInterval,
		logger:   logger.Named("guard"),
		audit:    logger.Audit(),
		recorder: metrics.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Interval 返回探测间隔。
func (g *Guard) Interval() time.Duration {
	return g.interval
}

type result[T any] struct {
	value T
	err   error
}

// Execute 在后台 goroutine 中执行 fn，并在等待期间按间隔探测取消。
//
// 调用先于取消完成时，结果与错误原样返回。探测到取消或 ctx 被取消、到期时，
// 后台调用的 context 会被取消，并返回 errors.CodeCancelled 错误；
// 由 ctx 引起的取消会包裹 ctx.Err()。此时不会等待后台调用退出。
func Execute[C, T any](ctx context.Context, g *Guard, client C, op string, fn func(context.Context, C, llm.Params) (T, error), params llm.Params) (T, error) {
	if g == nil {
		g = New(nil)
	}
	callID := uuid.NewString()
	log := g.logger.With(slog.String("call_id", callID), slog.String("operation", op))
	start := time.Now()

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		value, err := fn(callCtx, client, params)
		done <- result[T]{value: value, err: err}
	}()

	var ticker *time.Ticker
	var tick <-chan time.Time
	if g.probe != nil {
		ticker = time.NewTicker(g.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var zero T
	for {
		select {
		case res := <-done:
			return finish(g, log, callID, op, start, res)
		default:
		}
		if ctx.Err() != nil {
			return zero, g.callerCancelled(ctx, cancel, log, callID, op, start)
		}

		if g.probe != nil {
			cancelled, err := g.probe.Cancelled(ctx)
			// 探测失败可能只是调用方 ctx 已到期，此时按取消处理。
			if ctx.Err() != nil {
				return zero, g.callerCancelled(ctx, cancel, log, callID, op, start)
			}
			if err != nil {
				cancel()
				g.record(log, callID, op, start, OutcomeProbeError, err)
				return zero, xerrors.Wrap(xerrors.CodeStorageFailure, err, "取消探测失败",
					xerrors.WithMetadata("call_id", callID))
			}
			if cancelled {
				cancel()
				g.record(log, callID, op, start, OutcomeCancelled, nil)
				return zero, xerrors.New(xerrors.CodeCancelled, xerrors.ErrQueryCancelled.Message(),
					xerrors.WithMetadata("call_id", callID))
			}
		}

		select {
		case res := <-done:
			return finish(g, log, callID, op, start, res)
		case <-ctx.Done():
			return zero, g.callerCancelled(ctx, cancel, log, callID, op, start)
		case <-tick:
		}
	}
}

// callerCancelled 处理调用方 ctx 被取消或到期的情况，返回的错误包裹 ctx.Err()。
func (g *Guard) callerCancelled(ctx context.Context, cancel context.CancelFunc, log *slog.Logger, callID, op string, start time.Time) error {
	cancel()
	g.record(log, callID, op, start, OutcomeCancelled, ctx.Err())
	return xerrors.Wrap(xerrors.CodeCancelled, ctx.Err(), xerrors.ErrQueryCancelled.Message(),
		xerrors.WithMetadata("call_id", callID))
}

func finish[T any](g *Guard, log *slog.Logger, callID, op string, start time.Time, res result[T]) (T, error) {
	outcome := OutcomeOK
	if res.err != nil {
		outcome = OutcomeError
	}
	g.record(log, callID, op, start, outcome, res.err)
	return res.value, res.err
}

func (g *Guard) record(log *slog.Logger, callID, op string, start time.Time, outcome string, err error) {
	elapsed := time.Since(start)
	g.recorder.ObserveCall(op, outcome, elapsed)

	attrs := []any{
		slog.String("call_id", callID),
		slog.String("operation", op),
		slog.String("outcome", outcome),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	g.audit.Info("openai call", attrs...)

	switch outcome {
	case OutcomeOK:
		log.Debug("调用完成", slog.Duration("duration", elapsed))
	case OutcomeCancelled:
		log.Info("外层查询已取消，放弃调用", slog.Duration("duration", elapsed))
	default:
		log.Warn("调用失败", slog.String("outcome", outcome), slog.Any("error", err))
	}
}
