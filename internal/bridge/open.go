package bridge

import (
	"context"
	"database/sql"

	"pgai-openai/internal/config"
	xerrors "pgai-openai/internal/errors"
	"pgai-openai/internal/llm/guard"
	"pgai-openai/internal/llm/openai"
	"pgai-openai/internal/observability/metrics"
	"pgai-openai/internal/settings"
	"pgai-openai/internal/storage"
	"pgai-openai/pkg/logger"
)

// Open 按配置连接数据库与 Redis，并组装 Bridge。
//
// 配置了数据库时会占用一个独立会话：设置读取与取消探测都在该会话上执行，
// 这样会话级的 SET 与查询取消都能被观察到。
func Open(ctx context.Context, cfg *config.Config) (*Bridge, error) {
	var (
		closers []func() error
		session *sql.Conn
		dialect storage.Dialect
	)
	fail := func(err error) (*Bridge, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	if cfg.Database.DSN != "" {
		db, d, err := storage.Open(ctx, storage.Config{
			Driver:          cfg.Database.Driver,
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime(),
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, db.Close)
		conn, err := db.Conn(ctx)
		if err != nil {
			return fail(xerrors.Wrap(xerrors.CodeStorageFailure, err, "获取数据库会话失败"))
		}
		closers = append(closers, conn.Close)
		session, dialect = conn, d
	}

	var source settings.Source
	switch cfg.Settings.Source {
	case "database":
		if session == nil {
			return fail(xerrors.New(xerrors.CodeConfiguration, "未配置数据库，无法从数据库读取设置"))
		}
		if dialect == storage.DialectMySQL {
			source = settings.NewMySQL(session)
		} else {
			source = settings.NewPostgres(session)
		}
	case "redis":
		client, err := storage.OpenRedis(ctx, storage.RedisConfig{
			Address:  cfg.Settings.Redis.Address,
			Password: cfg.Settings.Redis.Password,
			DB:       cfg.Settings.Redis.DB,
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		source = settings.NewRedis(client, cfg.Settings.Redis.Hash)
	case "static":
		source = settings.Static(cfg.Settings.Static)
	default:
		source = settings.Env{Prefix: cfg.Settings.EnvPrefix}
	}

	var probe guard.Probe
	if session != nil {
		probe = storage.NewProbe(session, dialect)
	}
	g := guard.New(probe,
		guard.WithInterval(cfg.Guard.PollInterval()),
		guard.WithLogger(logger.Named("guard"), logger.Audit()),
		guard.WithRecorder(metrics.Default()),
	)

	cache, err := openai.NewCache(cfg.ClientCache.Size)
	if err != nil {
		return fail(err)
	}

	b, err := New(source, cache, g, openai.Options{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout(),
	})
	if err != nil {
		return fail(err)
	}
	b.closers = closers
	return b, nil
}
