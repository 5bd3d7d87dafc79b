package settings

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"regexp"
	"strings"

	xerrors "pgai-openai/internal/errors"
)

// Querier 是 *sql.DB、*sql.Conn 与 *sql.Tx 的公共子集。
//
// PostgreSQL 的 SET 与 MySQL 的用户变量都是会话级的，需要读取调用方会话里
// 的设置时应传入同一个 *sql.Conn，而不是连接池。
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres 通过 current_setting(name, missing_ok) 读取 GUC 设置。
type Postgres struct {
	DB Querier
}

// NewPostgres 创建基于 PostgreSQL 会话设置的 Source。
func NewPostgres(db Querier) *Postgres {
	return &Postgres{DB: db}
}

const postgresSettingQuery = "select pg_catalog.current_setting($1, true) as value"

// Get 实现 Source。未定义的设置返回 NULL，按缺失处理。
func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	if p == nil || p.DB == nil {
		return "", false, xerrors.New(xerrors.CodeStorageFailure, "未配置 PostgreSQL 连接")
	}
	return scanSetting(p.DB.QueryRowContext(ctx, postgresSettingQuery, key), key)
}

// MySQL 通过会话用户变量读取设置，例如 SET @`ai.openai_api_key` = '...'.
type MySQL struct {
	DB Querier
}

// NewMySQL 创建基于 MySQL 用户变量的 Source。
func NewMySQL(db Querier) *MySQL {
	return &MySQL{DB: db}
}

var variableName = regexp.MustCompile(`^[A-Za-z0-9_.$]+$`)

// Get 实现 Source。用户变量名无法参数化，因此先校验再加引号拼接。
func (m *MySQL) Get(ctx context.Context, key string) (string, bool, error) {
	if m == nil || m.DB == nil {
		return "", false, xerrors.New(xerrors.CodeStorageFailure, "未配置 MySQL 连接")
	}
	query, err := mysqlSettingQuery(key)
	if err != nil {
		return "", false, err
	}
	return scanSetting(m.DB.QueryRowContext(ctx, query), key)
}

func mysqlSettingQuery(key string) (string, error) {
	if !variableName.MatchString(key) {
		return "", xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("非法的设置名称: %q", key))
	}
	return "SELECT @`" + key + "` AS value", nil
}

func scanSetting(row *sql.Row, key string) (string, bool, error) {
	var value sql.NullString
	if err := row.Scan(&value); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取数据库设置失败",
			xerrors.WithMetadata("key", key))
	}
	if !value.Valid || strings.TrimSpace(value.String) == "" {
		return "", false, nil
	}
	return value.String, true, nil
}
