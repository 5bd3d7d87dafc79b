package storage

import (
	"context"
	stdErrors "errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"pgai-openai/internal/settings"
)

const (
	// PostgreSQL query_canceled（SQLSTATE 57014）。
	pgQueryCanceled = "57014"
	// MySQL ER_QUERY_INTERRUPTED。
	mysqlQueryInterrupted = 1317
)

// Probe 通过执行 SELECT 1 探测外层查询是否已被取消。
type Probe struct {
	db      settings.Querier
	dialect Dialect
}

// NewProbe 创建探测器。db 应当是外层查询所在的会话。
func NewProbe(db settings.Querier, dialect Dialect) *Probe {
	return &Probe{db: db, dialect: dialect}
}

// Cancelled 执行一次探测查询。查询成功返回 false；失败且属于该方言的取消类
// 错误返回 true；其他失败原样返回 error。
func (p *Probe) Cancelled(ctx context.Context) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	if err == nil {
		return false, nil
	}
	if p.dialect.QueryCanceled(err) {
		return true, nil
	}
	return false, err
}

// QueryCanceled 判断数据库错误是否表示查询被取消：PostgreSQL 看 SQLSTATE，
// MySQL 看错误号，两者都接受 context.Canceled。
func (d Dialect) QueryCanceled(err error) bool {
	if err == nil {
		return false
	}
	if stdErrors.Is(err, context.Canceled) {
		return true
	}
	switch d {
	case DialectPostgres:
		var pgErr *pgconn.PgError
		return stdErrors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled
	case DialectMySQL:
		var mysqlErr *mysql.MySQLError
		return stdErrors.As(err, &mysqlErr) && mysqlErr.Number == mysqlQueryInterrupted
	default:
		return false
	}
}
