// Package storagetest provides an in-process database/sql driver for tests.
// Every query is answered by a Handler returning a single-column, single-row
// result, which is enough to exercise setting lookups and probe queries.
package storagetest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
)

// DriverName is the name the fake driver is registered under.
const DriverName = "storagetest"

// Handler answers one query. Returning NoRows yields an empty result set;
// returning nil yields a single NULL value.
type Handler func(ctx context.Context, query string, args []any) (any, error)

type noRows struct{}

// NoRows makes a query return zero rows.
var NoRows any = noRows{}

var (
	registerOnce sync.Once
	mu           sync.Mutex
	handlers     = map[string]Handler{}
	seq          int
)

// Open returns a *sql.DB backed by h. The handle is closed on test cleanup.
func Open(t testing.TB, h Handler) *sql.DB {
	t.Helper()
	registerOnce.Do(func() {
		sql.Register(DriverName, fakeDriver{})
	})

	mu.Lock()
	seq++
	name := fmt.Sprintf("db-%d", seq)
	handlers[name] = h
	mu.Unlock()

	db, err := sql.Open(DriverName, name)
	if err != nil {
		t.Fatalf("open fake db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		mu.Lock()
		delete(handlers, name)
		mu.Unlock()
	})
	return db
}

type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) {
	mu.Lock()
	h, ok := handlers[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("storagetest: unknown database %q", name)
	}
	return &conn{handler: h}, nil
}

type conn struct {
	handler Handler
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) {
	return nil, errors.New("storagetest: transactions are not supported")
}

func (c *conn) Ping(context.Context) error { return nil }

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	values := make([]any, len(args))
	for i, arg := range args {
		values[i] = arg.Value
	}
	value, err := c.handler(ctx, query, values)
	if err != nil {
		return nil, err
	}
	if _, empty := value.(noRows); empty {
		return &rows{done: true}, nil
	}
	return &rows{value: value}, nil
}

type stmt struct {
	conn  *conn
	query string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("storagetest: exec is not supported")
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	named := make([]driver.NamedValue, len(args))
	for i, arg := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: arg}
	}
	return s.conn.QueryContext(context.Background(), s.query, named)
}

type rows struct {
	value any
	done  bool
}

func (r *rows) Columns() []string { return []string{"value"} }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = r.value
	return nil
}
