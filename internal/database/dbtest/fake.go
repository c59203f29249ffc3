// Package dbtest provides in-memory implementations of the database
// contracts for package tests.
package dbtest

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/koustreak/mngr/internal/database"
)

// Rows is a fixed result set. Scan assigns values by reflection, so test
// data can use the same Go types the pgx driver would produce.
type Rows struct {
	Cols   []string
	Values [][]any

	// IterErr is returned by Err once all values are consumed.
	IterErr error

	pos    int
	closed bool
}

// NewRows builds a result set with the given column names.
func NewRows(cols []string, values ...[]any) *Rows {
	return &Rows{Cols: cols, Values: values}
}

func (r *Rows) Next() bool {
	if r.closed || r.pos >= len(r.Values) {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.Values) {
		return fmt.Errorf("dbtest: scan called without a current row")
	}
	row := r.Values[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("dbtest: scan expects %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("dbtest: column %d: %w", i, err)
		}
	}
	return nil
}

func (r *Rows) Columns() ([]string, error) { return r.Cols, nil }
func (r *Rows) Close()                     { r.closed = true }
func (r *Rows) Err() error                 { return r.IterErr }

// Closed reports whether Close was called.
func (r *Rows) Closed() bool { return r.closed }

// assign stores src into the pointer dest, allocating through one level of
// pointer for nullable destinations such as **string.
func assign(dest, src any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination %T is not a non-nil pointer", dest)
	}
	target := dv.Elem()

	if src == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	switch {
	case sv.Type().AssignableTo(target.Type()):
		target.Set(sv)
	case target.Kind() == reflect.Pointer && sv.Type().AssignableTo(target.Type().Elem()):
		p := reflect.New(target.Type().Elem())
		p.Elem().Set(sv)
		target.Set(p)
	case isNumber(sv.Kind()) && isNumber(target.Kind()):
		target.Set(sv.Convert(target.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", src, target.Type())
	}
	return nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Row wraps a single-row result.
type Row struct {
	rows *Rows
	err  error
}

func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return fmt.Errorf("dbtest: no rows")
	}
	return r.rows.Scan(dest...)
}

// Call records one statement sent to DB.
type Call struct {
	SQL  string
	Args []any
}

// DB is a scripted database.DB. QueryFunc and ExecFunc decide the result
// of each call; every call is recorded. Safe for concurrent use.
type DB struct {
	QueryFunc func(ctx context.Context, sql string, args []any) (database.Rows, error)
	ExecFunc  func(ctx context.Context, sql string, args []any) (int64, error)
	PingErr   error

	mu     sync.Mutex
	calls  []Call
	closed bool
}

var _ database.DB = (*DB)(nil)

func (db *DB) record(sql string, args []any) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.calls = append(db.calls, Call{SQL: sql, Args: args})
}

// Calls returns a copy of the recorded calls in arrival order.
func (db *DB) Calls() []Call {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]Call, len(db.calls))
	copy(out, db.calls)
	return out
}

// LastCall returns the most recent call, or the zero Call.
func (db *DB) LastCall() Call {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.calls) == 0 {
		return Call{}
	}
	return db.calls[len(db.calls)-1]
}

func (db *DB) Ping(ctx context.Context) error { return db.PingErr }

func (db *DB) Close() {
	db.mu.Lock()
	db.closed = true
	db.mu.Unlock()
}

func (db *DB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	db.record(sql, args)
	if db.QueryFunc == nil {
		return NewRows(nil), nil
	}
	return db.QueryFunc(ctx, sql, args)
}

func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return &Row{err: err}, nil
	}
	fr, ok := rows.(*Rows)
	if !ok {
		return nil, fmt.Errorf("dbtest: QueryRow needs *dbtest.Rows, got %T", rows)
	}
	return &Row{rows: fr}, nil
}

func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	db.record(sql, args)
	if db.ExecFunc == nil {
		return 1, nil
	}
	return db.ExecFunc(ctx, sql, args)
}
