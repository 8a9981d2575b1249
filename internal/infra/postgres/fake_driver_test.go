package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeState is a tiny in-memory stand-in for the two tables.
type fakeState struct {
	mu       sync.Mutex
	docs     map[string][]byte
	order    []string
	tokens   map[string]int64
	execErr  error
	queryErr error
	ddl      int
}

func newFakeState() *fakeState {
	return &fakeState{docs: map[string][]byte{}, tokens: map[string]int64{}}
}

var fakeDriverCounter atomic.Int64

type fakeDriver struct{ st *fakeState }

type fakeConn struct{ st *fakeState }

type fakeRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (d fakeDriver) Open(string) (driver.Conn, error) { return fakeConn(d), nil }

func (c fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c fakeConn) Close() error                        { return nil }
func (c fakeConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }

func key(args []driver.NamedValue) string {
	return fmt.Sprintf("%v/%v", args[0].Value, args[1].Value)
}

func (c fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	st := c.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.execErr != nil {
		return nil, st.execErr
	}
	switch {
	case strings.HasPrefix(query, "CREATE"):
		st.ddl++
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(query, "INSERT INTO documents"):
		k := key(args)
		if _, ok := st.docs[k]; ok {
			return nil, errors.New("duplicate key value violates unique constraint")
		}
		st.docs[k] = []byte(args[2].Value.(string))
		st.order = append(st.order, k)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(query, "UPDATE documents"):
		k := key(args)
		cur, ok := st.docs[k]
		if !ok {
			return driver.RowsAffected(0), nil
		}
		merged := map[string]any{}
		_ = json.Unmarshal(cur, &merged)
		patch := map[string]any{}
		_ = json.Unmarshal([]byte(args[2].Value.(string)), &patch)
		for f, v := range patch {
			merged[f] = v
		}
		st.docs[k], _ = json.Marshal(merged)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("unexpected exec %q", query)
}

func (c fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	st := c.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.queryErr != nil {
		return nil, st.queryErr
	}
	switch {
	case strings.HasPrefix(query, "SELECT data FROM documents"):
		rows := &fakeRows{cols: []string{"data"}}
		if raw, ok := st.docs[key(args)]; ok {
			rows.data = append(rows.data, []driver.Value{raw})
		}
		return rows, nil
	case strings.HasPrefix(query, "SELECT id, data FROM documents"):
		rows := &fakeRows{cols: []string{"id", "data"}}
		prefix := fmt.Sprintf("%v/", args[0].Value)
		for _, k := range st.order {
			if strings.HasPrefix(k, prefix) {
				rows.data = append(rows.data, []driver.Value{strings.TrimPrefix(k, prefix), st.docs[k]})
			}
		}
		return rows, nil
	case strings.HasPrefix(query, "SELECT token, rate_limit"):
		rows := &fakeRows{cols: []string{"token", "rate_limit"}}
		names := make([]string, 0, len(st.tokens))
		for t := range st.tokens {
			names = append(names, t)
		}
		sort.Strings(names)
		for _, t := range names {
			rows.data = append(rows.data, []driver.Value{t, st.tokens[t]})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unexpected query %q", query)
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.i])
	r.i++
	return nil
}

// openFake returns a DB manager already holding a pool on the fake driver.
func openFake(t *testing.T, st *fakeState) *DB {
	t.Helper()
	name := fmt.Sprintf("jerseyprint_fakedrv_%d", fakeDriverCounter.Add(1))
	sql.Register(name, fakeDriver{st: st})
	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &DB{db: db, dsn: "fake"}
}
