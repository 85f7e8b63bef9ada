package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/DatLens/internal/source"
)

// fakeSource is an in-memory source.Source for worker tests. Reflection
// data is served from maps; raw statements are matched against registered
// results by whitespace-normalized SQL text plus arguments.
type fakeSource struct {
	database string
	schemas  []string
	tables   map[string][]string       // schema -> table names
	views    map[string][]string       // schema -> view names
	defs     map[string]*source.Table  // objKey(schema, table)
	indexes  map[string][]source.Index // objKey(schema, table)
	tableErr map[string]error          // objKey(schema, table) -> reflect failure
	results  map[string]fakeResult     // queryKey(sql, args) -> rows
	queryErr map[string]error          // queryKey(sql, args) -> failure

	// executed records every raw statement issued, normalized.
	executed []string
}

type fakeResult struct {
	cols []string
	rows [][]any
}

func newFakeSource(database string, schemas ...string) *fakeSource {
	return &fakeSource{
		database: database,
		schemas:  schemas,
		tables:   map[string][]string{},
		views:    map[string][]string{},
		defs:     map[string]*source.Table{},
		indexes:  map[string][]source.Index{},
		tableErr: map[string]error{},
		results:  map[string]fakeResult{},
		queryErr: map[string]error{},
	}
}

func objKey(schema, table string) string {
	return schema + "." + table
}

// queryKey collapses SQL whitespace so multi-line statements can be
// registered as one-liners.
func queryKey(sql string, args ...any) string {
	key := strings.Join(strings.Fields(sql), " ")
	if len(args) > 0 {
		key += " | " + fmt.Sprint(args...)
	}
	return key
}

func (f *fakeSource) addTable(schema string, t *source.Table) {
	f.tables[schema] = append(f.tables[schema], t.Name)
	f.defs[objKey(schema, t.Name)] = t
}

func (f *fakeSource) addResult(sql string, cols []string, rows [][]any, args ...any) {
	f.results[queryKey(sql, args...)] = fakeResult{cols: cols, rows: rows}
}

func (f *fakeSource) Ping(ctx context.Context) error { return nil }
func (f *fakeSource) Close() error                   { return nil }
func (f *fakeSource) DatabaseName() string           { return f.database }

func (f *fakeSource) ReflectSchemaNames(ctx context.Context) ([]string, error) {
	return f.schemas, nil
}

func (f *fakeSource) ReflectTableNames(ctx context.Context, schema string) ([]string, error) {
	return f.tables[schema], nil
}

func (f *fakeSource) ReflectViewNames(ctx context.Context, schema string) ([]string, error) {
	return f.views[schema], nil
}

func (f *fakeSource) ReflectTable(ctx context.Context, table, schema string) (*source.Table, error) {
	key := objKey(schema, table)
	if err := f.tableErr[key]; err != nil {
		return nil, err
	}
	t, ok := f.defs[key]
	if !ok {
		return nil, fmt.Errorf("no fake table %s", key)
	}
	return t, nil
}

func (f *fakeSource) ReflectIndexes(ctx context.Context, table, schema string) ([]source.Index, error) {
	if err := f.tableErr[objKey(schema, table)]; err != nil {
		return nil, err
	}
	return f.indexes[objKey(schema, table)], nil
}

func (f *fakeSource) Query(ctx context.Context, sql string, args ...any) (source.Rows, error) {
	key := queryKey(sql, args...)
	f.executed = append(f.executed, key)

	if err := f.queryErr[key]; err != nil {
		return nil, err
	}
	res := f.results[key] // zero value: no columns, no rows
	return &fakeRows{cols: res.cols, rows: res.rows}, nil
}

// fakeRows replays a canned result set through the source.Rows contract.
type fakeRows struct {
	cols []string
	rows [][]any
	idx  int
	cur  []any
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.cur = r.rows[r.idx]
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	for i, d := range dest {
		p, ok := d.(*any)
		if !ok {
			return fmt.Errorf("fakeRows.Scan: dest %d is %T, want *any", i, d)
		}
		if i < len(r.cur) {
			*p = r.cur[i]
		} else {
			*p = nil
		}
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }
func (r *fakeRows) Close()                     {}
func (r *fakeRows) Err() error                 { return nil }
