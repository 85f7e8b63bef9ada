package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatLens/internal/config"
	"github.com/koustreak/DatLens/internal/errs"
	"github.com/koustreak/DatLens/internal/introspect"
	"github.com/koustreak/DatLens/internal/reportstore"
	"github.com/koustreak/DatLens/internal/source"
)

// stubSource is a minimal source.Source: one schema, no objects, and one
// canned result set for raw queries.
type stubSource struct {
	database string
	rows     *stubRows
	closed   bool
}

func (s *stubSource) Ping(ctx context.Context) error { return nil }
func (s *stubSource) Close() error                   { s.closed = true; return nil }
func (s *stubSource) DatabaseName() string           { return s.database }

func (s *stubSource) ReflectSchemaNames(ctx context.Context) ([]string, error) {
	return []string{s.database}, nil
}

func (s *stubSource) ReflectTableNames(ctx context.Context, schema string) ([]string, error) {
	return nil, nil
}

func (s *stubSource) ReflectViewNames(ctx context.Context, schema string) ([]string, error) {
	return nil, nil
}

func (s *stubSource) ReflectTable(ctx context.Context, table, schema string) (*source.Table, error) {
	return nil, errs.Newf(errs.ErrKindNotFound, "no table %s", table)
}

func (s *stubSource) ReflectIndexes(ctx context.Context, table, schema string) ([]source.Index, error) {
	return nil, nil
}

func (s *stubSource) Query(ctx context.Context, sql string, args ...any) (source.Rows, error) {
	if s.rows == nil {
		return &stubRows{}, nil
	}
	return s.rows, nil
}

type stubRows struct {
	cols []string
	rows [][]any
	idx  int
	cur  []any
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.cur = r.rows[r.idx]
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	for i, d := range dest {
		*(d.(*any)) = r.cur[i]
	}
	return nil
}

func (r *stubRows) Columns() ([]string, error) { return r.cols, nil }
func (r *stubRows) Close()                     {}
func (r *stubRows) Err() error                 { return nil }

func newTestServer(t *testing.T, src *stubSource) (*Server, reportstore.Store) {
	t.Helper()

	store, err := reportstore.NewFSStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Targets: []config.Target{
			{Name: "rental", Engine: "mysql", DSN: "root@tcp(localhost)/rental", Database: "rental"},
		},
	}

	srv := New(cfg, store, nil)
	srv.SetConnectFunc(func(ctx context.Context, t *config.Target) (source.Source, introspect.Engine, error) {
		if src == nil {
			return nil, "", errs.New(errs.ErrKindConnectionFailed, "target unreachable")
		}
		return src, introspect.EngineMySQL, nil
	})
	return srv, store
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{database: "rental"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Targets(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{database: "rental"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/targets", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var targets []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &targets))
	require.Len(t, targets, 1)
	assert.Equal(t, "rental", targets[0]["name"])
	assert.Equal(t, "mysql", targets[0]["engine"])
}

func TestServer_Scan(t *testing.T) {
	src := &stubSource{database: "rental"}
	srv, store := newTestServer(t, src)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan/rental", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var report introspect.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "rental", report.Metadata.Database)
	assert.Equal(t, introspect.EngineMySQL, report.Metadata.Engine)
	assert.Equal(t, []string{"rental"}, report.Schemas)

	// The report is persisted under its canonical key.
	stored, err := store.Get(context.Background(), reportstore.Key("mysql", "rental"))
	require.NoError(t, err)
	assert.NotEmpty(t, stored)

	assert.True(t, src.closed, "the scan source must be closed after the request")
}

func TestServer_Scan_UnknownTarget(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{database: "rental"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan/absent", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Scan_ConnectFailure(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan/rental", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_Reports(t *testing.T) {
	srv, store := newTestServer(t, &stubSource{database: "rental"})

	key := reportstore.Key("mysql", "rental")
	require.NoError(t, store.Put(context.Background(), key, []byte(`{"schemas":["rental"]}`)))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var infos []reportstore.ReportInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, key, infos[0].Key)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+key, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"schemas":["rental"]}`, rec.Body.String())
}

func TestServer_Reports_Missing(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{database: "rental"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/absent.json", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Query(t *testing.T) {
	src := &stubSource{
		database: "rental",
		rows: &stubRows{
			cols: []string{"n"},
			rows: [][]any{{int64(1)}},
		},
	}
	srv, _ := newTestServer(t, src)

	body := bytes.NewBufferString(`{"sql":"SELECT 1 AS n"}`)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query/rental", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows  []map[string]any `json:"rows"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, float64(1), resp.Rows[0]["n"])
}

func TestServer_Query_RejectsWrites(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{database: "rental"})

	for _, stmt := range []string{
		"DROP TABLE film",
		"delete from film",
		"UPDATE film SET title = 'x'",
		"INSERT INTO film VALUES (1)",
		"",
	} {
		body, _ := json.Marshal(map[string]string{"sql": stmt})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query/rental", bytes.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code, "statement %q must be rejected", stmt)
	}
}

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		sql string
		ok  bool
	}{
		{"SELECT 1", true},
		{"  select * from film", true},
		{"SHOW TABLES", true},
		{"EXPLAIN SELECT 1", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"DESCRIBE film", true},
		{"DROP TABLE film", false},
		{"TRUNCATE film", false},
		{"", false},
	}

	for _, tt := range tests {
		err := checkReadOnly(tt.sql)
		if tt.ok {
			assert.NoError(t, err, "sql: %s", tt.sql)
		} else {
			assert.Error(t, err, "sql: %s", tt.sql)
		}
	}
}
