// Package mysql provides a MySQL-family implementation of source.Source
// backed by database/sql.
package mysql

import (
	"context"
	"database/sql"

	"github.com/koustreak/DatLens/internal/source"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver
)

// Driver is a MySQL implementation of source.Source.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db       *sql.DB
	database string
}

// New opens a MySQL connection pool using the provided Config and returns
// a Driver. It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *source.Config) (*Driver, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, mapError(err, "invalid DSN")
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db, database: cfg.Database}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if d.database == "" {
		// Fall back to the database selected by the DSN.
		row := d.db.QueryRowContext(ctx, `SELECT DATABASE()`)
		var name sql.NullString
		if err := row.Scan(&name); err != nil {
			_ = db.Close()
			return nil, mapError(err, "resolve current database")
		}
		d.database = name.String
	}

	return d, nil
}

// --- source.Source implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}

func (d *Driver) DatabaseName() string {
	return d.database
}

// ReflectSchemaNames returns the connected database as the sole namespace.
// MySQL treats schema and database as the same concept.
func (d *Driver) ReflectSchemaNames(ctx context.Context) ([]string, error) {
	return []string{d.database}, nil
}

func (d *Driver) ReflectTableNames(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	return d.fetchNames(ctx, q, d.schemaOr(schema))
}

func (d *Driver) ReflectViewNames(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.views
		WHERE table_schema = ?
		ORDER BY table_name`

	return d.fetchNames(ctx, q, d.schemaOr(schema))
}

func (d *Driver) ReflectTable(ctx context.Context, table, schema string) (*source.Table, error) {
	sch := d.schemaOr(schema)

	columns, err := d.fetchColumns(ctx, sch, table)
	if err != nil {
		return nil, err
	}

	pk, err := d.fetchPrimaryKey(ctx, sch, table)
	if err != nil {
		return nil, err
	}

	fks, err := d.fetchForeignKeys(ctx, sch, table)
	if err != nil {
		return nil, err
	}

	return &source.Table{
		Name:        table,
		Columns:     columns,
		PrimaryKey:  pk,
		ForeignKeys: fks,
	}, nil
}

func (d *Driver) ReflectIndexes(ctx context.Context, table, schema string) ([]source.Index, error) {
	// One row per indexed column; seq_in_index gives the key order.
	// PRIMARY is reported through ReflectTable, not as an index.
	const q = `
		SELECT index_name,
		       column_name,
		       non_unique = 0
		FROM information_schema.statistics
		WHERE table_schema = ?
		  AND table_name   = ?
		  AND index_name  <> 'PRIMARY'
		ORDER BY index_name, seq_in_index`

	rows, err := d.db.QueryContext(ctx, q, d.schemaOr(schema), table)
	if err != nil {
		return nil, mapError(err, "failed to fetch indexes")
	}
	defer rows.Close()

	var indexes []source.Index
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &column, &unique); err != nil {
			return nil, mapError(err, "failed to scan index row")
		}
		if n := len(indexes); n > 0 && indexes[n-1].Name == name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, column)
			continue
		}
		indexes = append(indexes, source.Index{
			Name:    name,
			Columns: []string{column},
			Unique:  unique,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating indexes")
	}
	return indexes, nil
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (source.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &mysqlRows{rows: rows}, nil
}

// --- reflection helpers ---

// schemaOr resolves an empty schema argument to the connected database.
func (d *Driver) schemaOr(schema string) string {
	if schema == "" {
		return d.database
	}
	return schema
}

func (d *Driver) fetchNames(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, "failed to list catalog names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan catalog name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating catalog names")
	}
	return names, nil
}

func (d *Driver) fetchColumns(ctx context.Context, schema, table string) ([]source.Column, error) {
	// column_type carries the full rendered type (e.g. varchar(255), enum(...)).
	const q = `
		SELECT column_name,
		       column_type,
		       is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name   = ?
		ORDER BY ordinal_position`

	rows, err := d.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	var cols []source.Column
	for rows.Next() {
		var c source.Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (d *Driver) fetchPrimaryKey(ctx context.Context, schema, table string) ([]string, error) {
	const q = `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema    = ?
		  AND table_name      = ?
		  AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`

	return d.fetchNames(ctx, q, schema, table)
}

func (d *Driver) fetchForeignKeys(ctx context.Context, schema, table string) ([]source.ForeignKey, error) {
	const q = `
		SELECT constraint_name,
		       column_name,
		       referenced_table_name,
		       referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema           = ?
		  AND table_name             = ?
		  AND referenced_table_name IS NOT NULL
		ORDER BY constraint_name, ordinal_position`

	rows, err := d.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}
	defer rows.Close()

	var fks []source.ForeignKey
	for rows.Next() {
		var name, column, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refTable, &refColumn); err != nil {
			return nil, mapError(err, "failed to scan foreign key")
		}
		if n := len(fks); n > 0 && fks[n-1].Name == name {
			fks[n-1].ConstrainedColumns = append(fks[n-1].ConstrainedColumns, column)
			fks[n-1].ReferredColumns = append(fks[n-1].ReferredColumns, refColumn)
			continue
		}
		fks = append(fks, source.ForeignKey{
			Name:               name,
			ConstrainedColumns: []string{column},
			ReferredTable:      refTable,
			ReferredColumns:    []string{refColumn},
		})
	}
	return fks, rows.Err()
}

// --- sql.DB type wrappers ---

type mysqlRows struct {
	rows *sql.Rows
}

func (r *mysqlRows) Next() bool                 { return r.rows.Next() }
func (r *mysqlRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *mysqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *mysqlRows) Close()                     { _ = r.rows.Close() }
func (r *mysqlRows) Err() error                 { return r.rows.Err() }
