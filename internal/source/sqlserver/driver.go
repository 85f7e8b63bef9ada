// Package sqlserver provides a SQL-Server-family implementation of
// source.Source backed by database/sql.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/koustreak/DatLens/internal/source"

	_ "github.com/microsoft/go-mssqldb" // register "sqlserver" driver
)

// Driver is a SQL Server implementation of source.Source.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db       *sql.DB
	database string
}

// New opens a SQL Server connection pool using the provided Config and
// returns a Driver. It calls Ping to validate the connection before
// returning.
func New(ctx context.Context, cfg *source.Config) (*Driver, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
		row := d.db.QueryRowContext(ctx, `SELECT DB_NAME()`)
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

// ReflectSchemaNames returns the user schemas of the connected database.
// Built-in system namespaces and the fixed database roles are excluded.
func (d *Driver) ReflectSchemaNames(ctx context.Context) ([]string, error) {
	const q = `
		SELECT name
		FROM sys.schemas
		WHERE schema_id < 16384
		  AND name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
		ORDER BY name`

	return d.fetchNames(ctx, q)
}

func (d *Driver) ReflectTableNames(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE   = 'BASE TABLE'
		  AND TABLE_SCHEMA = @p1
		ORDER BY TABLE_NAME`

	return d.fetchNames(ctx, q, schema)
}

func (d *Driver) ReflectViewNames(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.VIEWS
		WHERE TABLE_SCHEMA = @p1
		ORDER BY TABLE_NAME`

	return d.fetchNames(ctx, q, schema)
}

func (d *Driver) ReflectTable(ctx context.Context, table, schema string) (*source.Table, error) {
	columns, err := d.fetchColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errTableNotFound(schema, table)
	}

	pk, err := d.fetchPrimaryKey(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	fks, err := d.fetchForeignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	return &source.Table{
		Schema:      schema,
		Name:        table,
		Columns:     columns,
		PrimaryKey:  pk,
		ForeignKeys: fks,
	}, nil
}

func (d *Driver) ReflectIndexes(ctx context.Context, table, schema string) ([]source.Index, error) {
	// key_ordinal gives the column order inside each index; heaps (type 0)
	// and the primary key index are excluded.
	const q = `
		SELECT i.name,
		       c.name,
		       i.is_unique
		FROM sys.indexes i
		JOIN sys.index_columns ic
			ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c
			ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1
		  AND t.name = @p2
		  AND i.type > 0
		  AND i.is_primary_key = 0
		ORDER BY i.name, ic.key_ordinal`

	rows, err := d.db.QueryContext(ctx, q, schema, table)
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
	return &mssqlRows{rows: rows}, nil
}

// --- reflection helpers ---

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
	const q = `
		SELECT COLUMN_NAME,
		       DATA_TYPE,
		       CHARACTER_MAXIMUM_LENGTH,
		       NUMERIC_PRECISION,
		       NUMERIC_SCALE,
		       IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1
		  AND TABLE_NAME   = @p2
		ORDER BY ORDINAL_POSITION`

	rows, err := d.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	var cols []source.Column
	for rows.Next() {
		var name, dataType, nullable string
		var maxLen, precision, scale sql.NullInt64
		if err := rows.Scan(&name, &dataType, &maxLen, &precision, &scale, &nullable); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		cols = append(cols, source.Column{
			Name:     name,
			DataType: renderType(dataType, maxLen, precision, scale),
			Nullable: nullable == "YES",
		})
	}
	return cols, rows.Err()
}

// renderType reconstructs the declared type string from catalog columns,
// e.g. nvarchar(50), decimal(19,4), varchar(max).
func renderType(dataType string, maxLen, precision, scale sql.NullInt64) string {
	switch dataType {
	case "char", "nchar", "varchar", "nvarchar", "binary", "varbinary":
		if !maxLen.Valid {
			return dataType
		}
		if maxLen.Int64 < 0 {
			return dataType + "(max)"
		}
		return fmt.Sprintf("%s(%d)", dataType, maxLen.Int64)
	case "decimal", "numeric":
		if precision.Valid && scale.Valid {
			return fmt.Sprintf("%s(%d,%d)", dataType, precision.Int64, scale.Int64)
		}
		return dataType
	default:
		return dataType
	}
}

func (d *Driver) fetchPrimaryKey(ctx context.Context, schema, table string) ([]string, error) {
	const q = `
		SELECT kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON kcu.CONSTRAINT_NAME   = tc.CONSTRAINT_NAME
			AND kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		  AND tc.TABLE_SCHEMA    = @p1
		  AND tc.TABLE_NAME      = @p2
		ORDER BY kcu.ORDINAL_POSITION`

	return d.fetchNames(ctx, q, schema, table)
}

func (d *Driver) fetchForeignKeys(ctx context.Context, schema, table string) ([]source.ForeignKey, error) {
	const q = `
		SELECT fk.name,
		       pc.name AS column_name,
		       rs.name AS referred_schema,
		       rt.name AS referred_table,
		       rc.name AS referred_column
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc
			ON fkc.constraint_object_id = fk.object_id
		JOIN sys.tables t  ON t.object_id  = fk.parent_object_id
		JOIN sys.schemas s ON s.schema_id  = t.schema_id
		JOIN sys.columns pc
			ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt  ON rt.object_id = fk.referenced_object_id
		JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
		JOIN sys.columns rc
			ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE s.name = @p1
		  AND t.name = @p2
		ORDER BY fk.name, fkc.constraint_column_id`

	rows, err := d.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}
	defer rows.Close()

	var fks []source.ForeignKey
	for rows.Next() {
		var name, column, refSchema, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refSchema, &refTable, &refColumn); err != nil {
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
			ReferredSchema:     refSchema,
			ReferredTable:      refTable,
			ReferredColumns:    []string{refColumn},
		})
	}
	return fks, rows.Err()
}

// --- sql.DB type wrappers ---

type mssqlRows struct {
	rows *sql.Rows
}

func (r *mssqlRows) Next() bool                 { return r.rows.Next() }
func (r *mssqlRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *mssqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *mssqlRows) Close()                     { _ = r.rows.Close() }
func (r *mssqlRows) Err() error                 { return r.rows.Err() }
