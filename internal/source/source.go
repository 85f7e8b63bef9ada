// Package source defines the metadata-source contract consumed by the
// introspection engine.
//
// A Source is a live, read-only handle to one database. It exposes two
// surfaces: uniform reflection primitives (schema names, table structure,
// indexes) that work the same on every engine, and a raw Query pass-through
// for the dialect-specific catalog statements only a concrete engine worker
// knows how to issue. Engine workers talk only to this package; they never
// import the mysql or sqlserver driver packages directly.
package source

import "context"

// Source is the contract every database driver must implement.
// It is bound to a single database for its whole lifetime and is owned
// by the caller, which must Close it after the scan completes.
type Source interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close() error

	// DatabaseName returns the name of the connected database.
	DatabaseName() string

	// ReflectSchemaNames returns the schema namespaces of the database.
	// Engines without schema namespacing return the database name as the
	// sole entry.
	ReflectSchemaNames(ctx context.Context) ([]string, error)

	// ReflectTableNames returns the base-table names in the given schema.
	// Pass "" on engines without schema namespacing.
	ReflectTableNames(ctx context.Context, schema string) ([]string, error)

	// ReflectViewNames returns the view names in the given schema.
	ReflectViewNames(ctx context.Context, schema string) ([]string, error)

	// ReflectTable returns the full structure of one table: columns in
	// ordinal order, the ordered primary key, and foreign keys.
	ReflectTable(ctx context.Context, table, schema string) (*Table, error)

	// ReflectIndexes returns the indexes defined on one table.
	ReflectIndexes(ctx context.Context, table, schema string) ([]Index, error)

	// Query executes a dialect-specific read-only statement and returns
	// its rows. This is the raw pass-through used for catalog and SHOW
	// statements that reflection cannot cover.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Column describes a single column in a table.
type Column struct {
	Name     string
	DataType string // rendered engine type, e.g. "varchar(255)"
	Nullable bool
}

// ForeignKey describes an outgoing reference from one table.
type ForeignKey struct {
	Name               string
	ConstrainedColumns []string
	ReferredSchema     string // empty on engines without schema namespacing
	ReferredTable      string
	ReferredColumns    []string
}

// Table describes one table's structure as reflected from the catalog.
type Table struct {
	Schema      string // empty on engines without schema namespacing
	Name        string
	Columns     []Column
	PrimaryKey  []string // ordered constrained columns, empty if no PK
	ForeignKeys []ForeignKey
}

// Index describes a single index on a table.
type Index struct {
	Name    string
	Columns []string // in key order
	Unique  bool
}
