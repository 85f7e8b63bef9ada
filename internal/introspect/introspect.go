// Package introspect is the introspection core: a dialect-neutral worker
// contract, one conforming worker per engine family, and a coordinating
// Scanner that assembles their output into a single Report.
//
// Each database engine exposes metadata through its own non-portable
// surface (SHOW commands, sys.* catalogs). The Introspector contract hides
// that: callers see eleven uniform extraction operations and one report
// shape, regardless of which engine produced it.
package introspect

import "context"

// Introspector is the capability contract every engine worker implements.
// Eleven extraction operations in four semantic layers.
//
// Contract rules:
//   - Every mapping-returning method yields a non-nil map; an engine with
//     no applicable concept returns an empty map rather than failing.
//   - A method never fails for one broken object: per-object failures are
//     folded into the mapping as error placeholders keyed by the object's
//     name, so one bad view cannot hide the others.
//   - Methods are independently callable and idempotent against an
//     unchanged database.
type Introspector interface {
	// Layer 1: Structure

	// Schemas returns the schema namespaces of the target, in stable
	// order. Engines without namespacing return the database name as the
	// sole entry.
	Schemas(ctx context.Context) ([]string, error)

	// Tables returns every base table keyed by qualified name.
	Tables(ctx context.Context) (map[string]TableDescriptor, error)

	// Indexes returns the indexes of every table keyed by qualified
	// table name.
	Indexes(ctx context.Context) (map[string][]IndexDescriptor, error)

	// Layer 2: Dependencies

	// UserDefinedTypes returns user-defined scalar types.
	UserDefinedTypes(ctx context.Context) (map[string]TypeDescriptor, error)

	// Sequences returns sequences with their current value.
	Sequences(ctx context.Context) (map[string]string, error)

	// Layer 3: Business logic

	// Views returns view definitions.
	Views(ctx context.Context) (map[string]Definition, error)

	// Procedures returns stored procedure definitions.
	Procedures(ctx context.Context) (map[string]Definition, error)

	// Functions returns user-defined function definitions.
	Functions(ctx context.Context) (map[string]Definition, error)

	// Triggers returns triggers with their events and bodies.
	Triggers(ctx context.Context) (map[string]TriggerDescriptor, error)

	// Layer 4: Warnings

	// Events returns scheduled events / agent jobs.
	Events(ctx context.Context) (map[string]EventDescriptor, error)

	// Synonyms returns synonyms with their base object name.
	Synonyms(ctx context.Context) (map[string]string, error)
}
