package introspect

import (
	"context"

	"github.com/koustreak/DatLens/internal/errs"
	"github.com/koustreak/DatLens/internal/logger"
	"github.com/koustreak/DatLens/internal/source"
)

// SQL Server object type codes in sys.objects.
const (
	objView       = "V"
	objProcedure  = "P"
	objTrigger    = "TR"
	objScalarFunc = "FN"
	objInlineFunc = "IF"
	objTableFunc  = "TF"
)

// SQLServerWorker implements Introspector for the SQL Server family.
//
// Objects are namespaced by schema, so every mapping key is qualified as
// schema.object. Logic bodies all live in sys.sql_modules and are fetched
// through one shared catalog join filtered by object type code.
type SQLServerWorker struct {
	src source.Source
	log *logger.Logger
}

// NewSQLServerWorker binds a worker to one metadata source for one scan.
func NewSQLServerWorker(src source.Source, log *logger.Logger) *SQLServerWorker {
	if log == nil {
		log = logger.New(nil)
	}
	return &SQLServerWorker{src: src, log: log}
}

// --- Layer 1: Structure ---

func (w *SQLServerWorker) Schemas(ctx context.Context) ([]string, error) {
	return w.src.ReflectSchemaNames(ctx)
}

// Tables iterates every schema. A single unreadable table (type the login
// cannot see, permission gap) is skipped with a warning; the scan keeps
// the rest of the inventory.
func (w *SQLServerWorker) Tables(ctx context.Context) (map[string]TableDescriptor, error) {
	schemas, err := w.src.ReflectSchemaNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make(map[string]TableDescriptor)
	for _, schema := range schemas {
		names, err := w.src.ReflectTableNames(ctx, schema)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			qualified := schema + "." + name
			t, err := w.src.ReflectTable(ctx, name, schema)
			if err != nil {
				w.log.Warnf("could not read table %s, skipping: %v", qualified, err)
				continue
			}
			tables[qualified] = descriptorFor(t)
		}
	}
	return tables, nil
}

func (w *SQLServerWorker) Indexes(ctx context.Context) (map[string][]IndexDescriptor, error) {
	schemas, err := w.src.ReflectSchemaNames(ctx)
	if err != nil {
		return nil, err
	}

	indexes := make(map[string][]IndexDescriptor)
	for _, schema := range schemas {
		names, err := w.src.ReflectTableNames(ctx, schema)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			qualified := schema + "." + name
			idxs, err := w.src.ReflectIndexes(ctx, name, schema)
			if err != nil {
				w.log.Warnf("could not read indexes of %s, skipping: %v", qualified, err)
				continue
			}
			indexes[qualified] = indexDescriptors(idxs)
		}
	}
	return indexes, nil
}

// --- Layer 2: Dependencies ---

func (w *SQLServerWorker) UserDefinedTypes(ctx context.Context) (map[string]TypeDescriptor, error) {
	const q = `
		SELECT name, max_length, precision
		FROM sys.types
		WHERE is_user_defined = 1`

	rows, err := w.src.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	listing, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	udts := make(map[string]TypeDescriptor, len(listing))
	for _, row := range listing {
		udts[cell(row, 0)] = TypeDescriptor{
			Length:    asInt64(row[1]),
			Precision: asInt64(row[2]),
		}
	}
	return udts, nil
}

func (w *SQLServerWorker) Sequences(ctx context.Context) (map[string]string, error) {
	// current_value is sql_variant; render it as text.
	const q = `SELECT name, CAST(current_value AS nvarchar(40)) FROM sys.sequences`

	rows, err := w.src.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	listing, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	sequences := make(map[string]string, len(listing))
	for _, row := range listing {
		sequences[cell(row, 0)] = cell(row, 1)
	}
	return sequences, nil
}

// --- Layer 3: Business logic ---

func (w *SQLServerWorker) Views(ctx context.Context) (map[string]Definition, error) {
	return w.sqlModules(ctx, objView)
}

func (w *SQLServerWorker) Procedures(ctx context.Context) (map[string]Definition, error) {
	return w.sqlModules(ctx, objProcedure)
}

// Functions merges the three function kinds the engine models separately:
// scalar (FN), inline table-valued (IF), and table-valued (TF). Qualified
// names keep the merged mapping collision-free.
func (w *SQLServerWorker) Functions(ctx context.Context) (map[string]Definition, error) {
	merged := make(map[string]Definition)
	for _, code := range []string{objScalarFunc, objInlineFunc, objTableFunc} {
		defs, err := w.sqlModules(ctx, code)
		if err != nil {
			return nil, err
		}
		for name, def := range defs {
			merged[name] = def
		}
	}
	return merged, nil
}

func (w *SQLServerWorker) Triggers(ctx context.Context) (map[string]TriggerDescriptor, error) {
	defs, err := w.sqlModules(ctx, objTrigger)
	if err != nil {
		return nil, err
	}

	triggers := make(map[string]TriggerDescriptor, len(defs))
	for name, def := range defs {
		triggers[name] = TriggerDescriptor{Definition: def}
	}
	return triggers, nil
}

// sqlModules extracts source code for one object type from sys.sql_modules.
// An object whose definition column is NULL (encrypted module) gets an
// error placeholder instead of hiding the object.
func (w *SQLServerWorker) sqlModules(ctx context.Context, typeCode string) (map[string]Definition, error) {
	const q = `
		SELECT s.name + '.' + o.name, m.definition
		FROM sys.objects o
		JOIN sys.sql_modules m ON o.object_id = m.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE o.type = @p1`

	rows, err := w.src.Query(ctx, q, typeCode)
	if err != nil {
		return nil, err
	}
	listing, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	objects := make(map[string]Definition, len(listing))
	for _, row := range listing {
		name := cell(row, 0)
		if len(row) < 2 || row[1] == nil {
			w.log.Warnf("module %s: definition is hidden (encrypted module)", name)
			objects[name] = DefError(errs.New(errs.ErrKindPermissionDenied, "module definition is hidden"))
			continue
		}
		objects[name] = Def(asString(row[1]))
	}
	return objects, nil
}

// --- Layer 4: Warnings ---

// Events reads SQL Server Agent jobs from the msdb job catalog.
func (w *SQLServerWorker) Events(ctx context.Context) (map[string]EventDescriptor, error) {
	const q = `SELECT name, enabled, description FROM msdb.dbo.sysjobs`

	rows, err := w.src.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	listing, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	jobs := make(map[string]EventDescriptor, len(listing))
	for _, row := range listing {
		enabled := asBool(row[1])
		jobs[cell(row, 0)] = EventDescriptor{
			Enabled:     &enabled,
			Description: cell(row, 2),
		}
	}
	return jobs, nil
}

func (w *SQLServerWorker) Synonyms(ctx context.Context) (map[string]string, error) {
	const q = `SELECT name, base_object_name FROM sys.synonyms`

	rows, err := w.src.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	listing, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	synonyms := make(map[string]string, len(listing))
	for _, row := range listing {
		synonyms[cell(row, 0)] = cell(row, 1)
	}
	return synonyms, nil
}
