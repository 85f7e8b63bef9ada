package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/DatLens/internal/logger"
	"github.com/koustreak/DatLens/internal/source"
)

// MySQLWorker implements Introspector for the MySQL family.
//
// Structure is read through the source's reflection primitives. Logic
// objects need SHOW statements, since no catalog view carries routine
// source code at full fidelity: views and routines are fetched one
// SHOW CREATE at a time, triggers and events come from the SHOW listing.
type MySQLWorker struct {
	src source.Source
	log *logger.Logger
}

// NewMySQLWorker binds a worker to one metadata source for one scan.
func NewMySQLWorker(src source.Source, log *logger.Logger) *MySQLWorker {
	if log == nil {
		log = logger.New(nil)
	}
	return &MySQLWorker{src: src, log: log}
}

// --- Layer 1: Structure ---

func (w *MySQLWorker) Schemas(ctx context.Context) ([]string, error) {
	return w.src.ReflectSchemaNames(ctx)
}

func (w *MySQLWorker) Tables(ctx context.Context) (map[string]TableDescriptor, error) {
	names, err := w.src.ReflectTableNames(ctx, "")
	if err != nil {
		return nil, err
	}

	tables := make(map[string]TableDescriptor, len(names))
	for _, name := range names {
		t, err := w.src.ReflectTable(ctx, name, "")
		if err != nil {
			return nil, fmt.Errorf("reflect table %s: %w", name, err)
		}
		tables[name] = descriptorFor(t)
	}
	return tables, nil
}

func (w *MySQLWorker) Indexes(ctx context.Context) (map[string][]IndexDescriptor, error) {
	names, err := w.src.ReflectTableNames(ctx, "")
	if err != nil {
		return nil, err
	}

	indexes := make(map[string][]IndexDescriptor, len(names))
	for _, name := range names {
		idxs, err := w.src.ReflectIndexes(ctx, name, "")
		if err != nil {
			return nil, fmt.Errorf("reflect indexes of %s: %w", name, err)
		}
		indexes[name] = indexDescriptors(idxs)
	}
	return indexes, nil
}

// --- Layer 2: Dependencies ---

// UserDefinedTypes returns an empty mapping: MySQL has no user-defined types.
func (w *MySQLWorker) UserDefinedTypes(ctx context.Context) (map[string]TypeDescriptor, error) {
	return map[string]TypeDescriptor{}, nil
}

// Sequences returns an empty mapping: MySQL has no sequence objects.
func (w *MySQLWorker) Sequences(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

// --- Layer 3: Business logic ---

func (w *MySQLWorker) Views(ctx context.Context) (map[string]Definition, error) {
	names, err := w.src.ReflectViewNames(ctx, "")
	if err != nil {
		return nil, err
	}

	views := make(map[string]Definition, len(names))
	for _, name := range names {
		// SHOW CREATE VIEW: View | Create View | charset | collation
		def, err := w.showCreate(ctx, "SHOW CREATE VIEW "+quoteIdent(name), 1)
		if err != nil {
			w.log.Warnf("view %s: definition unavailable: %v", name, err)
			views[name] = DefError(err)
			continue
		}
		views[name] = Def(def)
	}
	return views, nil
}

func (w *MySQLWorker) Procedures(ctx context.Context) (map[string]Definition, error) {
	return w.routines(ctx, "PROCEDURE")
}

func (w *MySQLWorker) Functions(ctx context.Context) (map[string]Definition, error) {
	return w.routines(ctx, "FUNCTION")
}

// routines runs the two-pass extraction for stored routines: the STATUS
// listing yields names only, so each body needs its own SHOW CREATE.
func (w *MySQLWorker) routines(ctx context.Context, kind string) (map[string]Definition, error) {
	listStmt := fmt.Sprintf("SHOW %s STATUS WHERE Db = DATABASE() AND Type = '%s'", kind, kind)

	rows, err := w.src.Query(ctx, listStmt)
	if err != nil {
		return nil, err
	}
	listing, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	defs := make(map[string]Definition, len(listing))
	for _, row := range listing {
		// Db | Name | Type | ...
		name := cell(row, 1)
		if name == "" {
			continue
		}

		// SHOW CREATE PROCEDURE/FUNCTION: Name | sql_mode | Create ... | ...
		body, err := w.showCreate(ctx, fmt.Sprintf("SHOW CREATE %s %s", kind, quoteIdent(name)), 2)
		if err != nil {
			w.log.Warnf("%s %s: definition unavailable: %v", strings.ToLower(kind), name, err)
			defs[name] = DefError(err)
			continue
		}
		defs[name] = Def(body)
	}
	return defs, nil
}

func (w *MySQLWorker) Triggers(ctx context.Context) (map[string]TriggerDescriptor, error) {
	rows, err := w.src.Query(ctx, "SHOW TRIGGERS")
	if err != nil {
		return nil, err
	}
	listing, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	triggers := make(map[string]TriggerDescriptor, len(listing))
	for _, row := range listing {
		// Trigger | Event | Table | Statement | Timing | ...
		name := cell(row, 0)
		event := cell(row, 1)
		table := cell(row, 2)
		statement := cell(row, 3)
		timing := cell(row, 4)

		triggers[name] = TriggerDescriptor{
			Event:     event,
			Table:     table,
			Timing:    timing,
			Statement: statement,
			// Reconstructed for convenience; exact CREATE syntax varies by
			// server version, so treat as best-effort, not round-trippable.
			DefinitionFull: fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s FOR EACH ROW %s",
				name, timing, event, table, statement),
		}
	}
	return triggers, nil
}

// --- Layer 4: Warnings ---

func (w *MySQLWorker) Events(ctx context.Context) (map[string]EventDescriptor, error) {
	rows, err := w.src.Query(ctx, "SHOW EVENTS")
	if err != nil {
		return nil, err
	}
	listing, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	events := make(map[string]EventDescriptor, len(listing))
	for _, row := range listing {
		// Db | Name | Definer | Time zone | Type | Execute at |
		// Interval value | Interval field | Starts | Ends | Status | ...
		name := cell(row, 1)
		events[name] = EventDescriptor{
			Schedule: eventSchedule(cell(row, 5), cell(row, 6), cell(row, 7)),
			Status:   cell(row, 10),
		}
	}
	return events, nil
}

// Synonyms returns an empty mapping: MySQL has no synonym objects.
func (w *MySQLWorker) Synonyms(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

// --- helpers ---

// showCreate runs a SHOW CREATE statement and picks the definition column.
func (w *MySQLWorker) showCreate(ctx context.Context, stmt string, col int) (string, error) {
	rows, err := w.src.Query(ctx, stmt)
	if err != nil {
		return "", err
	}
	row, err := firstRow(rows)
	if err != nil {
		return "", err
	}
	return cell(row, col), nil
}

// cell reads column i of a raw row, tolerating short rows across
// server versions.
func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return asString(row[i])
}

// eventSchedule renders the SHOW EVENTS schedule columns as one expression.
func eventSchedule(executeAt, intervalValue, intervalField string) string {
	if intervalValue != "" {
		return fmt.Sprintf("EVERY %s %s", intervalValue, intervalField)
	}
	if executeAt != "" {
		return "AT " + executeAt
	}
	return ""
}

// quoteIdent backtick-quotes a MySQL identifier for SHOW statements,
// which cannot be parameterized.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
