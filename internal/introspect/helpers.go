package introspect

import (
	"fmt"

	"github.com/koustreak/DatLens/internal/errs"
	"github.com/koustreak/DatLens/internal/source"
)

// scanAll reads every row as a slice of raw values. It always closes rows.
func scanAll(rows source.Rows) ([][]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, dest)
	}
	return out, rows.Err()
}

// firstRow reads exactly one row as raw values. It always closes rows.
func firstRow(rows source.Rows) ([]any, error) {
	all, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errs.New(errs.ErrKindNotFound, "statement returned no rows")
	}
	return all[0], nil
}

// asString converts a raw scanned value into its string form.
// Drivers hand back []byte for most catalog text columns.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// asBool interprets a raw scanned value as a boolean flag
// (bit columns scan as int64 or []byte depending on the driver).
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case []byte:
		return len(t) > 0 && t[0] != 0 && t[0] != '0'
	default:
		return false
	}
}

// asInt64 interprets a raw scanned value as an integer, 0 when it is not one.
func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	default:
		return 0
	}
}

// descriptorFor converts a reflected table into its report descriptor.
func descriptorFor(t *source.Table) TableDescriptor {
	desc := TableDescriptor{
		Type:        "table",
		Columns:     make([]ColumnDescriptor, 0, len(t.Columns)),
		PrimaryKey:  t.PrimaryKey,
		ForeignKeys: make([]ForeignKeyRef, 0, len(t.ForeignKeys)),
	}
	if desc.PrimaryKey == nil {
		desc.PrimaryKey = []string{}
	}
	for _, c := range t.Columns {
		desc.Columns = append(desc.Columns, ColumnDescriptor{
			Name:     c.Name,
			Type:     c.DataType,
			Nullable: c.Nullable,
		})
	}
	for _, fk := range t.ForeignKeys {
		desc.ForeignKeys = append(desc.ForeignKeys, ForeignKeyRef{
			ReferredTable:      fk.ReferredTable,
			ReferredSchema:     fk.ReferredSchema,
			ConstrainedColumns: fk.ConstrainedColumns,
		})
	}
	return desc
}

// indexDescriptors converts reflected indexes into report descriptors.
func indexDescriptors(idxs []source.Index) []IndexDescriptor {
	descs := make([]IndexDescriptor, 0, len(idxs))
	for _, idx := range idxs {
		descs = append(descs, IndexDescriptor{
			Name:    idx.Name,
			Columns: idx.Columns,
			Unique:  idx.Unique,
		})
	}
	return descs
}
