package introspect

import (
	"encoding/json"
	"fmt"
	"io"
)

// Report is the engine-neutral output of one deep scan. It is assembled by
// the Scanner and immutable once returned; key names are stable so that
// serialized reports can be diffed across engines and over time.
type Report struct {
	Metadata     Metadata                     `json:"metadata"`
	Schemas      []string                     `json:"schemas"`
	Dependencies Dependencies                 `json:"dependencies"`
	Tables       map[string]TableDescriptor   `json:"tables"`
	Indexes      map[string][]IndexDescriptor `json:"indexes"`
	Logic        Logic                        `json:"logic"`
	Warnings     Warnings                     `json:"warnings"`
}

// ReportVersion is the version of the report document format. Bumped when
// a key or shape changes in a way consumers must account for.
const ReportVersion = "1"

// Metadata records the provenance of a report. Set once at scan start.
type Metadata struct {
	Database string `json:"database"`
	Engine   Engine `json:"engine"`
	Version  string `json:"version"`
}

// Dependencies holds objects that tables and logic may depend on.
type Dependencies struct {
	UserDefinedTypes map[string]TypeDescriptor `json:"user_defined_types"`
	Sequences        map[string]string         `json:"sequences"`
}

// Logic holds the database-resident executable artifacts.
type Logic struct {
	Views      map[string]Definition        `json:"views"`
	Procedures map[string]Definition        `json:"procedures"`
	Functions  map[string]Definition        `json:"functions"`
	Triggers   map[string]TriggerDescriptor `json:"triggers"`
}

// Warnings holds informational metadata: scheduled jobs and synonyms.
// Engines lacking a concept report an empty mapping, never nil.
type Warnings struct {
	Events   map[string]EventDescriptor `json:"events"`
	Synonyms map[string]string          `json:"synonyms"`
}

// TableDescriptor describes one table's structure.
type TableDescriptor struct {
	Type        string             `json:"type"` // always "table"
	Columns     []ColumnDescriptor `json:"columns"`
	PrimaryKey  []string           `json:"primary_key"`
	ForeignKeys []ForeignKeyRef    `json:"foreign_keys"`
}

// ColumnDescriptor is one column: name, rendered declared type, nullability.
type ColumnDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ForeignKeyRef is an outgoing reference from a table.
type ForeignKeyRef struct {
	ReferredTable      string   `json:"referred_table"`
	ReferredSchema     string   `json:"referred_schema,omitempty"`
	ConstrainedColumns []string `json:"constrained_columns"`
}

// IndexDescriptor is one index on a table.
type IndexDescriptor struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TypeDescriptor describes a user-defined type.
type TypeDescriptor struct {
	Length    int64 `json:"length"`
	Precision int64 `json:"precision"`
}

// EventDescriptor describes a scheduled event or agent job. MySQL-family
// engines fill Schedule/Status; SQL-Server-family engines fill
// Enabled/Description.
type EventDescriptor struct {
	Schedule    string `json:"schedule,omitempty"`
	Status      string `json:"status,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
	Description string `json:"description,omitempty"`
}

// Definition is the extracted body of a logic object: either verbatim
// source code or, when extraction of that one object failed, an error
// placeholder. A failed object never aborts the surrounding extraction.
type Definition struct {
	Source string
	Err    string
}

// Def returns a successful Definition holding source code.
func Def(src string) Definition {
	return Definition{Source: src}
}

// DefError returns an error-placeholder Definition for one broken object.
func DefError(err error) Definition {
	return Definition{Err: err.Error()}
}

// IsError reports whether this Definition is an error placeholder.
func (d Definition) IsError() bool {
	return d.Err != ""
}

// String returns the source code, or the error placeholder text.
func (d Definition) String() string {
	if d.IsError() {
		return "Error extracting definition: " + d.Err
	}
	return d.Source
}

// MarshalJSON renders the Definition as a plain string, keeping the report
// format uniform: readers see source code or an error placeholder.
func (d Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// TriggerDescriptor describes one trigger. MySQL-family engines report the
// structured fields plus a best-effort reconstructed CREATE TRIGGER
// statement; SQL-Server-family engines report the verbatim module body.
type TriggerDescriptor struct {
	Event          string `json:"event,omitempty"`
	Table          string `json:"table,omitempty"`
	Timing         string `json:"timing,omitempty"`
	Statement      string `json:"statement,omitempty"`
	DefinitionFull string `json:"definition_full,omitempty"`

	Definition Definition `json:"-"`
}

// MarshalJSON renders structured triggers as objects and body-only triggers
// as plain strings, matching the Definition convention.
func (t TriggerDescriptor) MarshalJSON() ([]byte, error) {
	if t.Event == "" && t.Statement == "" {
		return t.Definition.MarshalJSON()
	}
	type alias TriggerDescriptor
	return json.Marshal(alias(t))
}

// Summary holds the per-layer object counts of a report.
type Summary struct {
	Schemas    int `json:"schemas"`
	Tables     int `json:"tables"`
	Indexes    int `json:"indexes"`
	Sequences  int `json:"sequences"`
	Types      int `json:"user_defined_types"`
	Views      int `json:"views"`
	Procedures int `json:"procedures"`
	Functions  int `json:"functions"`
	Triggers   int `json:"triggers"`
	Events     int `json:"events"`
	Synonyms   int `json:"synonyms"`
}

// Summary computes the object counts for observability. Error placeholders
// count as objects: the scan saw them even if extraction failed.
func (r *Report) Summary() Summary {
	indexes := 0
	for _, descs := range r.Indexes {
		indexes += len(descs)
	}
	return Summary{
		Schemas:    len(r.Schemas),
		Tables:     len(r.Tables),
		Indexes:    indexes,
		Sequences:  len(r.Dependencies.Sequences),
		Types:      len(r.Dependencies.UserDefinedTypes),
		Views:      len(r.Logic.Views),
		Procedures: len(r.Logic.Procedures),
		Functions:  len(r.Logic.Functions),
		Triggers:   len(r.Logic.Triggers),
		Events:     len(r.Warnings.Events),
		Synonyms:   len(r.Warnings.Synonyms),
	}
}

// MarshalIndent serializes the report with indentation for storage.
func (r *Report) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "    ")
}

// WriteSummary renders a human-readable summary tree.
func (r *Report) WriteSummary(w io.Writer) {
	s := r.Summary()

	fmt.Fprintf(w, "INTROSPECTION REPORT: %s (%s)\n", r.Metadata.Database, r.Metadata.Engine)

	fmt.Fprintf(w, "\nSTRUCTURE\n")
	fmt.Fprintf(w, "   schemas:    %d\n", s.Schemas)
	fmt.Fprintf(w, "   tables:     %d\n", s.Tables)
	fmt.Fprintf(w, "   indexes:    %d\n", s.Indexes)
	fmt.Fprintf(w, "   sequences:  %d\n", s.Sequences)

	fmt.Fprintf(w, "\nLOGIC\n")
	fmt.Fprintf(w, "   views:      %d\n", s.Views)
	fmt.Fprintf(w, "   procedures: %d\n", s.Procedures)
	fmt.Fprintf(w, "   functions:  %d\n", s.Functions)
	fmt.Fprintf(w, "   triggers:   %d\n", s.Triggers)

	fmt.Fprintf(w, "\nWARNINGS\n")
	fmt.Fprintf(w, "   events/jobs: %s\n", countOrNone(s.Events))
	fmt.Fprintf(w, "   synonyms:    %s\n", countOrNone(s.Synonyms))
}

func countOrNone(n int) string {
	if n == 0 {
		return "none"
	}
	return fmt.Sprintf("%d", n)
}
