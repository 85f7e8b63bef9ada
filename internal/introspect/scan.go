package introspect

import (
	"context"

	"github.com/koustreak/DatLens/internal/errs"
	"github.com/koustreak/DatLens/internal/logger"
	"github.com/koustreak/DatLens/internal/source"
)

// Engine identifies a database engine family. Worker routing happens on
// this enumerated selector, never by sniffing driver name substrings.
type Engine string

const (
	EngineMySQL     Engine = "mysql"
	EngineSQLServer Engine = "sqlserver"
)

// ParseEngine validates an engine-family name from configuration.
// "mssql" is accepted as a conventional alias for sqlserver.
func ParseEngine(s string) (Engine, error) {
	switch s {
	case "mysql":
		return EngineMySQL, nil
	case "sqlserver", "mssql":
		return EngineSQLServer, nil
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown engine family %q (want mysql or sqlserver)", s)
	}
}

// ResolveWorker returns the worker variant for the engine family, bound to
// src. An unrecognized selector fails before any query is issued.
func ResolveWorker(engine Engine, src source.Source, log *logger.Logger) (Introspector, error) {
	switch engine {
	case EngineMySQL:
		return NewMySQLWorker(src, log), nil
	case EngineSQLServer:
		return NewSQLServerWorker(src, log), nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "no worker for engine family %q", engine)
	}
}

// Scanner coordinates one deep scan: it resolves the worker for the engine
// family, runs all eleven extractions in a fixed order, and assembles the
// Report. The fixed order exists for deterministic reporting only; the
// extractions are independent of each other's results.
type Scanner struct {
	engine   Engine
	database string
	worker   Introspector
	log      *logger.Logger
}

// NewScanner resolves the worker for engine up front, so a bad selector
// fails here and never touches the database.
func NewScanner(engine Engine, src source.Source, log *logger.Logger) (*Scanner, error) {
	if log == nil {
		log = logger.New(nil)
	}
	worker, err := ResolveWorker(engine, src, log)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		engine:   engine,
		database: src.DatabaseName(),
		worker:   worker,
		log:      log,
	}, nil
}

// Scan runs the full extraction sequence and returns the assembled Report.
// Per-object failures are already absorbed inside the worker; an error
// returned here means a whole extraction layer failed and the scan is void.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	log := s.log.With().Str("database", s.database).Str("engine", string(s.engine)).Logger()
	log.Info("starting deep introspection scan")

	rep := &Report{
		Metadata: Metadata{Database: s.database, Engine: s.engine, Version: ReportVersion},
	}

	var err error

	// Structure
	if rep.Schemas, err = s.worker.Schemas(ctx); err != nil {
		return nil, err
	}

	// Dependencies
	if rep.Dependencies.UserDefinedTypes, err = s.worker.UserDefinedTypes(ctx); err != nil {
		return nil, err
	}
	if rep.Dependencies.Sequences, err = s.worker.Sequences(ctx); err != nil {
		return nil, err
	}

	// Tables and indexes
	if rep.Tables, err = s.worker.Tables(ctx); err != nil {
		return nil, err
	}
	if rep.Indexes, err = s.worker.Indexes(ctx); err != nil {
		return nil, err
	}

	// Logic
	if rep.Logic.Views, err = s.worker.Views(ctx); err != nil {
		return nil, err
	}
	if rep.Logic.Procedures, err = s.worker.Procedures(ctx); err != nil {
		return nil, err
	}
	if rep.Logic.Functions, err = s.worker.Functions(ctx); err != nil {
		return nil, err
	}
	if rep.Logic.Triggers, err = s.worker.Triggers(ctx); err != nil {
		return nil, err
	}

	// Warnings
	if rep.Warnings.Events, err = s.worker.Events(ctx); err != nil {
		return nil, err
	}
	if rep.Warnings.Synonyms, err = s.worker.Synonyms(ctx); err != nil {
		return nil, err
	}

	sum := rep.Summary()
	log.With().
		Int("tables", sum.Tables).
		Int("indexes", sum.Indexes).
		Int("views", sum.Views).
		Int("procedures", sum.Procedures).
		Int("functions", sum.Functions).
		Int("triggers", sum.Triggers).
		Logger().Info("scan complete")

	return rep, nil
}
