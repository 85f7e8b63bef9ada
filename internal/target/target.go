// Package target turns configured targets into live metadata sources.
package target

import (
	"context"

	"github.com/koustreak/DatLens/internal/config"
	"github.com/koustreak/DatLens/internal/introspect"
	"github.com/koustreak/DatLens/internal/logger"
	"github.com/koustreak/DatLens/internal/source"
	"github.com/koustreak/DatLens/internal/source/mysql"
	"github.com/koustreak/DatLens/internal/source/sqlserver"
)

// Connect opens a metadata source for the target. The caller owns the
// returned source and must Close it.
func Connect(ctx context.Context, t *config.Target) (source.Source, introspect.Engine, error) {
	engine, err := introspect.ParseEngine(t.Engine)
	if err != nil {
		return nil, "", err
	}

	cfg := source.DefaultConfig(t.DSN, t.Database)
	if t.MaxConns > 0 {
		cfg.MaxConns = t.MaxConns
	}

	var src source.Source
	switch engine {
	case introspect.EngineMySQL:
		src, err = mysql.New(ctx, cfg)
	case introspect.EngineSQLServer:
		src, err = sqlserver.New(ctx, cfg)
	}
	if err != nil {
		return nil, "", err
	}
	return src, engine, nil
}

// Scan connects to the target, runs a full introspection scan and closes
// the source again.
func Scan(ctx context.Context, t *config.Target, log *logger.Logger) (*introspect.Report, error) {
	src, engine, err := Connect(ctx, t)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	scanner, err := introspect.NewScanner(engine, src, log)
	if err != nil {
		return nil, err
	}
	return scanner.Scan(ctx)
}
