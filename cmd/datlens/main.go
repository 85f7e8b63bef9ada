package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/koustreak/DatLens/internal/config"
	"github.com/koustreak/DatLens/internal/introspect"
	"github.com/koustreak/DatLens/internal/logger"
	"github.com/koustreak/DatLens/internal/reportstore"
	"github.com/koustreak/DatLens/internal/reportstore/minio"
	"github.com/koustreak/DatLens/internal/server"
	"github.com/koustreak/DatLens/internal/source"
	"github.com/koustreak/DatLens/internal/target"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "datlens error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		printUsage()
		return nil
	}

	switch args[1] {
	case "scan":
		return runScan(args[2:])
	case "serve":
		return runServe(args[2:])
	case "query":
		return runQuery(args[2:])
	case "ping":
		return runPing(args[2:])
	case "targets":
		return runTargets(args[2:])
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	targetName := fs.String("target", "", "Name of the target to scan")
	output := fs.String("output", "", "Write the report to this file instead of the report store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	t, err := cfg.Target(*targetName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	report, err := target.Scan(ctx, t, log)
	if err != nil {
		return err
	}

	data, err := report.MarshalIndent()
	if err != nil {
		return err
	}

	switch {
	case *output != "":
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", *output)
	default:
		store, err := openStore(&cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()
		key := reportstore.Key(string(report.Metadata.Engine), report.Metadata.Database)
		if err := store.Put(ctx, key, data); err != nil {
			return err
		}
		fmt.Printf("Report stored as %s\n", key)
	}

	report.WriteSummary(os.Stdout)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	addr := fs.String("addr", "", "Listen address, overrides the config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	store, err := openStore(&cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	return server.New(cfg, store, log).ListenAndServe()
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	targetName := fs.String("target", "", "Name of the target to query")
	sql := fs.String("sql", "", "Read-only SQL statement to execute")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sql == "" {
		return fmt.Errorf("missing required flag: --sql")
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	t, err := cfg.Target(*targetName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	src, _, err := target.Connect(ctx, t)
	if err != nil {
		return err
	}
	defer src.Close()

	rows, err := src.Query(ctx, *sql)
	if err != nil {
		return err
	}
	records, err := source.ScanRows(rows)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "    ")
	return enc.Encode(records)
}

func runPing(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	targetName := fs.String("target", "", "Name of the target to ping")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	t, err := cfg.Target(*targetName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	src, engine, err := target.Connect(ctx, t)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := src.Ping(ctx); err != nil {
		return err
	}
	fmt.Printf("%s (%s/%s): ok\n", t.Name, engine, src.DatabaseName())
	return nil
}

func runTargets(args []string) error {
	fs := flag.NewFlagSet("targets", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	for _, t := range cfg.Targets {
		engine, _ := introspect.ParseEngine(t.Engine)
		fmt.Printf("%-20s %-10s %s\n", t.Name, engine, t.Database)
	}
	return nil
}

func loadConfig(path string) (*config.Config, *logger.Logger, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("missing required flag: --config")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	return cfg, log, nil
}

func openStore(cfg *reportstore.Config) (reportstore.Store, error) {
	switch cfg.Provider {
	case "minio":
		return minio.New(context.Background(), cfg)
	default:
		return reportstore.NewFSStore(cfg.Dir)
	}
}

func printUsage() {
	fmt.Print(`DatLens - database schema introspection

Usage:
  datlens scan    --config <path> --target <name> [--output <file>]
  datlens serve   --config <path> [--addr <addr>]
  datlens query   --config <path> --target <name> --sql <stmt>
  datlens ping    --config <path> --target <name>
  datlens targets --config <path>

Commands:
  scan      Run a full introspection scan and store the report
  serve     Start the HTTP API
  query     Execute a read-only SQL statement against a target
  ping      Verify connectivity to a target
  targets   List configured targets
  help      Show this help message
`)
}
