package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/logger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/recordstore"
	"go.uber.org/zap"
)

// Globals are shared by every subcommand
type Globals struct {
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn"`
}

// VerifyCmd runs the ledger audit and exits non-zero on findings
type VerifyCmd struct {
	JSON bool `help:"Print the report as JSON."`
}

func (cmd *VerifyCmd) Run(ctx *kong.Context, svc *ledger.Service) error {
	report := svc.Verify(context.Background())
	if cmd.JSON {
		if err := writeJSON(ctx.Stdout, report); err != nil {
			return err
		}
	} else {
		for _, f := range report.Findings {
			_, _ = fmt.Fprintf(ctx.Stdout, "%s\t%s\t%s\t%s\n", f.Check, f.Entity, f.ID, f.Detail)
		}
	}
	if !report.OK() {
		return fmt.Errorf("audit found %d problem(s)", len(report.Findings))
	}
	return nil
}

// ExportCmd writes every collection as one JSON document
type ExportCmd struct {
	Output string `short:"o" help:"Write to this file instead of stdout." type:"path"`
}

func (cmd *ExportCmd) Run(ctx *kong.Context, svc *ledger.Service) error {
	snapshot, err := svc.Snapshot(context.Background())
	if err != nil {
		return err
	}
	if cmd.Output == "" {
		return writeJSON(ctx.Stdout, snapshot)
	}
	f, err := os.Create(cmd.Output)
	if err != nil {
		return err
	}
	if err := writeJSON(f, snapshot); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ImportCmd replaces every collection present in a backup file
type ImportCmd struct {
	File string `arg:"" help:"Backup file produced by export." type:"existingfile"`
	Yes  bool   `short:"y" help:"Confirm replacing the stored collections."`
}

func (cmd *ImportCmd) Run(ctx *kong.Context, svc *ledger.Service) error {
	if !cmd.Yes {
		return fmt.Errorf("import replaces stored collections; rerun with --yes")
	}
	payload, err := os.ReadFile(cmd.File)
	if err != nil {
		return err
	}
	result, err := svc.RestoreCollections(context.Background(), payload)
	if err != nil {
		return err
	}
	return writeJSON(ctx.Stdout, result)
}

// CollectionsCmd lists the record count and stored version of each collection
type CollectionsCmd struct{}

func (cmd *CollectionsCmd) Run(ctx *kong.Context, svc *ledger.Service, store recordstore.Store) error {
	background := context.Background()
	snapshot, err := svc.Snapshot(background)
	if err != nil {
		return err
	}
	versions, err := store.Versions(background)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	slices.Sort(names)

	w := tabwriter.NewWriter(ctx.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COLLECTION\tRECORDS\tVERSION")
	for _, name := range names {
		version := "-"
		if v, ok := versions[name]; ok {
			version = fmt.Sprint(v)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(snapshot[name]), version)
	}
	return w.Flush()
}

var cli struct {
	Globals

	Verify      VerifyCmd      `cmd:"" help:"Check ledger invariants."`
	Export      ExportCmd      `cmd:"" help:"Export every collection as JSON."`
	Import      ImportCmd      `cmd:"" help:"Restore collections from an export."`
	Collections CollectionsCmd `cmd:"" help:"List collections with record counts and versions."`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ledgerctl"),
		kong.Description("Inspect and maintain the Meeza ledger record store."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	ctx.FatalIfErrorf(err)

	logCfg := logger.FromAppConfig(cfg.Log)
	logCfg.Level = cli.LogLevel
	logCfg.Output = "stderr"
	log, err := logger.New(logCfg)
	ctx.FatalIfErrorf(err)
	defer func() { _ = log.Sync() }()

	background := context.Background()
	opened, err := recordstore.NewFactory(cfg, recordstore.WithLogger(log)).Open(background)
	ctx.FatalIfErrorf(err)
	defer func() {
		if err := opened.Close(); err != nil {
			log.Warn("Failed to close record store", zap.Error(err))
		}
	}()

	svc := ledger.NewService(opened.Store, log)
	if _, err := svc.Load(background); err != nil {
		log.Error("Failed to load ledger", zap.Error(err))
		ctx.Exit(1)
	}

	ctx.BindTo(opened.Store, (*recordstore.Store)(nil))
	ctx.Bind(svc)
	ctx.FatalIfErrorf(ctx.Run())
}
