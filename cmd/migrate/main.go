package main

import (
	"database/sql"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/logger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/migration"
	"github.com/edumahmoud/try-meeza-crm/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Globals are shared by every subcommand
type Globals struct {
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

type UpCmd struct{}

func (cmd *UpCmd) Run(m *migration.Migrator) error { return m.Up() }

type DownCmd struct {
	Yes bool `help:"Confirm rolling back every migration." short:"y"`
}

func (cmd *DownCmd) Run(m *migration.Migrator) error {
	if !cmd.Yes {
		return fmt.Errorf("down drops every ledger table; rerun with --yes")
	}
	return m.Down()
}

type StepCmd struct {
	N int `arg:"" help:"Number of steps; negative rolls back."`
}

func (cmd *StepCmd) Run(m *migration.Migrator) error { return m.Steps(cmd.N) }

type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context, m *migration.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ctx.Stdout, "version=%d dirty=%t\n", version, dirty)
	return nil
}

type ForceCmd struct {
	Version int `arg:"" help:"Version to record without running migrations."`
}

func (cmd *ForceCmd) Run(m *migration.Migrator) error { return m.Force(cmd.Version) }

var cli struct {
	Globals

	Up      UpCmd      `cmd:"" help:"Apply all pending migrations."`
	Down    DownCmd    `cmd:"" help:"Roll back all migrations."`
	Step    StepCmd    `cmd:"" help:"Apply or roll back N migrations."`
	Version VersionCmd `cmd:"" help:"Print the current schema version."`
	Force   ForceCmd   `cmd:"" help:"Set the schema version, clearing a dirty state."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("migrate"),
		kong.Description("Manage the PostgreSQL schema of the Meeza ledger."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	ctx.FatalIfErrorf(err)

	logCfg := logger.FromAppConfig(cfg.Log)
	logCfg.Level = cli.LogLevel
	log, err := logger.New(logCfg)
	ctx.FatalIfErrorf(err)
	defer func() { _ = log.Sync() }()

	db, err := sql.Open("postgres", cfg.Database.DSN())
	ctx.FatalIfErrorf(err)
	defer db.Close()

	m, err := migration.New(db, migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	ctx.Bind(m)
	ctx.FatalIfErrorf(ctx.Run())
}
