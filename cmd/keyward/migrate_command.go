package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/keyward/keyward"
	"github.com/keyward/keyward/config"
	"github.com/keyward/keyward/migrations"
)

// migrateCommand applies the schema to the configured database. The schema is
// idempotent, running it twice is fine.
func migrateCommand(ctx context.Context, configPath string, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("dbpath", "", "Database file, overrides db.path")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	if err := noArgs(fs); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}

	pool, err := keyward.NewZombiezenPool(cfg.DB)
	if err != nil {
		return fmt.Errorf("%w (db_path: %s): %v", ErrCreateDbPool, cfg.DB.Path, err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: error closing database pool: %v\n", err)
		}
	}()

	if err := migrations.Apply(ctx, pool); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrate, err)
	}

	files, err := migrations.Files()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMigrate, err)
	}
	if _, err := fmt.Fprintf(stdout, "Applied %d schema files to %s\n", len(files), cfg.DB.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
