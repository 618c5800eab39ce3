package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"contactos/pkg/config"
	"contactos/pkg/logger"
	"contactos/pkg/store"
	"contactos/process/sanitize"

	"go.uber.org/zap"
)

func main() {
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, reseed default roles and the admin user")
		tables = flag.String("tables", sanitize.DefaultTables, "Comma-separated list of tables to truncate")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if _, err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: "console"}); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	if cfg.DB.DSN == "" {
		zap.L().Fatal("DB_DSN must be set to run sanitize")
	}
	gdb, err := store.Open(cfg.DB.DSN)
	if err != nil {
		zap.L().Fatal("failed to connect to database", zap.Error(err))
	}
	opts := sanitize.Options{Tables: sanitize.ParseTables(*tables), DryRun: *dryRun, Yes: *yes, Reseed: *reseed}
	if err := sanitize.Run(context.Background(), gdb, cfg.Seed, cfg.BcryptCost, opts); err != nil {
		zap.L().Fatal("sanitize failed", zap.Error(err))
	}
}
