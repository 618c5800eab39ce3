package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"contactos/pkg/config"
	"contactos/process/report"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	users := flag.Bool("users", false, "print per-user upload and contact totals")
	fix := flag.Bool("fix", false, "set total_records of drifted uploads to their current contact count")
	fks := flag.Bool("fks", false, "list foreign keys and warn about missing delete cascades")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.DB.DSN == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if *fks {
		list, err := report.ForeignKeys(ctx, db)
		if err != nil {
			log.Fatal(err)
		}
		report.PrintForeignKeys(os.Stdout, list)
		fmt.Println()
	}
	if *users {
		totals, err := report.Totals(ctx, db)
		if err != nil {
			log.Fatal(err)
		}
		report.PrintTotals(os.Stdout, totals)
		fmt.Println()
	}

	drifts, err := report.FindDrift(ctx, db)
	if err != nil {
		log.Fatal(err)
	}
	report.PrintDrift(os.Stdout, drifts)
	if *fix && len(drifts) > 0 {
		ids := make([]uint, 0, len(drifts))
		for _, d := range drifts {
			ids = append(ids, d.UploadID)
		}
		n, err := report.FixDrift(ctx, db, ids)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("updated %d upload(s)\n", n)
	}
}
