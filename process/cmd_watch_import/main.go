// cmd_watch_import imports contact files dropped into a directory on behalf
// of one account, the seeded admin unless -email says otherwise.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contactos/models"
	"contactos/pkg/config"
	"contactos/pkg/csvimport"
	"contactos/pkg/filestore"
	"contactos/pkg/logger"
	"contactos/pkg/store"
	"contactos/process/watchimport"

	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", "inbox", "directory to watch for csv/xlsx files")
	email := flag.String("email", "", "account the uploads are attributed to (default SEED_ADMIN_EMAIL)")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	debounce := flag.Duration("debounce", 300*time.Millisecond, "how long a file must stay unchanged before import")
	retry := flag.Duration("retry", time.Minute, "how often files that failed internally are retried")
	once := flag.Bool("once", false, "import the files already in -dir and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if _, err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer zap.L().Sync()
	log := zap.L().Named("watch_import")
	if cfg.DB.DSN == "" {
		log.Fatal("DB_DSN must be set in environment to run this tool")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if *email == "" {
		*email = cfg.Seed.AdminEmail
	}
	var uploader models.User
	if err := db.WithContext(ctx).Where("email = ?", *email).First(&uploader).Error; err != nil {
		log.Fatal("uploader account not found", zap.String("email", *email), zap.Error(err))
	}
	files, err := filestore.New(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open file store", zap.Error(err))
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatal("failed to create inbox", zap.Error(err))
	}

	w := watchimport.New(csvimport.NewImporter(store.New(db), files), watchimport.Options{
		Dir:           *dir,
		UploaderID:    uploader.ID,
		Workers:       *workers,
		Debounce:      *debounce,
		RetryInterval: *retry,
	})
	if *once {
		err = w.Scan(ctx)
	} else {
		err = w.Run(ctx)
	}
	if err != nil {
		log.Fatal("watch failed", zap.Error(err))
	}
	log.Info("stopped")
}
