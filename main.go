package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contactos/pkg/config"
	"contactos/pkg/csvimport"
	"contactos/pkg/filestore"
	"contactos/pkg/logger"
	"contactos/pkg/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	cfg          *config.Config
	contactStore *store.Store
	files        filestore.Store
	importer     *csvimport.Importer
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if _, err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer zap.L().Sync()
	if err := cfg.Validate(); err != nil {
		zap.L().Fatal("invalid configuration", zap.Error(err))
	}
	jwtSecret = []byte(cfg.JWT.Secret)

	// `contactos migrate` applies the versioned SQL schema and seeds, then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		db, err = openDB(cfg.DB.DSN)
		if err != nil {
			zap.L().Fatal("failed to connect postgres database", zap.Error(err))
		}
		if err := runMigrations(); err != nil {
			zap.L().Fatal("migration failed", zap.Error(err))
		}
		seedDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()
	if err := initServices(context.Background()); err != nil {
		zap.L().Fatal("failed to initialize services", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		zap.L().Info("server starting", zap.String("addr", srv.Addr), zap.String("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("server forced to shutdown", zap.Error(err))
		return
	}
	zap.L().Info("server exited gracefully")
}

// initServices wires the store, the file archive and the importer on top of db.
func initServices(ctx context.Context) error {
	var err error
	files, err = filestore.New(ctx, cfg)
	if err != nil {
		return err
	}
	contactStore = store.New(db)
	importer = csvimport.NewImporter(contactStore, files)
	return nil
}
