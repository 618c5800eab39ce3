package main

import (
	"errors"
	"fmt"
	"os"

	"contactos/migrations"
	"contactos/models"
	"contactos/pkg/store"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	db, err = openDB(cfg.DB.DSN)
	if err != nil {
		zap.L().Fatal("failed to connect postgres database", zap.Error(err))
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	if cfg.DB.AutoMigrate {
		autoMigrate()
	}
	seedDB()
}

func openDB(dsn string) (*gorm.DB, error) {
	return store.Open(dsn)
}

// autoMigrate migrates models individually so a failure on one doesn't block others.
// Roles go first so the users FK can be applied safely.
func autoMigrate() {
	log := zap.L().Named("db")
	steps := []struct {
		table string
		model any
	}{
		{"roles", &models.Role{}},
		{"users", &models.User{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"uploads", &models.Upload{}},
		{"contacts", &models.Contact{}},
	}
	for _, s := range steps {
		if err := db.AutoMigrate(s.model); err != nil {
			log.Warn("migration warning", zap.String("table", s.table), zap.Error(err))
		}
	}
}

// runMigrations applies the embedded SQL migrations with golang-migrate.
func runMigrations() error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	driver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, _ := m.Version()
	zap.L().Named("db").Info("schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func seedDB() {
	log := zap.L().Named("seed")
	// Ensure upload directories exist
	ensureUploadDirs()

	// Ensure master roles exist
	for _, r := range models.DefaultRoles() {
		if err := db.Where(models.Role{Name: r.Name}).Attrs(models.Role{Description: r.Description}).FirstOrCreate(&r).Error; err != nil {
			log.Warn("failed to seed role", zap.String("role", r.Name), zap.Error(err))
		}
	}

	// Check if admin user exists
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", cfg.Seed.AdminEmail).Count(&count).Error; err != nil {
		log.Warn("failed to look up admin user", zap.Error(err))
		return
	}
	if count == 0 && cfg.Seed.AdminEmail != "" {
		var role models.Role
		if err := db.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
			log.Warn("failed to find admin role", zap.Error(err))
			return
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.AdminPassword), cfg.BcryptCost)
		if err != nil {
			log.Warn("failed to hash seed password", zap.Error(err))
			return
		}
		rid := role.ID
		admin := models.User{Name: cfg.Seed.AdminName, Email: cfg.Seed.AdminEmail, HashedPassword: hashedPassword, RoleID: &rid}
		if err := db.Create(&admin).Error; err != nil {
			log.Warn("failed to seed admin user", zap.Error(err))
		} else {
			log.Info("seeded admin user", zap.String("email", admin.Email))
		}
	}
}

// ensureUploadDirs creates the local archive and temp directories.
func ensureUploadDirs() {
	for _, dir := range []string{cfg.Upload.Base, uploadTmpDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			zap.L().Warn("failed to create upload dir", zap.String("dir", dir), zap.Error(err))
		}
	}
}

// uploadTmpDir is where multipart bodies land before import (UPLOAD_TMP_DIR, default <UPLOAD_BASE>/tmp).
func uploadTmpDir() string {
	if cfg.Upload.TmpDir != "" {
		return cfg.Upload.TmpDir
	}
	base := cfg.Upload.Base
	if base == "" {
		base = "uploads"
	}
	return base + "/tmp"
}
