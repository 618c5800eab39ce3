// Package sanitize empties the application tables of a postgres database
// and optionally restores the default roles and admin account.
package sanitize

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"contactos/models"
	"contactos/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultTables lists the application tables, children first.
const DefaultTables = "contacts,uploads,refresh_tokens,users,roles"

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type Options struct {
	Tables []string
	DryRun bool
	Yes    bool
	Reseed bool
}

// ParseTables splits a comma-separated list and drops invalid identifiers.
func ParseTables(list string) []string {
	log := zap.L().Named("sanitize")
	parts := strings.Split(list, ",")
	wanted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nameRe.MatchString(p) {
			log.Warn("skipping invalid table name", zap.String("table", p))
			continue
		}
		wanted = append(wanted, p)
	}
	return wanted
}

// TruncateStatement quotes the validated identifiers into one TRUNCATE.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// Run truncates the requested tables that exist. Nothing is changed unless
// DryRun is off and Yes is set.
func Run(ctx context.Context, gdb *gorm.DB, seed config.SeedConfig, cost int, opts Options) error {
	log := zap.L().Named("sanitize")

	existing := []string{}
	// check presence individually to avoid any injection risk
	for _, t := range opts.Tables {
		var cnt int64
		if err := gdb.WithContext(ctx).Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			return fmt.Errorf("query pg_tables for %s: %w", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		} else {
			log.Info("table not found, skipping", zap.String("table", t))
		}
	}
	if len(existing) == 0 {
		log.Info("no requested tables present in the database; nothing to do")
		return nil
	}

	fmt.Println("Tables considered for truncation:")
	for _, t := range existing {
		fmt.Printf(" - %s\n", t)
	}
	if opts.DryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return nil
	}
	if !opts.Yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return nil
	}

	stmt := TruncateStatement(existing)
	log.Info("executing", zap.String("stmt", stmt))
	tctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := gdb.WithContext(tctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	log.Info("truncate completed")

	if opts.Reseed {
		return Reseed(ctx, gdb, seed, cost)
	}
	return nil
}

// Reseed restores the default roles and the configured admin account.
func Reseed(ctx context.Context, gdb *gorm.DB, seed config.SeedConfig, cost int) error {
	gdb = gdb.WithContext(ctx)
	for _, r := range models.DefaultRoles() {
		if err := gdb.Where(models.Role{Name: r.Name}).Attrs(models.Role{Description: r.Description}).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("failed to ensure role %s: %w", r.Name, err)
		}
	}
	if seed.AdminEmail == "" {
		return nil
	}
	var role models.Role
	if err := gdb.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("failed to find admin role: %w", err)
	}
	var count int64
	if err := gdb.Model(&models.User{}).Where("email = ?", seed.AdminEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}
	if count > 0 {
		return nil
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(seed.AdminPassword), cost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	rid := role.ID
	admin := models.User{Name: seed.AdminName, Email: seed.AdminEmail, HashedPassword: hashed, RoleID: &rid}
	if err := gdb.Omit("Role").Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	zap.L().Named("sanitize").Info("reseeded admin", zap.String("email", admin.Email))
	return nil
}
