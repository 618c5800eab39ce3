package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"contactos/models"
	"contactos/pkg/config"
	"contactos/pkg/store"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	email := flag.String("email", "", "email of the account to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()
	if *email == "" || *password == "" {
		log.Fatal("--email and --password are required")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.DB.DSN == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	revoked, err := resetPassword(db, *email, *password, cfg.BcryptCost)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Password reset for %s (%d session(s) revoked)\n", strings.ToLower(*email), revoked)
}

// resetPassword stores a new hash and revokes the user's refresh tokens so
// existing sessions cannot be renewed.
func resetPassword(db *gorm.DB, email, password string, cost int) (int64, error) {
	if len(password) < 6 {
		return 0, errors.New("password too short (min 6)")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	var user models.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return 0, fmt.Errorf("user not found: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return 0, fmt.Errorf("bcrypt: %w", err)
	}
	var revoked int64
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("hashed_password", hash).Error; err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		res := tx.Model(&models.RefreshToken{}).Where("user_id = ? AND revoked = ?", user.ID, false).Update("revoked", true)
		revoked = res.RowsAffected
		return res.Error
	})
	return revoked, err
}
