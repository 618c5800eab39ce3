package main

import (
	"testing"
	"time"

	"contactos/models"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestResetPassword(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:reset?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.RefreshToken{}); err != nil {
		t.Fatal(err)
	}

	old, _ := bcrypt.GenerateFromPassword([]byte("oldpass"), bcrypt.MinCost)
	user := models.User{Name: "Ana", Email: "ana@example.com", HashedPassword: old}
	if err := db.Omit("Role").Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	for _, h := range []string{"h1", "h2"} {
		rt := models.RefreshToken{UserID: user.ID, TokenHash: h, ExpiresAt: time.Now().Add(time.Hour)}
		if err := db.Omit("User").Create(&rt).Error; err != nil {
			t.Fatal(err)
		}
	}

	if _, err := resetPassword(db, "ana@example.com", "123", bcrypt.MinCost); err == nil {
		t.Fatal("expected short password error")
	}
	if _, err := resetPassword(db, "nobody@example.com", "newpass", bcrypt.MinCost); err == nil {
		t.Fatal("expected unknown user error")
	}

	revoked, err := resetPassword(db, " ANA@example.com", "newpass", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if revoked != 2 {
		t.Errorf("revoked = %d", revoked)
	}
	var got models.User
	db.First(&got, user.ID)
	if bcrypt.CompareHashAndPassword(got.HashedPassword, []byte("newpass")) != nil {
		t.Error("new password not stored")
	}
}
