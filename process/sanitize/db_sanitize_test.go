package sanitize

import (
	"context"
	"reflect"
	"testing"

	"contactos/models"
	"contactos/pkg/config"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseTables(t *testing.T) {
	got := ParseTables(" contacts, uploads ,,bad-name;drop, users ")
	want := []string{"contacts", "uploads", "users"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseTables = %v, want %v", got, want)
	}
	if n := len(ParseTables(DefaultTables)); n != 5 {
		t.Errorf("default tables = %d", n)
	}
}

func TestTruncateStatement(t *testing.T) {
	got := TruncateStatement([]string{"contacts", "uploads"})
	want := `TRUNCATE TABLE "contacts", "uploads" RESTART IDENTITY CASCADE`
	if got != want {
		t.Fatalf("got %s", got)
	}
}

func TestReseedIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:reseed?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&models.Role{}, &models.User{}); err != nil {
		t.Fatal(err)
	}

	seed := config.SeedConfig{AdminName: "Admin", AdminEmail: "admin@example.com", AdminPassword: "admin123"}
	for i := 0; i < 2; i++ {
		if err := Reseed(context.Background(), db, seed, bcrypt.MinCost); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	var roles, users int64
	db.Model(&models.Role{}).Count(&roles)
	db.Model(&models.User{}).Count(&users)
	if roles != 2 || users != 1 {
		t.Fatalf("roles=%d users=%d", roles, users)
	}
	var admin models.User
	db.Preload("Role").First(&admin)
	if admin.RoleName() != models.RoleAdmin {
		t.Errorf("admin role = %s", admin.RoleName())
	}
}

func TestReseedFailsWhenUsersTableIsMissing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:reseed_nousers?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&models.Role{}); err != nil {
		t.Fatal(err)
	}

	seed := config.SeedConfig{AdminName: "Admin", AdminEmail: "admin@example.com", AdminPassword: "admin123"}
	if err := Reseed(context.Background(), db, seed, bcrypt.MinCost); err == nil {
		t.Fatal("expected an error when the admin lookup fails")
	}
}
