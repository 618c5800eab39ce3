package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"contactos/models"

	"github.com/glebarez/sqlite"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB migrates the schema with gorm and hands the same connection to sqlx.
func openTestDB(t *testing.T) (*gorm.DB, *sqlx.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := gdb.AutoMigrate(&models.Role{}, &models.User{}, &models.Upload{}, &models.Contact{}); err != nil {
		t.Fatal(err)
	}
	return gdb, sqlx.NewDb(sqlDB, "sqlite3")
}

func seedUpload(t *testing.T, gdb *gorm.DB, userID uint, n int) models.Upload {
	t.Helper()
	up := models.Upload{OriginalFileName: "c.csv", StoredPath: "contacts/x.csv", TotalRecords: n, UploadedByID: userID}
	if err := gdb.Omit("UploadedBy").Create(&up).Error; err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		c := models.Contact{Correo: "a@b.co", Nombre: "A", Telefono: "1", Ciudad: "X", UploadID: up.ID}
		if err := gdb.Create(&c).Error; err != nil {
			t.Fatal(err)
		}
	}
	return up
}

func TestFindAndFixDrift(t *testing.T) {
	gdb, db := openTestDB(t)
	ctx := context.Background()
	user := models.User{Name: "Ana", Email: "ana@example.com", HashedPassword: []byte("x")}
	if err := gdb.Omit("Role").Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	clean := seedUpload(t, gdb, user.ID, 2)
	drifted := seedUpload(t, gdb, user.ID, 3)
	var first models.Contact
	gdb.Where("upload_id = ?", drifted.ID).First(&first)
	gdb.Delete(&first)

	drifts, err := FindDrift(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if len(drifts) != 1 || drifts[0].UploadID != drifted.ID || drifts[0].TotalRecords != 3 || drifts[0].ActualRecords != 2 {
		t.Fatalf("drifts = %+v (clean upload %d)", drifts, clean.ID)
	}
	if drifts[0].UploadedBy != "ana@example.com" {
		t.Errorf("uploaded by = %q", drifts[0].UploadedBy)
	}

	var buf bytes.Buffer
	PrintDrift(&buf, drifts)
	if !strings.Contains(buf.String(), "ana@example.com") {
		t.Errorf("output = %s", buf.String())
	}

	n, err := FixDrift(ctx, db, []uint{drifted.ID})
	if err != nil || n != 1 {
		t.Fatalf("fixed=%d err=%v", n, err)
	}
	drifts, err = FindDrift(ctx, db)
	if err != nil || len(drifts) != 0 {
		t.Fatalf("after fix drifts=%v err=%v", drifts, err)
	}
}

func TestTotals(t *testing.T) {
	gdb, db := openTestDB(t)
	ana := models.User{Name: "Ana", Email: "ana@example.com", HashedPassword: []byte("x")}
	bo := models.User{Name: "Bo", Email: "bo@example.com", HashedPassword: []byte("x")}
	gdb.Omit("Role").Create(&ana)
	gdb.Omit("Role").Create(&bo)
	seedUpload(t, gdb, ana.ID, 2)
	seedUpload(t, gdb, ana.ID, 1)

	totals, err := Totals(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 2 {
		t.Fatalf("totals = %+v", totals)
	}
	if totals[0].Email != "ana@example.com" || totals[0].Uploads != 2 || totals[0].Imported != 3 || totals[0].Contacts != 3 {
		t.Errorf("ana = %+v", totals[0])
	}
	if totals[1].Uploads != 0 || totals[1].Contacts != 0 {
		t.Errorf("bo = %+v", totals[1])
	}
}

func TestPrintDriftEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintDrift(&buf, nil)
	if strings.TrimSpace(buf.String()) != "no drifted uploads" {
		t.Fatalf("got %q", buf.String())
	}
}
