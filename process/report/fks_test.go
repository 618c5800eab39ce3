package report

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestMissingCascades(t *testing.T) {
	fks := []ForeignKey{
		{Name: "fk_uploads_contacts", Table: "contacts", ReferencedTable: "uploads", Definition: "FOREIGN KEY (upload_id) REFERENCES uploads(id) ON UPDATE CASCADE ON DELETE CASCADE"},
		{Name: "fk_uploads_user", Table: "uploads", ReferencedTable: "users", Definition: "FOREIGN KEY (uploaded_by_id) REFERENCES users(id)"},
	}
	got := MissingCascades(fks)
	want := []string{"uploads -> users", "refresh_tokens -> users"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MissingCascades = %v, want %v", got, want)
	}

	var buf bytes.Buffer
	PrintForeignKeys(&buf, fks)
	if strings.Count(buf.String(), "WARNING") != 2 {
		t.Errorf("output = %s", buf.String())
	}
}
