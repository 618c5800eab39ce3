package csvimport

import (
	"bytes"
	"testing"

	"contactos/pkg/apperr"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestSheetReaderReadsFirstSheet(t *testing.T) {
	r := workbook(t, [][]any{
		{"Correo", "nombre", "telefono", "ciudad"},
		{"a@b.com", "Ana", "123", "Lima"},
		{"", "", "", ""},
		{"c@d.com", "Carlos", "456", "Quito"},
	})
	src, err := OpenRows("contacts.XLSX", r)
	if err != nil {
		t.Fatalf("OpenRows: %v", err)
	}
	defer src.Close()
	if _, ok := src.(*SheetReader); !ok {
		t.Fatalf("expected *SheetReader, got %T", src)
	}
	rows := readAll(t, src)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Line != 3 || rows[1].Values["ciudad"] != "Quito" {
		t.Errorf("unexpected second row %+v", rows[1])
	}
	header, _ := src.Header()
	if header[0] != "correo" {
		t.Errorf("header not normalized: %q", header)
	}
}

func TestSheetReaderRejectsGarbage(t *testing.T) {
	_, err := NewSheetReader(bytes.NewReader([]byte("not a workbook")))
	if !apperr.Is(err, apperr.KindMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
}
