package csvimport

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"contactos/models"
	"contactos/pkg/apperr"
)

type memStore struct {
	mu       sync.Mutex
	uploads  []models.Upload
	contacts []models.Contact
	err      error
}

func (s *memStore) SaveBatch(_ context.Context, upload *models.Upload, contacts []models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	upload.ID = uint(len(s.uploads) + 1)
	s.uploads = append(s.uploads, *upload)
	for _, c := range contacts {
		c.UploadID = upload.ID
		s.contacts = append(s.contacts, c)
	}
	return nil
}

type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemFiles() *memFiles { return &memFiles{objects: map[string][]byte{}} }

func (f *memFiles) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[key] = b
	f.mu.Unlock()
	return nil
}

func (f *memFiles) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	f.mu.Unlock()
	return nil
}

const validCSV = "correo,nombre,telefono,ciudad,notas\n" +
	"ana@example.com,Ana,5551234,Lima,cliente\n" +
	"bo@example.com,Bo,5555678,Quito,\n" +
	"cy@example.com,Cy,5550000,Bogotá,\n"

func importString(t *testing.T, im *Importer, name, data string) (*Summary, error) {
	t.Helper()
	return im.Import(context.Background(), Request{File: strings.NewReader(data), FileName: name, UploaderID: 9})
}

func TestImportAllValid(t *testing.T) {
	store, files := &memStore{}, newMemFiles()
	im := NewImporter(store, files)

	sum, err := importString(t, im, "contacts.csv", validCSV)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.RecordsImported != 3 || sum.UploadID != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Message != "3 registro(s) importado(s) exitosamente" {
		t.Errorf("message = %q", sum.Message)
	}
	if len(store.uploads) != 1 || store.uploads[0].TotalRecords != 3 || len(store.contacts) != 3 {
		t.Fatalf("store = %+v", store)
	}
	up := store.uploads[0]
	if up.OriginalFileName != "contacts.csv" || up.UploadedByID != 9 {
		t.Errorf("upload = %+v", up)
	}
	if !strings.HasPrefix(up.StoredPath, "contacts/") || !strings.HasSuffix(up.StoredPath, ".csv") {
		t.Errorf("stored path = %q", up.StoredPath)
	}
	if got := string(files.objects[up.StoredPath]); got != validCSV {
		t.Errorf("archived bytes differ: %q", got)
	}
	if store.contacts[0].Notas == nil || store.contacts[1].Notas != nil {
		t.Errorf("notas not normalized: %+v", store.contacts[:2])
	}
}

func TestImportRejectsInvalidFileWithoutSideEffects(t *testing.T) {
	store, files := &memStore{}, newMemFiles()
	im := NewImporter(store, files)

	data := "correo,nombre,telefono,ciudad\n" +
		"a@b.com,Ana,123,Lima\n" +
		"bad,Bo,12a,X\n"
	_, err := importString(t, im, "contacts.csv", data)

	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindCSVValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []apperr.RowError{
		{Row: 3, Field: "correo", Value: "bad", Messages: []string{msgCorreoInvalid}},
		{Row: 3, Field: "telefono", Value: "12a", Messages: []string{msgTelefonoDigits}},
	}
	if !reflect.DeepEqual(ae.Rows, want) {
		t.Fatalf("rows = %+v, want %+v", ae.Rows, want)
	}
	if len(store.uploads) != 0 || len(store.contacts) != 0 || len(files.objects) != 0 {
		t.Fatalf("nothing should be persisted: %+v %+v", store, files.objects)
	}
}

func TestImportRejectsLatin1File(t *testing.T) {
	store, files := &memStore{}, newMemFiles()
	im := NewImporter(store, files)
	data := "correo,nombre,telefono,ciudad\n" +
		"a@b.com,Ana,123,Lima\n" +
		"c@d.com,Jos\xe9,123,Lima\n"
	_, err := importString(t, im, "latin1.csv", data)
	if !apperr.Is(err, apperr.KindMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
	if len(store.uploads) != 0 || len(store.contacts) != 0 || len(files.objects) != 0 {
		t.Fatalf("nothing should be persisted: %+v %+v", store, files.objects)
	}
}

func TestImportRejectsOverlongValues(t *testing.T) {
	store, files := &memStore{}, newMemFiles()
	im := NewImporter(store, files)
	name, phone := strings.Repeat("n", 300), strings.Repeat("9", 80)
	data := "correo,nombre,telefono,ciudad\n" +
		"a@b.com," + name + "," + phone + ",Lima\n"
	_, err := importString(t, im, "long.csv", data)

	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindCSVValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []apperr.RowError{
		{Row: 2, Field: "nombre", Value: name, Messages: []string{msgNombreTooLong}},
		{Row: 2, Field: "telefono", Value: phone, Messages: []string{msgTelefonoTooLong}},
	}
	if !reflect.DeepEqual(ae.Rows, want) {
		t.Fatalf("rows = %+v, want %+v", ae.Rows, want)
	}
	if len(store.uploads) != 0 || len(files.objects) != 0 {
		t.Fatalf("nothing should be persisted: %+v %+v", store, files.objects)
	}
}

func TestImportPhoneRowNumber(t *testing.T) {
	im := NewImporter(&memStore{}, newMemFiles())
	data := "correo,nombre,telefono,ciudad\n" +
		"a@b.com,Ana,123,Lima\n" +
		"b@b.com,Bea,456,Lima\n" +
		"c@b.com,Cid,78x9,Lima\n"
	_, err := importString(t, im, "c.csv", data)
	var ae *apperr.Error
	if !errors.As(err, &ae) || len(ae.Rows) != 1 {
		t.Fatalf("expected one row error, got %v", err)
	}
	if ae.Rows[0].Row != 4 || ae.Rows[0].Field != "telefono" {
		t.Errorf("row error = %+v", ae.Rows[0])
	}
}

func TestImportEmptyAndHeaderOnly(t *testing.T) {
	im := NewImporter(&memStore{}, newMemFiles())
	for _, data := range []string{"", "correo,nombre,telefono,ciudad\n", "\ufeff"} {
		_, err := importString(t, im, "c.csv", data)
		if !apperr.Is(err, apperr.KindEmptyFile) {
			t.Errorf("%q: expected empty file, got %v", data, err)
		}
	}
}

func TestImportMissingHeaders(t *testing.T) {
	store := &memStore{}
	im := NewImporter(store, newMemFiles())
	_, err := importString(t, im, "c.csv", "correo,telefono,ciudad\nnot-an-email,abc,\n")
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindMissingHeaders {
		t.Fatalf("expected missing headers, got %v", err)
	}
	if !reflect.DeepEqual(ae.MissingHeaders, []string{"nombre"}) {
		t.Errorf("missing = %v", ae.MissingHeaders)
	}
	if len(ae.Rows) != 0 {
		t.Errorf("rows must not be evaluated, got %+v", ae.Rows)
	}
}

func TestImportTwiceCreatesTwoUploads(t *testing.T) {
	store, files := &memStore{}, newMemFiles()
	im := NewImporter(store, files)
	for i := 0; i < 2; i++ {
		if _, err := importString(t, im, "contacts.csv", validCSV); err != nil {
			t.Fatalf("import %d: %v", i, err)
		}
	}
	if len(store.uploads) != 2 || len(store.contacts) != 6 {
		t.Fatalf("uploads=%d contacts=%d", len(store.uploads), len(store.contacts))
	}
	if store.uploads[0].StoredPath == store.uploads[1].StoredPath {
		t.Errorf("archive keys must differ")
	}
	if len(files.objects) != 2 {
		t.Errorf("expected 2 archived files, got %d", len(files.objects))
	}
}

func TestImportStoreFailureRemovesArchive(t *testing.T) {
	store, files := &memStore{err: errors.New("db down")}, newMemFiles()
	im := NewImporter(store, files)

	_, err := importString(t, im, "contacts.csv", validCSV)
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(files.objects) != 0 || len(files.deleted) != 1 {
		t.Fatalf("archive not cleaned up: objects=%v deleted=%v", files.objects, files.deleted)
	}
}

func TestImportFileRemovesTransientFile(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"ok.csv":  validCSV,
		"bad.csv": "correo,nombre,telefono,ciudad\nbad,,,\n",
	}
	for name, data := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		im := NewImporter(&memStore{}, newMemFiles())
		_, _ = im.ImportFile(context.Background(), path, name, 1)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s: transient file still present (%v)", name, err)
		}
	}
}

func TestImportXLSX(t *testing.T) {
	store, files := &memStore{}, newMemFiles()
	im := NewImporter(store, files)
	r := workbook(t, [][]any{
		{"correo", "nombre", "telefono", "ciudad"},
		{"a@b.com", "Ana", "123", "Lima"},
	})
	sum, err := im.Import(context.Background(), Request{File: r, FileName: "book.xlsx", UploaderID: 2})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.RecordsImported != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.HasSuffix(store.uploads[0].StoredPath, ".xlsx") {
		t.Errorf("stored path = %q", store.uploads[0].StoredPath)
	}
}

func TestImportWithoutFile(t *testing.T) {
	im := NewImporter(&memStore{}, newMemFiles())
	_, err := im.Import(context.Background(), Request{FileName: "x.csv"})
	if !apperr.Is(err, apperr.KindFileNotProvided) {
		t.Fatalf("expected file not provided, got %v", err)
	}
}

func TestStageString(t *testing.T) {
	if StageRowValidating.String() != "row_validating" || Stage(99).String() != "unknown" {
		t.Fatal("unexpected stage names")
	}
}
