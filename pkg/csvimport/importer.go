package csvimport

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"contactos/models"
	"contactos/pkg/apperr"
	"contactos/pkg/logger"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Stage is the position of one import in the pipeline.
type Stage int

const (
	StageParsing Stage = iota
	StageHeaderChecking
	StageRowValidating
	StagePersisting
	StageDone
	StageRejected
)

func (s Stage) String() string {
	switch s {
	case StageParsing:
		return "parsing"
	case StageHeaderChecking:
		return "header_checking"
	case StageRowValidating:
		return "row_validating"
	case StagePersisting:
		return "persisting"
	case StageDone:
		return "done"
	case StageRejected:
		return "rejected"
	}
	return "unknown"
}

// Store persists an upload and all of its contacts atomically.
type Store interface {
	SaveBatch(ctx context.Context, upload *models.Upload, contacts []models.Contact) error
}

// FileStore keeps the original bytes of accepted files.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Request describes one file to import.
type Request struct {
	File       io.ReadSeeker
	FileName   string
	UploaderID uint
}

// Summary is returned for an accepted file.
type Summary struct {
	RecordsImported int    `json:"recordsImported"`
	Message         string `json:"message"`
	UploadID        uint   `json:"uploadId"`
}

// Importer runs the ingestion pipeline. It is safe for concurrent use.
type Importer struct {
	store Store
	files FileStore

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func NewImporter(store Store, files FileStore) *Importer {
	return &Importer{
		store:   store,
		files:   files,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// ImportFile imports the file at path and removes it afterwards, whatever the
// outcome. originalName is the client-side name, used for the file type and
// stored with the upload.
func (im *Importer) ImportFile(ctx context.Context, path, originalName string, uploaderID uint) (*Summary, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WithContext(ctx).Warn("failed to remove transient upload", zap.String("path", path), zap.Error(err))
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "No se pudo abrir el archivo")
	}
	defer f.Close()
	return im.Import(ctx, Request{File: f, FileName: originalName, UploaderID: uploaderID})
}

// Import validates the whole file and, only if every row is valid, archives it
// and saves the upload with its contacts. Rejections create nothing.
func (im *Importer) Import(ctx context.Context, req Request) (*Summary, error) {
	log := logger.WithContext(ctx).Named("import").With(
		zap.String("file", req.FileName),
		zap.Uint("uploader_id", req.UploaderID),
	)
	if req.File == nil {
		return nil, apperr.New(apperr.KindFileNotProvided, "No se ha proporcionado ningún archivo")
	}

	stage := StageParsing
	reject := func(err error) (*Summary, error) {
		log.Info("import rejected",
			zap.Stringer("stage", stage),
			zap.String("code", apperr.KindOf(err).Code()),
			zap.Error(err),
		)
		return nil, err
	}

	log.Debug("import started", zap.Stringer("stage", stage))
	src, err := OpenRows(req.FileName, req.File)
	if err != nil {
		return reject(err)
	}
	defer src.Close()

	first, err := src.Next()
	if err == io.EOF {
		return reject(apperr.EmptyFile())
	}
	if err != nil {
		return reject(err)
	}

	stage = StageHeaderChecking
	header, err := src.Header()
	if err != nil {
		return reject(err)
	}
	if err := CheckHeaders(header); err != nil {
		return reject(err)
	}

	stage = StageRowValidating
	out, err := Aggregate(first, src)
	if err != nil {
		return reject(err)
	}
	if !out.Valid() {
		return reject(apperr.CSVValidation(out.Errors))
	}

	stage = StagePersisting
	key := im.archiveKey(req.FileName)
	if err := im.archive(ctx, key, req); err != nil {
		return reject(err)
	}
	upload := &models.Upload{
		OriginalFileName: req.FileName,
		StoredPath:       key,
		TotalRecords:     len(out.Records),
		UploadedByID:     req.UploaderID,
	}
	if err := im.store.SaveBatch(ctx, upload, out.Contacts()); err != nil {
		if derr := im.files.Delete(ctx, key); derr != nil {
			log.Warn("failed to remove archived file", zap.String("key", key), zap.Error(derr))
		}
		return reject(apperr.Wrap(apperr.KindInternal, err, "No se pudieron guardar los registros"))
	}

	stage = StageDone
	log.Info("import completed",
		zap.Stringer("stage", stage),
		zap.Uint("upload_id", upload.ID),
		zap.Int("records", len(out.Records)),
	)
	return &Summary{
		RecordsImported: len(out.Records),
		Message:         fmt.Sprintf("%d registro(s) importado(s) exitosamente", len(out.Records)),
		UploadID:        upload.ID,
	}, nil
}

func (im *Importer) archive(ctx context.Context, key string, req Request) error {
	size, err := req.File.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = req.File.Seek(0, io.SeekStart)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "No se pudo leer el archivo")
	}
	if err := im.files.Put(ctx, key, req.File, size, contentTypeFor(req.FileName)); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "No se pudo archivar el archivo")
	}
	return nil
}

func (im *Importer) archiveKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != ".xlsx" {
		ext = ".csv"
	}
	im.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(im.now()), im.entropy)
	im.mu.Unlock()
	return "contacts/" + id.String() + ext
}

func contentTypeFor(fileName string) string {
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}
