package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"contactos/pkg/apperr"
	"contactos/pkg/store"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// multipart overhead allowed on top of the file size limit
const multipartSlack = 1 << 20

// uploadContactsHandler stores the multipart file in the temp dir and runs the import on it.
func uploadContactsHandler(c *gin.Context) {
	maxBytes := cfg.Upload.MaxBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartSlack)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, fileTooLarge(maxBytes))
			return
		}
		respondError(c, apperr.New(apperr.KindFileNotProvided, "No se proporcionó ningún archivo"))
		return
	}
	if file.Size > maxBytes {
		respondError(c, fileTooLarge(maxBytes))
		return
	}
	if !acceptedUpload(file.Filename, file.Header.Get("Content-Type")) {
		respondError(c, apperr.New(apperr.KindInvalidFileType, "Solo se permiten archivos CSV"))
		return
	}

	dir := uploadTmpDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		respondError(c, err)
		return
	}
	tmpPath := filepath.Join(dir, "file-"+uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		os.Remove(tmpPath)
		respondError(c, apperr.Wrap(apperr.KindInternal, err, "No se pudo guardar el archivo"))
		return
	}

	summary, err := importer.ImportFile(c.Request.Context(), tmpPath, file.Filename, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, summary, summary.Message)
}

func fileTooLarge(max int64) error {
	return apperr.New(apperr.KindFileTooLarge, "El archivo es demasiado grande. Tamaño máximo: %s", humanize.IBytes(uint64(max)))
}

// acceptedUpload allows .csv or text/csv, plus .xlsx workbooks.
func acceptedUpload(name, contentType string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "text/csv")
}

// pageFromQuery reads page and limit, falling back to the configured defaults.
func pageFromQuery(c *gin.Context) store.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return store.NewPage(page, limit, cfg.Pagination.DefaultPageSize, cfg.Pagination.MaxPageSize)
}

func listContactsHandler(c *gin.Context) {
	var filter store.ContactFilter
	if v := c.Query("uploadId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(c, apperr.New(apperr.KindValidation, "uploadId inválido: %s", v))
			return
		}
		uid := uint(id)
		filter.UploadID = &uid
	}
	p := pageFromQuery(c)
	items, total, err := contactStore.ListContacts(c.Request.Context(), filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, store.NewPaginated(items, total, p), "")
}

func getContactHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	contact, err := contactStore.GetContact(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, contact, "")
}

// deleteContactHandler removes one contact; the upload keeps its imported total.
func deleteContactHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := contactStore.DeleteContact(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true}, "Contacto eliminado exitosamente")
}
