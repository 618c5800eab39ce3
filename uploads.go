package main

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"contactos/models"
	"contactos/pkg/apperr"
	"contactos/pkg/logger"
	"contactos/pkg/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// uploadDetail adds the current contact count, which drifts from
// TotalRecords once contacts are deleted individually.
type uploadDetail struct {
	models.Upload
	ActualRecords int64 `json:"actualRecords"`
}

// listUploadsHandler returns the caller's own uploads.
func listUploadsHandler(c *gin.Context) {
	uid := currentUserID(c)
	listUploads(c, store.UploadFilter{UploadedByID: &uid})
}

func listAllUploadsHandler(c *gin.Context) {
	listUploads(c, store.UploadFilter{})
}

func listUploads(c *gin.Context, filter store.UploadFilter) {
	p := pageFromQuery(c)
	items, total, err := contactStore.ListUploads(c.Request.Context(), filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, store.NewPaginated(items, total, p), "")
}

// loadOwnedUpload fetches the upload and checks that the caller owns it or is an admin.
func loadOwnedUpload(c *gin.Context) (*models.Upload, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	up, err := contactStore.GetUpload(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if currentRole(c) != models.RoleAdmin && up.UploadedByID != currentUserID(c) {
		respondError(c, apperr.Forbidden(""))
		return nil, false
	}
	return up, true
}

func getUploadHandler(c *gin.Context) {
	up, ok := loadOwnedUpload(c)
	if !ok {
		return
	}
	n, err := contactStore.CountContacts(c.Request.Context(), up.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, uploadDetail{Upload: *up, ActualRecords: n}, "")
}

// downloadUploadHandler streams the archived original file.
func downloadUploadHandler(c *gin.Context) {
	up, ok := loadOwnedUpload(c)
	if !ok {
		return
	}
	rc, err := files.Open(c.Request.Context(), up.StoredPath)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := "text/csv; charset=utf-8"
	if strings.EqualFold(filepath.Ext(up.StoredPath), ".xlsx") {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": up.OriginalFileName}))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		logger.WithContext(c.Request.Context()).Warn("download interrupted", zap.Uint("upload_id", up.ID), zap.Error(err))
	}
}

// deleteUploadHandler removes the upload with its contacts, then its archived file.
func deleteUploadHandler(c *gin.Context) {
	up, ok := loadOwnedUpload(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := contactStore.DeleteUpload(ctx, up.ID); err != nil {
		respondError(c, err)
		return
	}
	if err := files.Delete(ctx, up.StoredPath); err != nil {
		logger.WithContext(ctx).Warn("failed to remove archived file", zap.String("key", up.StoredPath), zap.Error(err))
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true}, "Se ha eliminado exitosamente")
}
