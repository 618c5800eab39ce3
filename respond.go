package main

import (
	"errors"

	"contactos/pkg/apperr"
	"contactos/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondOK(c *gin.Context, status int, data any, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// respondError renders err in the error envelope. Errors that are not
// *apperr.Error are logged and reported as internal.
func respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		logger.WithContext(c.Request.Context()).Error("unhandled error", zap.Error(err))
		ae = apperr.Wrap(apperr.KindInternal, err, "Error interno del servidor")
	} else if ae.Kind == apperr.KindInternal {
		logger.WithContext(c.Request.Context()).Error("internal error", zap.Error(err))
	}
	body := gin.H{"code": ae.Kind.Code(), "message": ae.Message}
	if d := ae.Details(); d != nil {
		body["details"] = d
	}
	c.JSON(ae.Kind.HTTPStatus(), gin.H{"success": false, "error": body})
}
