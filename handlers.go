package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"contactos/models"
	"contactos/pkg/apperr"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(requestIDMiddleware(), recoveryMiddleware(), requestLoggerMiddleware(), corsMiddleware(cfg.CORSOrigins))
	setupRoutes(r)
	return r
}

func setupRoutes(r *gin.Engine) {
	api := r.Group(cfg.APIPrefix)
	api.GET("/health", healthHandler)

	authGroup := api.Group("/auth")
	authGroup.Use(rateLimitMiddleware(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window))
	authGroup.POST("/register", registerHandler)
	authGroup.POST("/login", loginHandler)
	authGroup.POST("/refresh", refreshHandler)
	authGroup.POST("/logout", logoutHandler)

	protected := api.Group("")
	protected.Use(jwtAuthMiddleware())
	protected.GET("/auth/me", meHandler)
	protected.POST("/contacts/upload", uploadContactsHandler)
	protected.GET("/contacts", listContactsHandler)
	protected.GET("/contacts/:id", getContactHandler)
	protected.GET("/uploads", listUploadsHandler)
	protected.GET("/uploads/:id", getUploadHandler)
	protected.GET("/uploads/:id/download", downloadUploadHandler)
	protected.DELETE("/uploads/:id", deleteUploadHandler)

	admin := protected.Group("")
	admin.Use(requireRole(models.RoleAdmin))
	admin.GET("/uploads/all", listAllUploadsHandler)
	admin.DELETE("/contacts/:id", deleteContactHandler)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// bindJSON binds the request body and answers with a validation error on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "Errores de validación"))
		return false
	}
	return true
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperr.New(apperr.KindValidation, "Identificador inválido: %s", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

func userResponse(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.RoleName(),
		"createdAt": u.CreatedAt,
	}
}

func registerHandler(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
		Role            string `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := RegisterUser(c.Request.Context(), registerInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"user": userResponse(user)}, "Usuario registrado exitosamente")
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, expiresAt, err := issueAccessToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	refreshToken, err := createAndStoreRefreshToken(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"token":        token,
		"expiresAt":    expiresAt.Format(time.RFC3339),
		"refreshToken": refreshToken,
		"user":         userResponse(user),
	}, "Login exitoso")
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	rt, err := findRefreshTokenByRaw(ctx, req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		respondError(c, apperr.New(apperr.KindUnauthorized, "Token de actualización inválido o expirado"))
		return
	}
	var user models.User
	if err := db.WithContext(ctx).Preload("Role").First(&user, rt.UserID).Error; err != nil {
		respondError(c, apperr.New(apperr.KindUnauthorized, "Usuario no encontrado"))
		return
	}
	token, expiresAt, err := issueAccessToken(&user)
	if err != nil {
		respondError(c, err)
		return
	}
	// rotate refresh token: revoke existing and create new one
	if err := db.WithContext(ctx).Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true).Error; err != nil {
		respondError(c, err)
		return
	}
	newRT, err := createAndStoreRefreshToken(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"token":        token,
		"expiresAt":    expiresAt.Format(time.RFC3339),
		"refreshToken": newRT,
	}, "")
}

// logoutHandler revokes the given refresh token.
func logoutHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	rt, err := findRefreshTokenByRaw(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.NotFound("Token de actualización", "***"))
			return
		}
		respondError(c, err)
		return
	}
	rt.Revoked = true
	if err := db.WithContext(c.Request.Context()).Omit("User").Save(rt).Error; err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"revoked": true}, "Sesión cerrada")
}

func meHandler(c *gin.Context) {
	var user models.User
	if err := db.WithContext(c.Request.Context()).Preload("Role").First(&user, currentUserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.New(apperr.KindUnauthorized, "Usuario no encontrado"))
			return
		}
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": userResponse(&user)}, "")
}
