package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"contactos/models"
	"contactos/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var jwtSecret []byte // loaded from JWT_SECRET

// Claims is the access token payload. Subject carries the user id as well.
type Claims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type registerInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
}

// RegisterUser creates an account. The role defaults to "user".
func RegisterUser(ctx context.Context, in registerInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if in.Role != models.RoleUser && in.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.KindValidation, "El rol debe ser user o admin")
	}
	if len(in.Password) < 6 { // basic password policy
		return nil, apperr.New(apperr.KindValidation, "La contraseña debe tener al menos 6 caracteres")
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperr.New(apperr.KindValidation, "Las contraseñas no coinciden")
	}
	tx := db.WithContext(ctx)
	// pre-check existing (optimistic)
	var existing int64
	if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperr.New(apperr.KindConflict, "El usuario ya existe")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost())
	if err != nil {
		return nil, err
	}
	var role models.Role
	if err := tx.Where(models.Role{Name: in.Role}).FirstOrCreate(&role).Error; err != nil {
		return nil, err
	}
	rid := role.ID
	user := models.User{Name: in.Name, Email: in.Email, HashedPassword: hashedPassword, RoleID: &rid, Role: role}
	if err := tx.Omit("Role").Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return nil, apperr.New(apperr.KindConflict, "El usuario ya existe")
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate checks the password and returns the user with its role loaded.
func Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindInvalidCredentials, "Credenciales inválidas")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return nil, apperr.New(apperr.KindInvalidCredentials, "Credenciales inválidas")
	}
	return &user, nil
}

func bcryptCost() int {
	if cfg != nil && cfg.BcryptCost != 0 {
		return cfg.BcryptCost
	}
	return bcrypt.DefaultCost
}

// isUniqueConstraintError recognises postgres 23505 and falls back to message matching for other drivers.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

func issueAccessToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(cfg.JWT.Expiration)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.RoleName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(jwtSecret)
	return s, expiresAt, err
}

func parseAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(ctx context.Context, userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	rt := models.RefreshToken{UserID: userID, TokenHash: hashToken(token), ExpiresAt: time.Now().Add(cfg.JWT.RefreshExpiration)}
	if err := db.WithContext(ctx).Omit("User").Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
