// Package auth implémente le contrôle d'identité : émission et vérification
// des jetons bearer, et middleware qui attache l'identité vérifiée au contexte
// de la requête. Les services en aval ne revérifient jamais le jeton.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/httpx"
	"github.com/FlexiFlizz/sonphonor/internal/models"
)

type ctxKey string

const identityCtxKey = ctxKey("identity")

// TokenTTL is the bearer token lifetime.
const TokenTTL = 24 * time.Hour

// Rejection reasons, distinguished so handlers and tests can tell them apart.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
	ErrAccountDisabled   = errors.New("account disabled")
)

// Identity is the verified caller attached to each authenticated request.
type Identity struct {
	ID        uint
	Email     string
	FirstName string
	LastName  string
	Role      models.Role
	Status    models.UserStatus
}

type claims struct {
	UserID uint `json:"userId"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for the given user id.
func IssueToken(secret string, userID uint, now time.Time) (string, error) {
	c := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken verifies a token and returns the embedded user id.
func ParseToken(secret, token string) (uint, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpiredCredential
		}
		return 0, ErrInvalidCredential
	}
	if !parsed.Valid || c.UserID == 0 {
		return 0, ErrInvalidCredential
	}
	return c.UserID, nil
}

// WithIdentity stores the identity in the context (used by tests as well).
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext extracts the verified caller.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	return id, ok
}

// Middleware resolves the bearer token, loads the account and attaches the
// identity. Requests without a valid, active identity never reach the next
// handler.
func Middleware(db *gorm.DB, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				httpx.JSONError(w, http.StatusUnauthorized, "Token non fourni", nil)
				return
			}
			uid, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				msg := "Token invalide"
				if errors.Is(err, ErrExpiredCredential) {
					msg = "Token expiré"
				}
				httpx.JSONError(w, http.StatusUnauthorized, msg, nil)
				return
			}
			var user models.User
			if err := db.First(&user, uid).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					httpx.JSONError(w, http.StatusUnauthorized, "Utilisateur non trouvé", nil)
					return
				}
				httpx.JSONError(w, http.StatusInternalServerError, "Erreur d'authentification", nil)
				return
			}
			if user.Status != models.UserActive {
				httpx.JSONError(w, http.StatusForbidden, "Compte désactivé", nil)
				return
			}
			id := Identity{
				ID:        user.ID,
				Email:     user.Email,
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Role:      user.Role,
				Status:    user.Status,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
