package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/auth"
	"github.com/FlexiFlizz/sonphonor/internal/httpx"
	"github.com/FlexiFlizz/sonphonor/internal/models"
	"github.com/FlexiFlizz/sonphonor/internal/validation"
)

type AuthHandler struct {
	DB     *gorm.DB
	Secret string
	Log    *zap.Logger
	Dev    bool
}

func NewAuthHandler(db *gorm.DB, secret string, log *zap.Logger, dev bool) *AuthHandler {
	return &AuthHandler{DB: db, Secret: secret, Log: log, Dev: dev}
}

// Register: POST /api/auth/register — inscription publique, rôle VOLUNTEER
// par défaut.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("firstName", input.FirstName, v)
	validation.Required("lastName", input.LastName, v)
	validation.Email("email", input.Email, v)
	validation.MinLen("password", input.Password, 6, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.Internal(w, h.Log, h.Dev, "hash password", "Erreur lors de l'inscription", err)
		return
	}
	user := models.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Password:  string(hash),
		Phone:     input.Phone,
		Role:      models.RoleVolunteer,
		Status:    models.UserActive,
		JoinDate:  time.Now(),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "Un utilisateur avec cet email existe déjà", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "register user", "Erreur lors de l'inscription", err)
		return
	}
	token, err := auth.IssueToken(h.Secret, user.ID, time.Now())
	if err != nil {
		httpx.Internal(w, h.Log, h.Dev, "issue token", "Erreur lors de l'inscription", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "Inscription réussie",
		"token":   token,
		"user":    user.Public(),
	})
}

// Login: POST /api/auth/login — la date de dernière connexion est mise à jour
// à chaque succès.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("email", input.Email, v)
	validation.Required("password", input.Password, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}

	var user models.User
	err := h.DB.Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusUnauthorized, "Email ou mot de passe incorrect", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "login lookup", "Erreur lors de la connexion", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "Email ou mot de passe incorrect", nil)
		return
	}
	if user.Status == models.UserInactive {
		httpx.JSONError(w, http.StatusForbidden, "Compte désactivé", nil)
		return
	}
	now := time.Now()
	if err := h.DB.Model(&user).Update("last_login", now).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "update last login", "Erreur lors de la connexion", err)
		return
	}
	user.LastLogin = &now
	token, err := auth.IssueToken(h.Secret, user.ID, now)
	if err != nil {
		httpx.Internal(w, h.Log, h.Dev, "issue token", "Erreur lors de la connexion", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Connexion réussie",
		"token":   token,
		"user":    user.Public(),
	})
}

// Me: GET /api/auth/me — la fiche du porteur du token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "Token non fourni", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, identity.ID).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load current user", "Erreur lors de la récupération du profil", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// ChangePassword: POST /api/auth/change-password — exige le mot de passe
// courant, contrairement à la réinitialisation par un administrateur.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "Token non fourni", nil)
		return
	}
	var input struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("currentPassword", input.CurrentPassword, v)
	validation.MinLen("newPassword", input.NewPassword, 6, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}

	var user models.User
	if err := h.DB.First(&user, identity.ID).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load current user", "Erreur lors du changement de mot de passe", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "Mot de passe actuel incorrect", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httpx.Internal(w, h.Log, h.Dev, "hash password", "Erreur lors du changement de mot de passe", err)
		return
	}
	if err := h.DB.Model(&user).Update("password", string(hash)).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "change password", "Erreur lors du changement de mot de passe", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Mot de passe modifié avec succès"})
}
