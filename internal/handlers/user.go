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

type UserHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
	Dev bool
}

func NewUserHandler(db *gorm.DB, log *zap.Logger, dev bool) *UserHandler {
	return &UserHandler{DB: db, Log: log, Dev: dev}
}

func publicUsers(users []models.User) []models.PublicUser {
	out := make([]models.PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out
}

// List: GET /api/users?role=&status=&search= — réservé aux administrateurs.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.DB.Order("last_name asc, first_name asc")
	if role := r.URL.Query().Get("role"); role != "" {
		if !models.Role(role).Valid() {
			httpx.JSONError(w, http.StatusBadRequest, "Paramètre role invalide", nil)
			return
		}
		q = q.Where("role = ?", role)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.UserStatus(status).Valid() {
			httpx.JSONError(w, http.StatusBadRequest, "Paramètre status invalide", nil)
			return
		}
		q = q.Where("status = ?", status)
	}
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		like := likePattern(search)
		q = q.Where("lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ?", like, like, like)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "list users", "Erreur lors de la récupération des utilisateurs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": publicUsers(users)})
}

// Get: GET /api/users/{id} — fiche + compteurs d'activité.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "get user", "Erreur lors de la récupération de l'utilisateur", err)
		return
	}
	var quoteCount, eventCount int64
	h.DB.Model(&models.Quote{}).Where("created_by_id = ?", user.ID).Count(&quoteCount)
	h.DB.Model(&models.Event{}).Where("created_by_id = ?", user.ID).Count(&eventCount)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":       user.Public(),
		"quoteCount": quoteCount,
		"eventCount": eventCount,
	})
}

// Update: PUT /api/users/{id} — modification par un administrateur.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load user", "Erreur lors de la mise à jour de l'utilisateur", err)
		return
	}
	var input struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Email     *string `json:"email"`
		Phone     *string `json:"phone"`
		Role      *string `json:"role"`
		Status    *string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	if input.Email != nil {
		validation.Email("email", *input.Email, v)
	}
	if input.Role != nil && !models.Role(*input.Role).Valid() {
		v["role"] = "invalid_value"
	}
	if input.Status != nil && !models.UserStatus(*input.Status).Valid() {
		v["status"] = "invalid_value"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Role != nil {
		user.Role = models.Role(*input.Role)
	}
	if input.Status != nil {
		user.Status = models.UserStatus(*input.Status)
	}
	if err := h.DB.Save(&user).Error; err != nil {
		if isDuplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "Un utilisateur avec cet email existe déjà", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "update user", "Erreur lors de la mise à jour de l'utilisateur", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Utilisateur mis à jour avec succès", "user": user.Public()})
}

// Delete: DELETE /api/users/{id} — un administrateur ne peut pas supprimer
// son propre compte.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "Token non fourni", nil)
		return
	}
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	if identity.ID == id {
		httpx.JSONError(w, http.StatusBadRequest, "Vous ne pouvez pas supprimer votre propre compte", nil)
		return
	}
	res := h.DB.Delete(&models.User{}, id)
	if res.Error != nil {
		httpx.Internal(w, h.Log, h.Dev, "delete user", "Erreur lors de la suppression de l'utilisateur", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Utilisateur supprimé avec succès"})
}

// ResetPassword: POST /api/users/{id}/reset-password — l'administrateur fixe
// un nouveau mot de passe sans connaître l'ancien.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var input struct {
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	validation.MinLen("newPassword", input.NewPassword, 6, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load user", "Erreur lors de la réinitialisation du mot de passe", err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httpx.Internal(w, h.Log, h.Dev, "hash password", "Erreur lors de la réinitialisation du mot de passe", err)
		return
	}
	if err := h.DB.Model(&user).Update("password", string(hash)).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reset password", "Erreur lors de la réinitialisation du mot de passe", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Mot de passe réinitialisé avec succès"})
}

// UpdateProfile: PUT /api/users/profile — l'utilisateur courant modifie sa
// propre fiche (jamais son rôle ni son statut).
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
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
		httpx.Internal(w, h.Log, h.Dev, "load profile", "Erreur lors de la mise à jour du profil", err)
		return
	}
	var input struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Email     *string `json:"email"`
		Phone     *string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	if input.Email != nil {
		v := validation.Violations{}
		validation.Email("email", *input.Email, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
			return
		}
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if err := h.DB.Save(&user).Error; err != nil {
		if isDuplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "Un utilisateur avec cet email existe déjà", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "update profile", "Erreur lors de la mise à jour du profil", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Profil mis à jour avec succès", "user": user.Public()})
}

// Stats: GET /api/users/stats — effectifs par rôle et statut, plus les
// inscriptions des 30 derniers jours.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "user stats", "Erreur lors du calcul des statistiques", err)
		return
	}

	byRole := map[string]int64{}
	var roleRows []struct {
		Role  string
		Count int64
	}
	if err := h.DB.Model(&models.User{}).
		Select("role, count(*) as count").
		Group("role").
		Scan(&roleRows).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "user stats", "Erreur lors du calcul des statistiques", err)
		return
	}
	for _, row := range roleRows {
		byRole[row.Role] = row.Count
	}

	byStatus := map[string]int64{}
	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := h.DB.Model(&models.User{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "user stats", "Erreur lors du calcul des statistiques", err)
		return
	}
	for _, row := range statusRows {
		byStatus[row.Status] = row.Count
	}

	var recentUsers int64
	cutoff := time.Now().AddDate(0, 0, -30)
	if err := h.DB.Model(&models.User{}).
		Where("created_at >= ?", cutoff).
		Count(&recentUsers).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "user stats", "Erreur lors du calcul des statistiques", err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"stats": map[string]any{
			"totalUsers":  total,
			"byRole":      byRole,
			"byStatus":    byStatus,
			"recentUsers": recentUsers,
		},
	})
}
