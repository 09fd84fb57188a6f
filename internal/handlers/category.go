package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/httpx"
	"github.com/FlexiFlizz/sonphonor/internal/models"
	"github.com/FlexiFlizz/sonphonor/internal/validation"
)

const defaultColor = "#64748b"

type CategoryHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
	Dev bool
}

func NewCategoryHandler(db *gorm.DB, log *zap.Logger, dev bool) *CategoryHandler {
	return &CategoryHandler{DB: db, Log: log, Dev: dev}
}

// List: GET /api/categories — toutes les catégories avec le nombre d'équipements.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	var categories []models.Category
	q := h.DB.Order("name asc")
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		like := likePattern(search)
		q = q.Where("lower(name) LIKE ? OR lower(description) LIKE ?", like, like)
	}
	if err := q.Find(&categories).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "list categories", "Erreur lors de la récupération des catégories", err)
		return
	}
	for i := range categories {
		if err := h.DB.Model(&models.Equipment{}).Where("category_id = ?", categories[i].ID).Count(&categories[i].EquipmentCount).Error; err != nil {
			httpx.Internal(w, h.Log, h.Dev, "count equipment", "Erreur lors de la récupération des catégories", err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// Get: GET /api/categories/{id} — avec les équipements rattachés.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var category models.Category
	if err := h.DB.Preload("Equipment").First(&category, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Catégorie non trouvée", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "get category", "Erreur lors de la récupération de la catégorie", err)
		return
	}
	category.EquipmentCount = int64(len(category.Equipment))
	httpx.JSON(w, http.StatusOK, map[string]any{"category": category})
}

type categoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// Create: POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input categoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	name := ""
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	validation.Required("name", name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}
	category := models.Category{Name: name, Color: defaultColor}
	if input.Description != nil {
		category.Description = *input.Description
	}
	if input.Color != nil && *input.Color != "" {
		category.Color = *input.Color
	}
	if err := h.DB.Create(&category).Error; err != nil {
		if isDuplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "Une catégorie avec ce nom existe déjà", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "create category", "Erreur lors de la création de la catégorie", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Catégorie créée avec succès", "category": category})
}

// Update: PUT /api/categories/{id} — fusion partielle des champs fournis.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Catégorie non trouvée", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load category", "Erreur lors de la récupération de la catégorie", err)
		return
	}
	var input categoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		v := validation.Violations{}
		validation.Required("name", name, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
			return
		}
		category.Name = name
	}
	if input.Description != nil {
		category.Description = *input.Description
	}
	if input.Color != nil {
		category.Color = *input.Color
	}
	if err := h.DB.Save(&category).Error; err != nil {
		if isDuplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "Une catégorie avec ce nom existe déjà", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "update category", "Erreur lors de la mise à jour de la catégorie", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Catégorie mise à jour avec succès", "category": category})
}

// Delete: DELETE /api/categories/{id} — refusé tant que la catégorie possède
// du matériel.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var equipmentCount int64
	if err := h.DB.Model(&models.Equipment{}).Where("category_id = ?", id).Count(&equipmentCount).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "count category equipment", "Erreur lors de la suppression de la catégorie", err)
		return
	}
	if equipmentCount > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "Impossible de supprimer une catégorie contenant du matériel", nil)
		return
	}
	res := h.DB.Delete(&models.Category{}, id)
	if res.Error != nil {
		httpx.Internal(w, h.Log, h.Dev, "delete category", "Erreur lors de la suppression de la catégorie", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Catégorie non trouvée", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Catégorie supprimée avec succès"})
}
