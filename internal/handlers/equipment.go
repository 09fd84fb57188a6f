package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/auth"
	"github.com/FlexiFlizz/sonphonor/internal/httpx"
	"github.com/FlexiFlizz/sonphonor/internal/models"
	"github.com/FlexiFlizz/sonphonor/internal/validation"
)

type EquipmentHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
	Dev bool
}

func NewEquipmentHandler(db *gorm.DB, log *zap.Logger, dev bool) *EquipmentHandler {
	return &EquipmentHandler{DB: db, Log: log, Dev: dev}
}

// List: GET /api/equipment?categoryId=&condition=&search=
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.DB.Preload("Category").Order("name asc")
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "Paramètre categoryId invalide", nil)
			return
		}
		q = q.Where("category_id = ?", id)
	}
	if condition := r.URL.Query().Get("condition"); condition != "" {
		if !models.Condition(condition).Valid() {
			httpx.JSONError(w, http.StatusBadRequest, "Paramètre condition invalide", nil)
			return
		}
		q = q.Where("condition = ?", condition)
	}
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		like := likePattern(search)
		q = q.Where("lower(name) LIKE ? OR lower(brand) LIKE ? OR lower(model) LIKE ?", like, like, like)
	}
	var equipment []models.Equipment
	if err := q.Find(&equipment).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "list equipment", "Erreur lors de la récupération du matériel", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"equipment": equipment})
}

// Get: GET /api/equipment/{id} — avec catégorie et signalements de dommages
// (rapporteurs inclus, du plus récent au plus ancien).
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var equipment models.Equipment
	err := h.DB.Preload("Category").
		Preload("DamageReports", func(db *gorm.DB) *gorm.DB { return db.Order("reported_at desc") }).
		Preload("DamageReports.ReportedBy").
		First(&equipment, id).Error
	if err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Équipement non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "get equipment", "Erreur lors de la récupération de l'équipement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"equipment": equipment})
}

type equipmentInput struct {
	Name          *string    `json:"name"`
	CategoryID    *uint      `json:"categoryId"`
	Brand         *string    `json:"brand"`
	Model         *string    `json:"model"`
	Description   *string    `json:"description"`
	Quantity      *int       `json:"quantity"`
	DailyRateHT   *float64   `json:"dailyRateHT"`
	Condition     *string    `json:"condition"`
	SerialNumbers []string   `json:"serialNumbers"`
	PurchaseDate  *time.Time `json:"purchaseDate"`
	PurchasePrice *float64   `json:"purchasePrice"`
	ImageURL      *string    `json:"imageUrl"`
}

// Create: POST /api/equipment — availableQuantity démarre à quantity, tout
// est disponible tant qu'aucune réservation n'existe.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input equipmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	get := func(p *string) string {
		if p == nil {
			return ""
		}
		return strings.TrimSpace(*p)
	}
	validation.Required("name", get(input.Name), v)
	validation.Required("brand", get(input.Brand), v)
	validation.Required("model", get(input.Model), v)
	if input.CategoryID == nil || *input.CategoryID == 0 {
		v["categoryId"] = "required"
	}
	if input.Quantity == nil {
		v["quantity"] = "required"
	} else {
		validation.NonNegativeInt("quantity", *input.Quantity, v)
	}
	if input.DailyRateHT == nil {
		v["dailyRateHT"] = "required"
	} else {
		validation.NonNegativeFloat("dailyRateHT", *input.DailyRateHT, v)
	}
	condition := models.ConditionGood
	if input.Condition != nil && *input.Condition != "" {
		condition = models.Condition(*input.Condition)
		if !condition.Valid() {
			v["condition"] = "invalid_value"
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}
	var category models.Category
	if err := h.DB.First(&category, *input.CategoryID).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Catégorie non trouvée", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load category", "Erreur lors de la création de l'équipement", err)
		return
	}
	equipment := models.Equipment{
		Name:              get(input.Name),
		CategoryID:        *input.CategoryID,
		Brand:             get(input.Brand),
		Model:             get(input.Model),
		Quantity:          *input.Quantity,
		AvailableQuantity: *input.Quantity,
		DailyRateHT:       *input.DailyRateHT,
		Condition:         condition,
		SerialNumbers:     models.SerialNumbers(input.SerialNumbers),
		PurchaseDate:      input.PurchaseDate,
		PurchasePrice:     input.PurchasePrice,
	}
	if input.Description != nil {
		equipment.Description = *input.Description
	}
	if input.ImageURL != nil {
		equipment.ImageURL = *input.ImageURL
	}
	if err := h.DB.Create(&equipment).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "create equipment", "Erreur lors de la création de l'équipement", err)
		return
	}
	equipment.Category = &category
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Équipement créé avec succès", "equipment": equipment})
}

// Update: PUT /api/equipment/{id} — fusion partielle, les champs sont stockés
// tels quels, aucun recalcul (availableQuantity y compris).
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var equipment models.Equipment
	if err := h.DB.First(&equipment, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Équipement non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load equipment", "Erreur lors de la mise à jour de l'équipement", err)
		return
	}
	var input struct {
		equipmentInput
		AvailableQuantity *int `json:"availableQuantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	if input.Condition != nil && !models.Condition(*input.Condition).Valid() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", validation.Violations{"condition": "invalid_value"})
		return
	}
	if input.Name != nil {
		equipment.Name = strings.TrimSpace(*input.Name)
	}
	if input.CategoryID != nil {
		equipment.CategoryID = *input.CategoryID
	}
	if input.Brand != nil {
		equipment.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Model != nil {
		equipment.Model = strings.TrimSpace(*input.Model)
	}
	if input.Description != nil {
		equipment.Description = *input.Description
	}
	if input.Quantity != nil {
		equipment.Quantity = *input.Quantity
	}
	if input.AvailableQuantity != nil {
		equipment.AvailableQuantity = *input.AvailableQuantity
	}
	if input.DailyRateHT != nil {
		equipment.DailyRateHT = *input.DailyRateHT
	}
	if input.Condition != nil {
		equipment.Condition = models.Condition(*input.Condition)
	}
	if input.SerialNumbers != nil {
		equipment.SerialNumbers = models.SerialNumbers(input.SerialNumbers)
	}
	if input.PurchaseDate != nil {
		equipment.PurchaseDate = input.PurchaseDate
	}
	if input.PurchasePrice != nil {
		equipment.PurchasePrice = input.PurchasePrice
	}
	if input.ImageURL != nil {
		equipment.ImageURL = *input.ImageURL
	}
	if err := h.DB.Save(&equipment).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "update equipment", "Erreur lors de la mise à jour de l'équipement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Équipement mis à jour avec succès", "equipment": equipment})
}

// Delete: DELETE /api/equipment/{id}
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	res := h.DB.Delete(&models.Equipment{}, id)
	if res.Error != nil {
		httpx.Internal(w, h.Log, h.Dev, "delete equipment", "Erreur lors de la suppression de l'équipement", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Équipement non trouvé", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Équipement supprimé avec succès"})
}

type conditionCount struct {
	Condition models.Condition `json:"condition"`
	Count     int64            `json:"count"`
}

// Stats: GET /api/equipment/stats — recalculé à chaque requête, pas de cache.
func (h *EquipmentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var total int64
	if err := h.DB.Model(&models.Equipment{}).Count(&total).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "equipment stats", "Erreur lors de la récupération des statistiques", err)
		return
	}
	var totalValue float64
	if err := h.DB.Model(&models.Equipment{}).
		Select("COALESCE(SUM(purchase_price), 0)").Scan(&totalValue).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "equipment stats", "Erreur lors de la récupération des statistiques", err)
		return
	}
	var lowStock, outOfStock int64
	h.DB.Model(&models.Equipment{}).Where("available_quantity < ?", 3).Count(&lowStock)
	h.DB.Model(&models.Equipment{}).Where("available_quantity = ?", 0).Count(&outOfStock)

	var byCondition []conditionCount
	if err := h.DB.Model(&models.Equipment{}).
		Select("condition, COUNT(*) as count").Group("condition").Scan(&byCondition).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "equipment stats", "Erreur lors de la récupération des statistiques", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"totalEquipment": total,
		"totalValue":     totalValue,
		"lowStock":       lowStock,
		"outOfStock":     outOfStock,
		"byCondition":    byCondition,
	})
}

// ReportDamage: POST /api/equipment/{id}/damage — fiche incident rattachée au
// rapporteur authentifié ; ne modifie ni l'état ni le stock de l'équipement.
func (h *EquipmentHandler) ReportDamage(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	equipmentID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || equipmentID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "Token non fourni", nil)
		return
	}
	var input struct {
		Description      string     `json:"description"`
		IncidentDate     *time.Time `json:"incidentDate"`
		IncidentLocation string     `json:"incidentLocation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("description", input.Description, v)
	validation.Required("incidentLocation", input.IncidentLocation, v)
	if input.IncidentDate == nil {
		v["incidentDate"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}
	var equipment models.Equipment
	if err := h.DB.First(&equipment, equipmentID).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Équipement non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load equipment", "Erreur lors du signalement du dommage", err)
		return
	}
	report := models.DamageReport{
		EquipmentID:      uint(equipmentID),
		ReportedByID:     identity.ID,
		Description:      input.Description,
		IncidentDate:     *input.IncidentDate,
		IncidentLocation: input.IncidentLocation,
		ReportedAt:       time.Now(),
	}
	if err := h.DB.Create(&report).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "create damage report", "Erreur lors du signalement du dommage", err)
		return
	}
	report.Equipment = &equipment
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Dommage signalé avec succès", "damageReport": report})
}
