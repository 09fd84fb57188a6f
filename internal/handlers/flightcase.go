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

type FlightCaseHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
	Dev bool
}

func NewFlightCaseHandler(db *gorm.DB, log *zap.Logger, dev bool) *FlightCaseHandler {
	return &FlightCaseHandler{DB: db, Log: log, Dev: dev}
}

type flightCaseItemInput struct {
	EquipmentID uint `json:"equipmentId"`
	Quantity    int  `json:"quantity"`
}

// List: GET /api/flightcases?search=
func (h *FlightCaseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.DB.Preload("Items.Equipment").Order("name asc")
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		like := likePattern(search)
		q = q.Where("lower(name) LIKE ? OR lower(description) LIKE ?", like, like)
	}
	var cases []models.FlightCase
	if err := q.Find(&cases).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "list flight cases", "Erreur lors de la récupération des flight cases", err)
		return
	}
	for i := range cases {
		cases[i].ItemCount = int64(len(cases[i].Items))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"flightCases": cases})
}

// Get: GET /api/flightcases/{id}
func (h *FlightCaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var fc models.FlightCase
	if err := h.DB.Preload("Items.Equipment.Category").First(&fc, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Flight case non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "get flight case", "Erreur lors de la récupération du flight case", err)
		return
	}
	fc.ItemCount = int64(len(fc.Items))
	httpx.JSON(w, http.StatusOK, map[string]any{"flightCase": fc})
}

// Create: POST /api/flightcases — en-tête + contenu dans une transaction.
func (h *FlightCaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string                `json:"name"`
		Description string                `json:"description"`
		Color       string                `json:"color"`
		Items       []flightCaseItemInput `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	for _, it := range input.Items {
		if it.EquipmentID == 0 || it.Quantity <= 0 {
			v["items"] = "invalid_item"
			break
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}

	fc := models.FlightCase{
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
	}
	if fc.Color == "" {
		fc.Color = "#64748b"
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&fc).Error; err != nil {
			return err
		}
		for _, it := range input.Items {
			var eq models.Equipment
			if err := tx.First(&eq, it.EquipmentID).Error; err != nil {
				return err
			}
			item := models.FlightCaseItem{
				FlightCaseID: fc.ID,
				EquipmentID:  it.EquipmentID,
				Quantity:     it.Quantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Équipement non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "create flight case", "Erreur lors de la création du flight case", err)
		return
	}
	if err := h.DB.Preload("Items.Equipment").First(&fc, fc.ID).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reload flight case", "Erreur lors de la création du flight case", err)
		return
	}
	fc.ItemCount = int64(len(fc.Items))
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Flight case créé avec succès", "flightCase": fc})
}

// Update: PUT /api/flightcases/{id} — l'en-tête se fusionne champ par champ ;
// si items est fourni, le contenu est remplacé intégralement.
func (h *FlightCaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var fc models.FlightCase
	if err := h.DB.First(&fc, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Flight case non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load flight case", "Erreur lors de la mise à jour du flight case", err)
		return
	}
	var input struct {
		Name        *string                `json:"name"`
		Description *string                `json:"description"`
		Color       *string                `json:"color"`
		Items       *[]flightCaseItemInput `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	if input.Items != nil {
		for _, it := range *input.Items {
			if it.EquipmentID == 0 || it.Quantity <= 0 {
				httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", validation.Violations{"items": "invalid_item"})
				return
			}
		}
	}
	if input.Name != nil {
		fc.Name = *input.Name
	}
	if input.Description != nil {
		fc.Description = *input.Description
	}
	if input.Color != nil {
		fc.Color = *input.Color
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&fc).Error; err != nil {
			return err
		}
		if input.Items == nil {
			return nil
		}
		if err := tx.Where("flight_case_id = ?", fc.ID).Delete(&models.FlightCaseItem{}).Error; err != nil {
			return err
		}
		for _, it := range *input.Items {
			var eq models.Equipment
			if err := tx.First(&eq, it.EquipmentID).Error; err != nil {
				return err
			}
			item := models.FlightCaseItem{
				FlightCaseID: fc.ID,
				EquipmentID:  it.EquipmentID,
				Quantity:     it.Quantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Équipement non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "update flight case", "Erreur lors de la mise à jour du flight case", err)
		return
	}
	if err := h.DB.Preload("Items.Equipment").First(&fc, fc.ID).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reload flight case", "Erreur lors de la mise à jour du flight case", err)
		return
	}
	fc.ItemCount = int64(len(fc.Items))
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Flight case mis à jour avec succès", "flightCase": fc})
}

// Delete: DELETE /api/flightcases/{id}
func (h *FlightCaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.FlightCase{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("flight_case_id = ?", id).Delete(&models.FlightCaseItem{}).Error
	})
	if err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Flight case non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "delete flight case", "Erreur lors de la suppression du flight case", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Flight case supprimé avec succès"})
}
