package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/auth"
	"github.com/FlexiFlizz/sonphonor/internal/httpx"
	"github.com/FlexiFlizz/sonphonor/internal/models"
	"github.com/FlexiFlizz/sonphonor/internal/services"
	"github.com/FlexiFlizz/sonphonor/internal/validation"
)

type QuoteHandler struct {
	DB  *gorm.DB
	Svc *services.QuoteService
	Log *zap.Logger
	Dev bool
}

func NewQuoteHandler(db *gorm.DB, svc *services.QuoteService, log *zap.Logger, dev bool) *QuoteHandler {
	return &QuoteHandler{DB: db, Svc: svc, Log: log, Dev: dev}
}

func (h *QuoteHandler) preload(db *gorm.DB) *gorm.DB {
	return db.Preload("Items.Equipment.Category").Preload("CreatedBy")
}

// List: GET /api/quotes?status=&search=
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.preload(h.DB).Order("created_at desc")
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.QuoteStatus(status).Valid() {
			httpx.JSONError(w, http.StatusBadRequest, "Paramètre status invalide", nil)
			return
		}
		q = q.Where("status = ?", status)
	}
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		like := likePattern(search)
		q = q.Where("lower(client_name) LIKE ? OR lower(client_email) LIKE ? OR lower(event_name) LIKE ? OR lower(quote_number) LIKE ?",
			like, like, like, like)
	}
	var quotes []models.Quote
	if err := q.Find(&quotes).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "list quotes", "Erreur lors de la récupération des devis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

// Get: GET /api/quotes/{id}
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var quote models.Quote
	if err := h.preload(h.DB).First(&quote, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Devis non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "get quote", "Erreur lors de la récupération du devis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quote": quote})
}

type quoteCreateInput struct {
	ClientName  string                 `json:"clientName"`
	ClientEmail string                 `json:"clientEmail"`
	ClientPhone string                 `json:"clientPhone"`
	EventName   string                 `json:"eventName"`
	EventDate   *time.Time             `json:"eventDate"`
	ValidUntil  *time.Time             `json:"validUntil"`
	Notes       string                 `json:"notes"`
	Items       []services.LineRequest `json:"items"`
}

// Create: POST /api/quotes — charge les équipements, fige les tarifs, calcule
// les totaux et persiste en-tête + lignes dans une seule transaction : soit
// tout est visible, soit rien.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "Token non fourni", nil)
		return
	}
	var input quoteCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("clientName", input.ClientName, v)
	validation.Email("clientEmail", input.ClientEmail, v)
	validation.Required("clientPhone", input.ClientPhone, v)
	validation.Required("eventName", input.EventName, v)
	if input.EventDate == nil {
		v["eventDate"] = "required"
	}
	if input.ValidUntil == nil {
		v["validUntil"] = "required"
	}
	if len(input.Items) == 0 {
		v["items"] = "required"
	}
	for _, line := range input.Items {
		if line.EquipmentID == 0 || line.Quantity <= 0 || line.Days <= 0 {
			v["items"] = "invalid_line"
			break
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}

	ids := h.Svc.EquipmentIDs(input.Items)
	var equipment []models.Equipment
	if err := h.DB.Where("id IN ?", ids).Find(&equipment).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "load equipment", "Erreur lors de la création du devis", err)
		return
	}
	byID := make(map[uint]models.Equipment, len(equipment))
	for _, eq := range equipment {
		byID[eq.ID] = eq
	}
	items, totalAmount, taxAmount, err := h.Svc.Price(input.Items, byID)
	if err != nil {
		var notFound *services.EquipmentNotFoundError
		if errors.As(err, &notFound) {
			httpx.JSONError(w, http.StatusNotFound, notFound.Error(), nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "price quote", "Erreur lors de la création du devis", err)
		return
	}

	quote := models.Quote{
		ClientName:  input.ClientName,
		ClientEmail: input.ClientEmail,
		ClientPhone: input.ClientPhone,
		EventName:   input.EventName,
		EventDate:   *input.EventDate,
		ValidUntil:  *input.ValidUntil,
		Status:      models.QuoteDraft,
		TotalAmount: totalAmount,
		TaxAmount:   taxAmount,
		Notes:       input.Notes,
		CreatedByID: identity.ID,
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		number, err := services.NextQuoteNumber(tx, time.Now().Year())
		if err != nil {
			return err
		}
		quote.QuoteNumber = number
		if err := tx.Create(&quote).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].QuoteID = quote.ID
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		httpx.Internal(w, h.Log, h.Dev, "create quote", "Erreur lors de la création du devis", err)
		return
	}
	if err := h.preload(h.DB).First(&quote, quote.ID).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reload quote", "Erreur lors de la création du devis", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Devis créé avec succès", "quote": quote})
}

// Update: PUT /api/quotes/{id} — met à jour l'en-tête uniquement. Un payload
// contenant des lignes est refusé plutôt qu'ignoré : les lignes passent par
// une opération dédiée.
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var input struct {
		ClientName  *string          `json:"clientName"`
		ClientEmail *string          `json:"clientEmail"`
		ClientPhone *string          `json:"clientPhone"`
		EventName   *string          `json:"eventName"`
		EventDate   *time.Time       `json:"eventDate"`
		ValidUntil  *time.Time       `json:"validUntil"`
		Notes       *string          `json:"notes"`
		Items       *json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	if input.Items != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Les lignes du devis se modifient via l'opération dédiée", nil)
		return
	}
	var quote models.Quote
	if err := h.DB.First(&quote, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Devis non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load quote", "Erreur lors de la mise à jour du devis", err)
		return
	}
	if input.ClientName != nil {
		quote.ClientName = *input.ClientName
	}
	if input.ClientEmail != nil {
		quote.ClientEmail = *input.ClientEmail
	}
	if input.ClientPhone != nil {
		quote.ClientPhone = *input.ClientPhone
	}
	if input.EventName != nil {
		quote.EventName = *input.EventName
	}
	if input.EventDate != nil {
		quote.EventDate = *input.EventDate
	}
	if input.ValidUntil != nil {
		quote.ValidUntil = *input.ValidUntil
	}
	if input.Notes != nil {
		quote.Notes = *input.Notes
	}
	if err := h.DB.Save(&quote).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "update quote", "Erreur lors de la mise à jour du devis", err)
		return
	}
	if err := h.preload(h.DB).First(&quote, quote.ID).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reload quote", "Erreur lors de la mise à jour du devis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Devis mis à jour avec succès", "quote": quote})
}

// UpdateItems: PUT /api/quotes/{id}/items — remplace les lignes et recalcule
// les totaux, avec les mêmes garanties qu'à la création.
func (h *QuoteHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var input struct {
		Items []services.LineRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	if len(input.Items) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", validation.Violations{"items": "required"})
		return
	}
	for _, line := range input.Items {
		if line.EquipmentID == 0 || line.Quantity <= 0 || line.Days <= 0 {
			httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", validation.Violations{"items": "invalid_line"})
			return
		}
	}
	var quote models.Quote
	if err := h.DB.First(&quote, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Devis non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load quote", "Erreur lors de la mise à jour des lignes", err)
		return
	}
	ids := h.Svc.EquipmentIDs(input.Items)
	var equipment []models.Equipment
	if err := h.DB.Where("id IN ?", ids).Find(&equipment).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "load equipment", "Erreur lors de la mise à jour des lignes", err)
		return
	}
	byID := make(map[uint]models.Equipment, len(equipment))
	for _, eq := range equipment {
		byID[eq.ID] = eq
	}
	items, totalAmount, taxAmount, err := h.Svc.Price(input.Items, byID)
	if err != nil {
		var notFound *services.EquipmentNotFoundError
		if errors.As(err, &notFound) {
			httpx.JSONError(w, http.StatusNotFound, notFound.Error(), nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "price quote", "Erreur lors de la mise à jour des lignes", err)
		return
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", quote.ID).Delete(&models.QuoteItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].QuoteID = quote.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		return tx.Model(&quote).Updates(map[string]any{"total_amount": totalAmount, "tax_amount": taxAmount}).Error
	})
	if err != nil {
		httpx.Internal(w, h.Log, h.Dev, "update quote items", "Erreur lors de la mise à jour des lignes", err)
		return
	}
	if err := h.preload(h.DB).First(&quote, quote.ID).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reload quote", "Erreur lors de la mise à jour des lignes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Lignes du devis mises à jour avec succès", "quote": quote})
}

// UpdateStatus: PATCH /api/quotes/{id}/status — toute valeur de l'énumération
// est acceptée depuis n'importe quel statut courant, pas de graphe de
// transitions.
func (h *QuoteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	status := models.QuoteStatus(input.Status)
	if !status.Valid() {
		httpx.JSONError(w, http.StatusBadRequest, "Statut invalide", nil)
		return
	}
	var quote models.Quote
	if err := h.DB.First(&quote, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Devis non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load quote", "Erreur lors de la mise à jour du statut", err)
		return
	}
	if err := h.DB.Model(&quote).Update("status", status).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "update quote status", "Erreur lors de la mise à jour du statut", err)
		return
	}
	if err := h.preload(h.DB).First(&quote, quote.ID).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reload quote", "Erreur lors de la mise à jour du statut", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Statut du devis mis à jour avec succès", "quote": quote})
}

// Delete: DELETE /api/quotes/{id} — les lignes partent avec l'en-tête.
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Quote{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error
	})
	if err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Devis non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "delete quote", "Erreur lors de la suppression du devis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Devis supprimé avec succès"})
}

type quoteStatusAggregate struct {
	Status models.QuoteStatus `json:"status"`
	Count  int64              `json:"count"`
	Sum    float64            `json:"sum"`
}

// Stats: GET /api/quotes/stats
func (h *QuoteHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var total int64
	if err := h.DB.Model(&models.Quote{}).Count(&total).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "quote stats", "Erreur lors de la récupération des statistiques", err)
		return
	}
	var totalValue, acceptedValue float64
	if err := h.DB.Model(&models.Quote{}).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&totalValue).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "quote stats", "Erreur lors de la récupération des statistiques", err)
		return
	}
	if err := h.DB.Model(&models.Quote{}).Where("status = ?", models.QuoteAccepted).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&acceptedValue).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "quote stats", "Erreur lors de la récupération des statistiques", err)
		return
	}
	var byStatus []quoteStatusAggregate
	if err := h.DB.Model(&models.Quote{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(total_amount), 0) as sum").
		Group("status").Scan(&byStatus).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "quote stats", "Erreur lors de la récupération des statistiques", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"totalQuotes":   total,
		"totalValue":    totalValue,
		"acceptedValue": acceptedValue,
		"byStatus":      byStatus,
	})
}
