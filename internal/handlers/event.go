package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/auth"
	"github.com/FlexiFlizz/sonphonor/internal/httpx"
	"github.com/FlexiFlizz/sonphonor/internal/models"
	"github.com/FlexiFlizz/sonphonor/internal/validation"
)

type EventHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
	Dev bool
}

func NewEventHandler(db *gorm.DB, log *zap.Logger, dev bool) *EventHandler {
	return &EventHandler{DB: db, Log: log, Dev: dev}
}

func (h *EventHandler) preload(db *gorm.DB) *gorm.DB {
	return db.Preload("EquipmentAssigned.Equipment").
		Preload("TechniciansAssigned.User").
		Preload("CreatedBy")
}

// List: GET /api/events?status=&search=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.preload(h.DB).Order("start_date desc")
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.EventStatus(status).Valid() {
			httpx.JSONError(w, http.StatusBadRequest, "Paramètre status invalide", nil)
			return
		}
		q = q.Where("status = ?", status)
	}
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		like := likePattern(search)
		q = q.Where("lower(name) LIKE ? OR lower(location) LIKE ? OR lower(client_name) LIKE ?", like, like, like)
	}
	var events []models.Event
	if err := q.Find(&events).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "list events", "Erreur lors de la récupération des événements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}

// Get: GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var event models.Event
	if err := h.preload(h.DB).First(&event, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Événement non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "get event", "Erreur lors de la récupération de l'événement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"event": event})
}

type equipmentAssignmentInput struct {
	EquipmentID uint `json:"equipmentId"`
	Quantity    int  `json:"quantity"`
}

type technicianAssignmentInput struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
}

// Create: POST /api/events — en-tête + affectations matériel + affectations
// techniciens dans une seule transaction. Aucune détection de chevauchement
// entre événements.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "Token non fourni", nil)
		return
	}
	var input struct {
		Name        string                      `json:"name"`
		Description string                      `json:"description"`
		StartDate   *time.Time                  `json:"startDate"`
		EndDate     *time.Time                  `json:"endDate"`
		Location    string                      `json:"location"`
		ClientName  string                      `json:"clientName"`
		ClientEmail string                      `json:"clientEmail"`
		ClientPhone string                      `json:"clientPhone"`
		Status      string                      `json:"status"`
		Equipment   []equipmentAssignmentInput  `json:"equipmentAssigned"`
		Technicians []technicianAssignmentInput `json:"techniciansAssigned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	validation.Required("location", input.Location, v)
	if input.StartDate == nil {
		v["startDate"] = "required"
	}
	if input.EndDate == nil {
		v["endDate"] = "required"
	}
	status := models.EventPlanned
	if input.Status != "" {
		status = models.EventStatus(input.Status)
		if !status.Valid() {
			v["status"] = "invalid_value"
		}
	}
	for _, a := range input.Equipment {
		if a.EquipmentID == 0 || a.Quantity <= 0 {
			v["equipmentAssigned"] = "invalid_assignment"
			break
		}
	}
	for _, a := range input.Technicians {
		if a.UserID == 0 {
			v["techniciansAssigned"] = "invalid_assignment"
			break
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Validation échouée", v)
		return
	}

	event := models.Event{
		Name:        input.Name,
		Description: input.Description,
		StartDate:   *input.StartDate,
		EndDate:     *input.EndDate,
		Location:    input.Location,
		ClientName:  input.ClientName,
		ClientEmail: input.ClientEmail,
		ClientPhone: input.ClientPhone,
		Status:      status,
		CreatedByID: identity.ID,
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		for _, a := range input.Equipment {
			var eq models.Equipment
			if err := tx.First(&eq, a.EquipmentID).Error; err != nil {
				return err
			}
			assignment := models.EventEquipmentAssignment{
				EventID:     event.ID,
				EquipmentID: a.EquipmentID,
				Quantity:    a.Quantity,
				AssignedBy:  identity.ID,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		for _, a := range input.Technicians {
			var user models.User
			if err := tx.First(&user, a.UserID).Error; err != nil {
				return err
			}
			assignment := models.EventTechnicianAssignment{
				EventID: event.ID,
				UserID:  a.UserID,
				Role:    a.Role,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Équipement ou technicien non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "create event", "Erreur lors de la création de l'événement", err)
		return
	}
	if err := h.preload(h.DB).First(&event, event.ID).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reload event", "Erreur lors de la création de l'événement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Événement créé avec succès", "event": event})
}

// Update: PUT /api/events/{id} — en-tête uniquement, fusion partielle.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var event models.Event
	if err := h.DB.First(&event, id).Error; err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Événement non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "load event", "Erreur lors de la mise à jour de l'événement", err)
		return
	}
	var input struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		StartDate   *time.Time `json:"startDate"`
		EndDate     *time.Time `json:"endDate"`
		Location    *string    `json:"location"`
		ClientName  *string    `json:"clientName"`
		ClientEmail *string    `json:"clientEmail"`
		ClientPhone *string    `json:"clientPhone"`
		Status      *string    `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Corps de requête invalide", nil)
		return
	}
	if input.Status != nil && !models.EventStatus(*input.Status).Valid() {
		httpx.JSONError(w, http.StatusBadRequest, "Statut invalide", nil)
		return
	}
	if input.Name != nil {
		event.Name = *input.Name
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.StartDate != nil {
		event.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		event.EndDate = *input.EndDate
	}
	if input.Location != nil {
		event.Location = *input.Location
	}
	if input.ClientName != nil {
		event.ClientName = *input.ClientName
	}
	if input.ClientEmail != nil {
		event.ClientEmail = *input.ClientEmail
	}
	if input.ClientPhone != nil {
		event.ClientPhone = *input.ClientPhone
	}
	if input.Status != nil {
		event.Status = models.EventStatus(*input.Status)
	}
	if err := h.DB.Save(&event).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "update event", "Erreur lors de la mise à jour de l'événement", err)
		return
	}
	if err := h.preload(h.DB).First(&event, event.ID).Error; err != nil {
		httpx.Internal(w, h.Log, h.Dev, "reload event", "Erreur lors de la mise à jour de l'événement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Événement mis à jour avec succès", "event": event})
}

// Delete: DELETE /api/events/{id} — les affectations partent avec l'en-tête.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Event{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.EventEquipmentAssignment{}).Error; err != nil {
			return err
		}
		return tx.Where("event_id = ?", id).Delete(&models.EventTechnicianAssignment{}).Error
	})
	if err != nil {
		if isNotFound(err) {
			httpx.JSONError(w, http.StatusNotFound, "Événement non trouvé", nil)
			return
		}
		httpx.Internal(w, h.Log, h.Dev, "delete event", "Erreur lors de la suppression de l'événement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Événement supprimé avec succès"})
}
