package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlexiFlizz/sonphonor/internal/models"
)

func TestEventCreateWithAssignments(t *testing.T) {
	conn := setupTestDB(t)
	h := NewEventHandler(conn, testLogger(), false)

	admin := seedUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)
	tech := seedUser(t, conn, "jean.dupont@email.com", models.RoleMember)
	cat := seedCategory(t, conn, "Enceintes")
	speaker := seedEquipment(t, conn, cat.ID, "EON615", 4, 80)

	body := fmt.Sprintf(`{
		"name":"Concert école de musique",
		"startDate":"2026-06-10T18:00:00Z",
		"endDate":"2026-06-10T23:00:00Z",
		"location":"Salle des fêtes",
		"clientName":"École de musique",
		"equipmentAssigned":[{"equipmentId":%d,"quantity":2}],
		"techniciansAssigned":[{"userId":%d,"role":"Ingénieur son"}]
	}`, speaker.ID, tech.ID)

	w := httptest.NewRecorder()
	h.Create(w, withUser(jsonRequest(http.MethodPost, "/api/events", body), admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var payload struct {
		Event models.Event `json:"event"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, models.EventPlanned, payload.Event.Status)
	assert.Equal(t, admin.ID, payload.Event.CreatedByID)
	require.Len(t, payload.Event.EquipmentAssigned, 1)
	assert.Equal(t, admin.ID, payload.Event.EquipmentAssigned[0].AssignedBy)
	require.Len(t, payload.Event.TechniciansAssigned, 1)
	assert.Equal(t, "Ingénieur son", payload.Event.TechniciansAssigned[0].Role)
}

func TestEventCreateUnknownEquipmentLeavesNothing(t *testing.T) {
	conn := setupTestDB(t)
	h := NewEventHandler(conn, testLogger(), false)
	admin := seedUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)

	body := `{
		"name":"Concert",
		"startDate":"2026-06-10T18:00:00Z",
		"endDate":"2026-06-10T23:00:00Z",
		"location":"Salle",
		"equipmentAssigned":[{"equipmentId":99,"quantity":1}]
	}`
	w := httptest.NewRecorder()
	h.Create(w, withUser(jsonRequest(http.MethodPost, "/api/events", body), admin))
	require.Equal(t, http.StatusNotFound, w.Code)

	// La transaction a tout annulé, en-tête compris.
	var events, assignments int64
	conn.Model(&models.Event{}).Count(&events)
	conn.Model(&models.EventEquipmentAssignment{}).Count(&assignments)
	assert.Zero(t, events)
	assert.Zero(t, assignments)
}

func TestEventCreateValidation(t *testing.T) {
	conn := setupTestDB(t)
	h := NewEventHandler(conn, testLogger(), false)
	admin := seedUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.Create(w, withUser(jsonRequest(http.MethodPost, "/api/events", `{"name":"Concert"}`), admin))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Validation échouée")
}

func seedEvent(t *testing.T, h *EventHandler, admin models.User) models.Event {
	t.Helper()
	body := `{
		"name":"Concert",
		"startDate":"2026-06-10T18:00:00Z",
		"endDate":"2026-06-10T23:00:00Z",
		"location":"Salle des fêtes"
	}`
	w := httptest.NewRecorder()
	h.Create(w, withUser(jsonRequest(http.MethodPost, "/api/events", body), admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payload struct {
		Event models.Event `json:"event"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload.Event
}

func TestEventListStatusFilter(t *testing.T) {
	conn := setupTestDB(t)
	h := NewEventHandler(conn, testLogger(), false)
	admin := seedUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)
	event := seedEvent(t, h, admin)
	require.NoError(t, conn.Model(&models.Event{}).Where("id = ?", event.ID).Update("status", models.EventConfirmed).Error)
	seedEvent(t, h, admin)

	list := func(target string) []models.Event {
		w := httptest.NewRecorder()
		h.List(w, jsonRequest(http.MethodGet, target, ""))
		require.Equal(t, http.StatusOK, w.Code)
		var payload struct {
			Events []models.Event `json:"events"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		return payload.Events
	}

	assert.Len(t, list("/api/events"), 2)
	assert.Len(t, list("/api/events?status=CONFIRMED"), 1)
	assert.Len(t, list("/api/events?search=salle"), 2)

	w := httptest.NewRecorder()
	h.List(w, jsonRequest(http.MethodGet, "/api/events?status=UNKNOWN", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventUpdateHeader(t *testing.T) {
	conn := setupTestDB(t)
	h := NewEventHandler(conn, testLogger(), false)
	admin := seedUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)
	event := seedEvent(t, h, admin)

	w := httptest.NewRecorder()
	h.Update(w, withID(jsonRequest(http.MethodPut, "/api/events/1", `{"status":"IN_PROGRESS","location":"Gymnase"}`), event.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var after models.Event
	require.NoError(t, conn.First(&after, event.ID).Error)
	assert.Equal(t, models.EventInProgress, after.Status)
	assert.Equal(t, "Gymnase", after.Location)
	assert.Equal(t, "Concert", after.Name)
}

func TestEventDeleteRemovesAssignments(t *testing.T) {
	conn := setupTestDB(t)
	h := NewEventHandler(conn, testLogger(), false)
	admin := seedUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)
	cat := seedCategory(t, conn, "Enceintes")
	speaker := seedEquipment(t, conn, cat.ID, "EON615", 4, 80)
	event := seedEvent(t, h, admin)
	require.NoError(t, conn.Create(&models.EventEquipmentAssignment{
		EventID: event.ID, EquipmentID: speaker.ID, Quantity: 2, AssignedBy: admin.ID,
	}).Error)

	w := httptest.NewRecorder()
	h.Delete(w, withID(jsonRequest(http.MethodDelete, "/api/events/1", ""), event.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var events, assignments int64
	conn.Model(&models.Event{}).Count(&events)
	conn.Model(&models.EventEquipmentAssignment{}).Count(&assignments)
	assert.Zero(t, events)
	assert.Zero(t, assignments)
}
