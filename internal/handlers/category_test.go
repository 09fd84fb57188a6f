package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlexiFlizz/sonphonor/internal/models"
)

func TestCategoryListWithEquipmentCount(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCategoryHandler(conn, testLogger(), false)

	micros := seedCategory(t, conn, "Microphones")
	seedCategory(t, conn, "Câbles")
	seedEquipment(t, conn, micros.ID, "SM58", 8, 15)
	seedEquipment(t, conn, micros.ID, "SM57", 4, 12)

	w := httptest.NewRecorder()
	h.List(w, jsonRequest(http.MethodGet, "/api/categories", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Categories []models.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Categories, 2)
	counts := map[string]int64{}
	for _, c := range payload.Categories {
		counts[c.Name] = c.EquipmentCount
	}
	assert.Equal(t, int64(2), counts["Microphones"])
	assert.Equal(t, int64(0), counts["Câbles"])
}

func TestCategoryListCountFailure(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCategoryHandler(conn, testLogger(), false)
	seedCategory(t, conn, "Microphones")

	// Sans la table equipment, le comptage doit remonter une 500 propre.
	require.NoError(t, conn.Migrator().DropTable(&models.Equipment{}))

	w := httptest.NewRecorder()
	h.List(w, jsonRequest(http.MethodGet, "/api/categories", ""))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Erreur lors de la récupération des catégories")
}

func TestCategoryCreateDuplicateName(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCategoryHandler(conn, testLogger(), false)
	seedCategory(t, conn, "Enceintes")

	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/api/categories", `{"name":"Enceintes"}`))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "existe déjà")

	var count int64
	conn.Model(&models.Category{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCategoryDeleteBlockedWhenNotEmpty(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCategoryHandler(conn, testLogger(), false)

	cat := seedCategory(t, conn, "Microphones")
	seedEquipment(t, conn, cat.ID, "SM58", 8, 15)

	w := httptest.NewRecorder()
	h.Delete(w, withID(jsonRequest(http.MethodDelete, "/api/categories/1", ""), cat.ID))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Impossible de supprimer")

	var count int64
	conn.Model(&models.Category{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCategoryDeleteEmpty(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCategoryHandler(conn, testLogger(), false)
	cat := seedCategory(t, conn, "Accessoires")

	w := httptest.NewRecorder()
	h.Delete(w, withID(jsonRequest(http.MethodDelete, "/api/categories/1", ""), cat.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	conn.Model(&models.Category{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCategoryGetNotFound(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCategoryHandler(conn, testLogger(), false)

	w := httptest.NewRecorder()
	h.Get(w, withID(jsonRequest(http.MethodGet, "/api/categories/99", ""), 99))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Catégorie non trouvée")
}

func TestCategoryUpdatePartial(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCategoryHandler(conn, testLogger(), false)
	cat := seedCategory(t, conn, "Micros")

	w := httptest.NewRecorder()
	h.Update(w, withID(jsonRequest(http.MethodPut, "/api/categories/1", `{"color":"#ff0000"}`), cat.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Category
	require.NoError(t, conn.First(&got, cat.ID).Error)
	assert.Equal(t, "Micros", got.Name)
	assert.Equal(t, "#ff0000", got.Color)
}
