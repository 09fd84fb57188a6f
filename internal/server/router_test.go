package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/auth"
	"github.com/FlexiFlizz/sonphonor/internal/config"
	"github.com/FlexiFlizz/sonphonor/internal/db"
	"github.com/FlexiFlizz/sonphonor/internal/models"
)

func newTestServer(t *testing.T) (http.Handler, *gorm.DB, config.Config) {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(db.Models()...))
	cfg := config.Config{
		JWTSecret:   "test-secret",
		Env:         "test",
		FrontendURL: "http://localhost:3000",
	}
	return New(conn, nil, cfg, zap.NewNop()), conn, cfg
}

func seedRoleUser(t *testing.T, conn *gorm.DB, email string, role models.Role) (models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := models.User{
		FirstName: "Test", LastName: "User",
		Email: email, Password: string(hash),
		Role: role, Status: models.UserActive, JoinDate: time.Now(),
	}
	require.NoError(t, conn.Create(&u).Error)
	token, err := auth.IssueToken("test-secret", u.ID, time.Now())
	require.NoError(t, err)
	return u, token
}

func do(t *testing.T, handler http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRootDescriptor(t *testing.T) {
	handler, _, _ := newTestServer(t)
	w := do(t, handler, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "Sonphonor API", payload["name"])
	assert.Equal(t, "ok", payload["status"])
}

func TestHealthWithoutCache(t *testing.T) {
	handler, _, _ := newTestServer(t)
	w := do(t, handler, http.MethodGet, "/health", "", "")
	// Base joignable, cache absent : l'état général reste ok.
	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Status   string `json:"status"`
		Database bool   `json:"database"`
		Cache    bool   `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.True(t, payload.Database)
	assert.False(t, payload.Cache)
}

func TestUnknownRouteShape(t *testing.T) {
	handler, _, _ := newTestServer(t)
	w := do(t, handler, http.MethodGet, "/nulle-part", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	var payload struct {
		Error  string `json:"error"`
		Path   string `json:"path"`
		Method string `json:"method"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "/nulle-part", payload.Path)
	assert.Equal(t, http.MethodGet, payload.Method)
}

func TestAPIRequiresToken(t *testing.T) {
	handler, _, _ := newTestServer(t)

	w := do(t, handler, http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token non fourni")

	w2 := do(t, handler, http.MethodGet, "/api/categories", "pas-un-jwt", "")
	require.Equal(t, http.StatusUnauthorized, w2.Code)
	assert.Contains(t, w2.Body.String(), "Token invalide")
}

func TestVolunteerReadButNotWrite(t *testing.T) {
	handler, conn, _ := newTestServer(t)
	_, token := seedRoleUser(t, conn, "pierre.bernard@email.com", models.RoleVolunteer)

	w := do(t, handler, http.MethodGet, "/api/categories", token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w2 := do(t, handler, http.MethodPost, "/api/categories", token, `{"name":"Microphones"}`)
	require.Equal(t, http.StatusForbidden, w2.Code)
	assert.Contains(t, w2.Body.String(), "Accès refusé")

	w3 := do(t, handler, http.MethodGet, "/api/users", token, "")
	assert.Equal(t, http.StatusForbidden, w3.Code)
}

func TestVolunteerCanReportDamage(t *testing.T) {
	handler, conn, _ := newTestServer(t)
	_, admin := seedRoleUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)
	_, token := seedRoleUser(t, conn, "pierre.bernard@email.com", models.RoleVolunteer)

	w := do(t, handler, http.MethodPost, "/api/categories", admin, `{"name":"Microphones"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w2 := do(t, handler, http.MethodPost, "/api/equipment", admin,
		`{"name":"SM58","categoryId":1,"brand":"Shure","model":"SM58","quantity":8,"dailyRateHT":15}`)
	require.Equal(t, http.StatusCreated, w2.Code, w2.Body.String())

	// Tout compte actif peut signaler un dommage, bénévole compris.
	body := `{"description":"Grille enfoncée","incidentDate":"2026-08-01T10:00:00Z","incidentLocation":"Salle des fêtes"}`
	w3 := do(t, handler, http.MethodPost, "/api/equipment/1/damage", token, body)
	assert.Equal(t, http.StatusCreated, w3.Code, w3.Body.String())
}

func TestChangePasswordAcceptsPut(t *testing.T) {
	handler, conn, _ := newTestServer(t)
	_, token := seedRoleUser(t, conn, "jean.dupont@email.com", models.RoleMember)

	body := `{"currentPassword":"password123","newPassword":"nouveau123"}`
	w := do(t, handler, http.MethodPut, "/api/auth/change-password", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w2 := do(t, handler, http.MethodPost, "/api/auth/login", "", `{"email":"jean.dupont@email.com","password":"nouveau123"}`)
	assert.Equal(t, http.StatusOK, w2.Code, w2.Body.String())
}

func TestMemberWritesButNoUserAdmin(t *testing.T) {
	handler, conn, _ := newTestServer(t)
	_, token := seedRoleUser(t, conn, "jean.dupont@email.com", models.RoleMember)

	w := do(t, handler, http.MethodPost, "/api/categories", token, `{"name":"Microphones"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w2 := do(t, handler, http.MethodGet, "/api/users", token, "")
	assert.Equal(t, http.StatusForbidden, w2.Code)
}

func TestAdminFullAccess(t *testing.T) {
	handler, conn, _ := newTestServer(t)
	_, token := seedRoleUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)

	w := do(t, handler, http.MethodGet, "/api/users", token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w2 := do(t, handler, http.MethodGet, "/api/users/stats", token, "")
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestInactiveAccountBlocked(t *testing.T) {
	handler, conn, _ := newTestServer(t)
	u, token := seedRoleUser(t, conn, "jean.dupont@email.com", models.RoleMember)
	require.NoError(t, conn.Model(&u).Update("status", models.UserInactive).Error)

	w := do(t, handler, http.MethodGet, "/api/categories", token, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Compte désactivé")
}

func TestLoginThenAuthenticatedFlow(t *testing.T) {
	handler, conn, _ := newTestServer(t)
	seedRoleUser(t, conn, "admin@sonphonor.com", models.RoleAdmin)

	w := do(t, handler, http.MethodPost, "/api/auth/login", "", `{"email":"admin@sonphonor.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Token)

	w2 := do(t, handler, http.MethodGet, "/api/auth/me", payload.Token, "")
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "admin@sonphonor.com")
}
