package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FlexiFlizz/sonphonor/internal/auth"
	"github.com/FlexiFlizz/sonphonor/internal/models"
)

const testSecret = "test-secret"

func TestAuthRegister(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAuthHandler(conn, testSecret, testLogger(), false)

	body := `{"firstName":"Pierre","lastName":"Bernard","email":"Pierre.Bernard@Email.com","password":"password123","phone":"06 34 56 78 90"}`
	w := httptest.NewRecorder()
	h.Register(w, jsonRequest(http.MethodPost, "/api/auth/register", body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var payload struct {
		Token string            `json:"token"`
		User  models.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Token)
	// Inscription publique : toujours VOLUNTEER, email normalisé.
	assert.Equal(t, models.RoleVolunteer, payload.User.Role)
	assert.Equal(t, "pierre.bernard@email.com", payload.User.Email)

	uid, err := auth.ParseToken(testSecret, payload.Token)
	require.NoError(t, err)
	assert.Equal(t, payload.User.ID, uid)

	var stored models.User
	require.NoError(t, conn.First(&stored, payload.User.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAuthHandler(conn, testSecret, testLogger(), false)
	seedUser(t, conn, "jean.dupont@email.com", models.RoleMember)

	body := `{"firstName":"Jean","lastName":"Dupont","email":"jean.dupont@email.com","password":"password123"}`
	w := httptest.NewRecorder()
	h.Register(w, jsonRequest(http.MethodPost, "/api/auth/register", body))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "existe déjà")
}

func TestAuthRegisterValidation(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAuthHandler(conn, testSecret, testLogger(), false)

	w := httptest.NewRecorder()
	h.Register(w, jsonRequest(http.MethodPost, "/api/auth/register", `{"email":"pas-un-email","password":"abc"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Validation échouée")
}

func TestAuthLogin(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAuthHandler(conn, testSecret, testLogger(), false)
	user := seedUser(t, conn, "jean.dupont@email.com", models.RoleMember)
	require.Nil(t, user.LastLogin)

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"jean.dupont@email.com","password":"password123"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var payload struct {
		Token string            `json:"token"`
		User  models.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Token)
	assert.NotNil(t, payload.User.LastLogin)

	var stored models.User
	require.NoError(t, conn.First(&stored, user.ID).Error)
	assert.NotNil(t, stored.LastLogin)
}

func TestAuthLoginBadCredentials(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAuthHandler(conn, testSecret, testLogger(), false)
	seedUser(t, conn, "jean.dupont@email.com", models.RoleMember)

	// Mauvais mot de passe et email inconnu renvoient la même réponse.
	for _, body := range []string{
		`{"email":"jean.dupont@email.com","password":"mauvais"}`,
		`{"email":"inconnu@email.com","password":"password123"}`,
	} {
		w := httptest.NewRecorder()
		h.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", body))
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Email ou mot de passe incorrect")
	}
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAuthHandler(conn, testSecret, testLogger(), false)
	user := seedUser(t, conn, "jean.dupont@email.com", models.RoleMember)
	require.NoError(t, conn.Model(&user).Update("status", models.UserInactive).Error)

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"jean.dupont@email.com","password":"password123"}`))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Compte désactivé")
}

func TestAuthMe(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAuthHandler(conn, testSecret, testLogger(), false)
	user := seedUser(t, conn, "jean.dupont@email.com", models.RoleMember)

	w := httptest.NewRecorder()
	h.Me(w, withUser(jsonRequest(http.MethodGet, "/api/auth/me", ""), user))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		User models.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, user.Email, payload.User.Email)
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestAuthChangePassword(t *testing.T) {
	conn := setupTestDB(t)
	h := NewAuthHandler(conn, testSecret, testLogger(), false)
	user := seedUser(t, conn, "jean.dupont@email.com", models.RoleMember)

	// Mot de passe courant erroné : refus.
	w := httptest.NewRecorder()
	h.ChangePassword(w, withUser(jsonRequest(http.MethodPost, "/api/auth/change-password",
		`{"currentPassword":"mauvais","newPassword":"nouveau123"}`), user))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Mot de passe actuel incorrect")

	w2 := httptest.NewRecorder()
	h.ChangePassword(w2, withUser(jsonRequest(http.MethodPost, "/api/auth/change-password",
		`{"currentPassword":"password123","newPassword":"nouveau123"}`), user))
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	var after models.User
	require.NoError(t, conn.First(&after, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(after.Password), []byte("nouveau123")))
}
