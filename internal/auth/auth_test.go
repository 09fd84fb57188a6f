package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/models"
)

const testSecret = "test-secret"

func setupAuthDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:auth_" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken(testSecret, 42, time.Now())
	require.NoError(t, err)

	uid, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), uid)
}

func TestExpiredToken(t *testing.T) {
	token, err := IssueToken(testSecret, 42, time.Now().Add(-2*TokenTTL))
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	assert.ErrorIs(t, err, ErrExpiredCredential)
}

func TestWrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, 42, time.Now())
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	db := setupAuthDB(t)
	user := models.User{FirstName: "Jean", LastName: "Dupont", Email: "jean@test.fr", Password: "x", Role: models.RoleMember, Status: models.UserActive}
	require.NoError(t, db.Create(&user).Error)

	token, err := IssueToken(testSecret, user.ID, time.Now())
	require.NoError(t, err)

	var got Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	Middleware(db, testSecret)(next).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, models.RoleMember, got.Role)
}

func TestMiddlewareRejections(t *testing.T) {
	db := setupAuthDB(t)
	inactive := models.User{FirstName: "I", LastName: "N", Email: "inactive@test.fr", Password: "x", Role: models.RoleMember, Status: models.UserInactive}
	require.NoError(t, db.Create(&inactive).Error)

	disabledToken, err := IssueToken(testSecret, inactive.ID, time.Now())
	require.NoError(t, err)
	ghostToken, err := IssueToken(testSecret, 9999, time.Now())
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"unknown user", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"disabled account", "Bearer " + disabledToken, http.StatusForbidden},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			Middleware(db, testSecret)(next).ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
