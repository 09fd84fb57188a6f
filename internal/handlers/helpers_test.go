package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/auth"
	"github.com/FlexiFlizz/sonphonor/internal/db"
	"github.com/FlexiFlizz/sonphonor/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Base mémoire unique par test pour éviter les collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open db")
	require.NoError(t, conn.AutoMigrate(db.Models()...), "migrate")
	return conn
}

func testLogger() *zap.Logger { return zap.NewNop() }

func jsonUint(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// jsonRequest builds une requête avec corps JSON et paramètre {id} optionnel.
func jsonRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func withID(req *http.Request, id uint) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", strconv.FormatUint(uint64(id), 10))
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func withUser(req *http.Request, u models.User) *http.Request {
	identity := auth.Identity{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Status:    u.Status,
	}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func seedUser(t *testing.T, conn *gorm.DB, email string, role models.Role) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  string(hash),
		Role:      role,
		Status:    models.UserActive,
		JoinDate:  time.Now(),
	}
	require.NoError(t, conn.Create(&u).Error)
	return u
}

func seedCategory(t *testing.T, conn *gorm.DB, name string) models.Category {
	t.Helper()
	c := models.Category{Name: name, Color: "#3b82f6"}
	require.NoError(t, conn.Create(&c).Error)
	return c
}

func seedEquipment(t *testing.T, conn *gorm.DB, categoryID uint, name string, quantity int, rate float64) models.Equipment {
	t.Helper()
	// Marque et modèle dérivés du nom pour garder les recherches discriminantes.
	parts := strings.SplitN(name, " ", 2)
	brand, model := parts[0], parts[len(parts)-1]
	e := models.Equipment{
		Name:              name,
		CategoryID:        categoryID,
		Brand:             brand,
		Model:             model,
		Quantity:          quantity,
		AvailableQuantity: quantity,
		DailyRateHT:       rate,
		Condition:         models.ConditionGood,
		SerialNumbers:     models.SerialNumbers{},
	}
	require.NoError(t, conn.Create(&e).Error)
	return e
}
