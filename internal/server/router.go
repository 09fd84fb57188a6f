package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/auth"
	"github.com/FlexiFlizz/sonphonor/internal/cache"
	"github.com/FlexiFlizz/sonphonor/internal/config"
	"github.com/FlexiFlizz/sonphonor/internal/gate"
	"github.com/FlexiFlizz/sonphonor/internal/handlers"
	"github.com/FlexiFlizz/sonphonor/internal/httpx"
	"github.com/FlexiFlizz/sonphonor/internal/services"
)

const apiVersion = "1.0.0"

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, rdb *redis.Client, cfg config.Config, log *zap.Logger) http.Handler {
	dev := cfg.IsDevelopment()

	authH := handlers.NewAuthHandler(db, cfg.JWTSecret, log, dev)
	categoryH := handlers.NewCategoryHandler(db, log, dev)
	equipmentH := handlers.NewEquipmentHandler(db, log, dev)
	quoteH := handlers.NewQuoteHandler(db, services.NewQuoteService(), log, dev)
	eventH := handlers.NewEventHandler(db, log, dev)
	flightCaseH := handlers.NewFlightCaseHandler(db, log, dev)
	userH := handlers.NewUserHandler(db, log, dev)

	r := chi.NewRouter()
	r.Use(withRecover(log))
	r.Use(withLogging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.JSON(w, http.StatusNotFound, map[string]any{
			"error":  "Route non trouvée",
			"path":   req.URL.Path,
			"method": req.Method,
		})
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{
			"name":    "Sonphonor API",
			"version": apiVersion,
			"status":  "ok",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := http.StatusOK
		dbOK := db.Exec("SELECT 1").Error == nil
		cacheOK := cache.Healthy(req.Context(), rdb)
		if !dbOK {
			status = http.StatusServiceUnavailable
		}
		httpx.JSON(w, status, map[string]any{
			"status":   map[bool]string{true: "ok", false: "degraded"}[dbOK],
			"database": dbOK,
			"cache":    cacheOK,
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", authH.Register)
		api.Post("/auth/login", authH.Login)

		api.Group(func(authed chi.Router) {
			authed.Use(auth.Middleware(db, cfg.JWTSecret))

			authed.Get("/auth/me", authH.Me)
			authed.Put("/auth/change-password", authH.ChangePassword)
			authed.Post("/auth/change-password", authH.ChangePassword)
			authed.Put("/users/profile", userH.UpdateProfile)

			// Un signalement de dommage n'exige qu'un compte actif.
			authed.Post("/equipment/{id}/damage", equipmentH.ReportDamage)

			authed.Group(func(read chi.Router) {
				read.Use(requireCapability(gate.CapCatalogRead))

				read.Get("/categories", categoryH.List)
				read.Get("/categories/{id}", categoryH.Get)
				read.Get("/equipment", equipmentH.List)
				read.Get("/equipment/stats", equipmentH.Stats)
				read.Get("/equipment/{id}", equipmentH.Get)
				read.Get("/quotes", quoteH.List)
				read.Get("/quotes/stats", quoteH.Stats)
				read.Get("/quotes/{id}", quoteH.Get)
				read.Get("/events", eventH.List)
				read.Get("/events/{id}", eventH.Get)
				read.Get("/flightcases", flightCaseH.List)
				read.Get("/flightcases/{id}", flightCaseH.Get)
			})

			authed.Group(func(write chi.Router) {
				write.Use(requireCapability(gate.CapCatalogWrite))

				write.Post("/categories", categoryH.Create)
				write.Put("/categories/{id}", categoryH.Update)
				write.Delete("/categories/{id}", categoryH.Delete)

				write.Post("/equipment", equipmentH.Create)
				write.Put("/equipment/{id}", equipmentH.Update)
				write.Delete("/equipment/{id}", equipmentH.Delete)

				write.Post("/quotes", quoteH.Create)
				write.Put("/quotes/{id}", quoteH.Update)
				write.Put("/quotes/{id}/items", quoteH.UpdateItems)
				write.Patch("/quotes/{id}/status", quoteH.UpdateStatus)
				write.Delete("/quotes/{id}", quoteH.Delete)

				write.Post("/events", eventH.Create)
				write.Put("/events/{id}", eventH.Update)
				write.Delete("/events/{id}", eventH.Delete)

				write.Post("/flightcases", flightCaseH.Create)
				write.Put("/flightcases/{id}", flightCaseH.Update)
				write.Delete("/flightcases/{id}", flightCaseH.Delete)
			})

			authed.Group(func(admin chi.Router) {
				admin.Use(requireCapability(gate.CapManageUsers))

				admin.Get("/users", userH.List)
				admin.Get("/users/stats", userH.Stats)
				admin.Get("/users/{id}", userH.Get)
				admin.Put("/users/{id}", userH.Update)
				admin.Delete("/users/{id}", userH.Delete)
				admin.Post("/users/{id}/reset-password", userH.ResetPassword)
			})
		})
	})

	return r
}

// requireCapability resolves the caller's role against a single capability.
// Toute comparaison de rôle passe par le paquet gate.
func requireCapability(capability gate.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "Token non fourni", nil)
				return
			}
			if err := gate.Authorize(identity.Role, capability); err != nil {
				httpx.JSONError(w, http.StatusForbidden, "Accès refusé", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func withLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func withRecover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered", zap.Any("panic", rec), zap.String("path", r.URL.Path))
					httpx.JSONError(w, http.StatusInternalServerError, "Erreur interne du serveur", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
