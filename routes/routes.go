package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/websecurity/app"
	"github.com/upb/websecurity/handlers"
	"github.com/upb/websecurity/middleware"
	"github.com/upb/websecurity/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Exposes the security policies to every handler below
	r.Use(deps.Security.Middleware)

	// Health check endpoints
	var db handlers.DatabaseChecker
	if deps.DB != nil {
		db = deps.DB
	}
	health := handlers.NewHealthHandler(db, deps.Security, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	demo := handlers.NewDemoHandler(deps.Logger)
	guard := deps.Guard

	r.Get("/", demo.HandleIndex)
	r.Post("/login", deps.AuthHandler.HandleLogin)
	r.With(guard.RequireAuth).Get("/logout", deps.AuthHandler.HandleLogout)

	r.With(guard.RequirePermission("public", nil)).Get("/public", demo.HandlePublic)
	r.With(guard.RequirePermission("protected", nil)).Get("/protected", demo.HandleProtected)

	// Each method needs its own bike.<verb> permission
	r.Handle("/bikes", guard.Resource("bike", demo.BikeHandlers()))

	r.Route("/session/{user}", func(r chi.Router) {
		r.Post("/", demo.HandleRemember)
		r.Delete("/", demo.HandleForget)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Endpoint not found")
	})

	return r
}
