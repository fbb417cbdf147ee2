package handlers

import (
	"net/http"

	"github.com/bookshelf/bookshelf/internal/middleware"
	"github.com/bookshelf/bookshelf/internal/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	AllowedOrigin string
	Gatherer      prometheus.Gatherer
}

func NewRouter(
	authHandlers *AuthHandlers,
	authMiddleware *middleware.AuthMiddleware,
	metrics *middleware.Metrics,
	cfg RouterConfig,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(metrics.Instrument)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods("GET")

	auth := router.PathPrefix("/api/v1/auth").Subrouter()
	auth.HandleFunc("/signup", authHandlers.Signup).Methods("POST", "OPTIONS")
	auth.HandleFunc("/login", authHandlers.Login).Methods("POST", "OPTIONS")

	refresh := auth.NewRoute().Subrouter()
	refresh.Use(authMiddleware.RequireRefresh)
	refresh.HandleFunc("/refresh_access_token", authHandlers.RefreshToken).Methods("GET", "POST", "OPTIONS")

	protected := auth.NewRoute().Subrouter()
	protected.Use(authMiddleware.RequireAccess)
	protected.HandleFunc("/logout", authHandlers.Logout).Methods("GET", "POST", "OPTIONS")

	anyRole := middleware.NewRoleGuard(metrics, models.RoleUser, models.RoleAdmin)
	protected.Handle("/me", anyRole.Middleware(http.HandlerFunc(authHandlers.Me))).Methods("GET", "OPTIONS")

	adminOnly := middleware.NewRoleGuard(metrics, models.RoleAdmin)
	protected.Handle("/users", adminOnly.Middleware(http.HandlerFunc(authHandlers.ListUsers))).Methods("GET", "OPTIONS")

	return router
}
