package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agrofund/loan-service/internal/middleware"
)

// NewRouter wires every endpoint. Admin endpoints require a bearer token
// with the admin role; quote requests go through the rate limiter.
func NewRouter(h *Handler, tokens middleware.TokenParser, limiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(h.log), middleware.Recoverer(h.log), middleware.OptionalAuth(tokens))

	authenticated := middleware.AuthMiddleware(tokens)
	admin := func(fn http.HandlerFunc) http.Handler {
		return authenticated(middleware.RequireAdmin(fn))
	}

	// Public routes
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/key-rate", h.KeyRate).Methods(http.MethodGet)
	r.HandleFunc("/plans", h.ListPlans).Methods(http.MethodGet)
	r.HandleFunc("/plans/{id}", h.GetPlan).Methods(http.MethodGet)
	r.Handle("/plans/{id}/calculate", limiter.Middleware(http.HandlerFunc(h.Calculate))).Methods(http.MethodPost)

	// Admin routes
	r.Handle("/plans", admin(h.CreatePlan)).Methods(http.MethodPost)
	r.Handle("/plans/{id}", admin(h.UpdatePlan)).Methods(http.MethodPut)
	r.Handle("/plans/{id}", admin(h.DeletePlan)).Methods(http.MethodDelete)
	r.Handle("/plans/{id}/toggle", admin(h.TogglePlan)).Methods(http.MethodPatch)
	r.Handle("/plans/{id}/calculations", admin(h.ListCalculations)).Methods(http.MethodGet)

	return r
}
