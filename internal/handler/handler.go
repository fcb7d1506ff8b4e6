package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/agrofund/loan-service/internal/amortization"
	"github.com/agrofund/loan-service/internal/service"
	"github.com/agrofund/loan-service/internal/validation"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

// writeError maps service errors onto HTTP statuses
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	var amountErr *amortization.AmountError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &amountErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: amountErr.Error()})
	case errors.Is(err, service.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid plan id"})
	case errors.Is(err, amortization.ErrUnsupportedInterestType),
		errors.Is(err, amortization.ErrUnsupportedDurationUnit),
		errors.Is(err, amortization.ErrUnsupportedPaymentFrequency),
		errors.Is(err, amortization.ErrNoInstallments),
		errors.Is(err, amortization.ErrTooManyInstallments):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "plan not found"})
	case errors.Is(err, service.ErrPlanInactive):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "plan is not active"})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, service.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "email already registered"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin role required"})
	default:
		h.log.Errorf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// Health reports service liveness and database reachability
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Health(); err != nil {
		h.log.Warnf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// KeyRate returns the reference rate
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.svc.ReferenceRate(r.Context())
	if err != nil {
		h.log.Errorf("Failed to get key rate: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "key rate unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"key_rate": rate})
}
