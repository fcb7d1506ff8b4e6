package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/agrofund/loan-service/internal/models"
)

// Calculate quotes a loan amount against the plan in the path
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req models.CalculationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.PlanID = mux.Vars(r)["id"]

	quote, err := h.svc.CalculateEMI(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// ListCalculations returns the quote history of a plan; ?limit=N caps the result
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	calcs, err := h.svc.ListCalculations(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calcs)
}
