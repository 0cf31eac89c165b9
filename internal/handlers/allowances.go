package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"piggybank/internal/services"
)

type allowanceRequest struct {
	Amount      json.Number `json:"amount"`
	Frequency   string      `json:"frequency"`
	Payday      int         `json:"payday"`
	Description *string     `json:"description"`
}

func (h *Handler) ListAllowances(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	allowances, err := h.ledger.ListAllowances(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, allowances)
}

func (h *Handler) CreateAllowance(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req allowanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return
	}
	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	allowance, err := h.ledger.CreateAllowance(r.Context(), services.AllowanceRequest{
		ActorID:     userID,
		BankID:      chi.URLParam(r, "id"),
		Amount:      amount,
		Description: description,
		Frequency:   req.Frequency,
		Payday:      req.Payday,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, allowance)
}

// ChangeAllowance replaces amount, frequency and payday. The description is
// only changed when present in the body.
func (h *Handler) ChangeAllowance(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req allowanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return
	}
	allowance, err := h.ledger.ChangeAllowance(r.Context(), services.ChangeAllowanceRequest{
		ActorID:     userID,
		AllowanceID: chi.URLParam(r, "id"),
		Amount:      amount,
		Frequency:   req.Frequency,
		Payday:      req.Payday,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, allowance)
}

func (h *Handler) ToggleAllowance(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	allowance, err := h.ledger.ToggleAllowance(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, allowance)
}

func (h *Handler) DeleteAllowance(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteAllowance(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
