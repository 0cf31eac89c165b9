package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type bankRequest struct {
	Name string `json:"name"`
}

type deleteBankRequest struct {
	Password string `json:"password"`
}

func (h *Handler) ListBanks(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	banks, err := h.ledger.ListBanks(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, banks)
}

func (h *Handler) CreateBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req bankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bank, err := h.ledger.CreateBank(r.Context(), userID, req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, bank)
}

// BankOverview returns the bank with its five latest deposits and purchases.
func (h *Handler) BankOverview(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	overview, err := h.ledger.BankOverview(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

func (h *Handler) RenameBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req bankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bank, err := h.ledger.RenameBank(r.Context(), userID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bank)
}

// DeleteBank needs the owner's password in the body.
func (h *Handler) DeleteBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req deleteBankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ledger.DeleteBank(r.Context(), userID, chi.URLParam(r, "id"), req.Password); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
