package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"piggybank/internal/services"
)

type depositRequest struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	Source      string      `json:"source"`
	SourceID    string      `json:"source_id"`
}

func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	deposits, err := h.ledger.ListDeposits(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deposits)
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date")
		return
	}
	deposit, err := h.ledger.CreateDeposit(r.Context(), services.DepositRequest{
		ActorID:     userID,
		BankID:      chi.URLParam(r, "id"),
		Amount:      amount,
		Description: req.Description,
		Date:        date,
		Source:      req.Source,
		SourceID:    req.SourceID,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, deposit)
}

func (h *Handler) DeleteDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteDeposit(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expenseRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	// Defaults to true when omitted.
	Purchased *bool `json:"purchased"`
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	expenses, err := h.ledger.ListExpenses(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	price, ok := parseAmount(w, req.Price, "price")
	if !ok {
		return
	}
	purchased := true
	if req.Purchased != nil {
		purchased = *req.Purchased
	}
	expense, err := h.ledger.CreateExpense(r.Context(), services.ExpenseRequest{
		ActorID:     userID,
		BankID:      chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Purchased:   purchased,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

func (h *Handler) PurchaseExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	expense, err := h.ledger.PurchaseExpense(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

// RefundExpense answers 200 with the unchanged expense when it was not
// purchased.
func (h *Handler) RefundExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	expense, err := h.ledger.RefundExpense(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteExpense(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
