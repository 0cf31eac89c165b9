package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"piggybank/internal/export"
	"piggybank/internal/log"
)

// ExportBank streams the bank statement as CSV (default) or XLSX.
func (h *Handler) ExportBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		respondError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	bankID := chi.URLParam(r, "id")
	bank, err := h.ledger.GetBank(r.Context(), userID, bankID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	deposits, err := h.ledger.ListDeposits(r.Context(), userID, bankID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	expenses, err := h.ledger.ListExpenses(r.Context(), userID, bankID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	statement := export.NewStatement(bank, deposits, expenses, time.Now())

	write := export.WriteCSV
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		write = export.WriteXLSX
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", statement.Filename(format)))
	if err := write(w, statement); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "statement export failed", log.FieldBankID, bankID, log.FieldError, err)
	}
}
