package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"piggybank/internal/money"
	"piggybank/internal/validator"
)

// parseAmount accepts amounts sent either as JSON numbers or strings.
func parseAmount(w http.ResponseWriter, raw json.Number, field string) (decimal.Decimal, bool) {
	amount, err := money.ParseAmount(raw.String())
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validator.FieldErrors{field: err.Error()},
		})
		return decimal.Zero, false
	}
	return amount, true
}

// parseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD day. Empty
// means unset.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}
