package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"piggybank/internal/log"
	"piggybank/internal/middleware"
	"piggybank/internal/services"
	"piggybank/internal/validator"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

var badRequest = []error{
	services.ErrInvalidAmount,
	services.ErrInvalidFrequency,
	services.ErrInvalidPayday,
	validator.ErrInvalidName,
	validator.ErrInvalidEmail,
	validator.ErrInvalidUsername,
	validator.ErrInvalidPassword,
}

var notFound = []error{
	services.ErrBankNotFound,
	services.ErrDepositNotFound,
	services.ErrExpenseNotFound,
	services.ErrAllowanceNotFound,
	services.ErrUserNotFound,
}

// respondServiceError maps service errors to status codes. Unknown errors
// are logged and reported as 500 without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fields validator.FieldErrors
	if errors.As(err, &fields) {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, services.ErrUnauthorizedBank), errors.Is(err, services.ErrNotParent):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrDuplicateUser), errors.Is(err, services.ErrAlreadyPurchased):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

// actor returns the authenticated user id, answering 401 when there is none.
func actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}
