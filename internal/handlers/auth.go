package handlers

import (
	"errors"
	"net/http"

	"piggybank/internal/auth"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/services"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a parent account and logs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.Register(r.Context(), services.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.RoleParent,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.startSession(w, r, http.StatusCreated, user, req.Password)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.FindForLogin(r.Context(), req.Username)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.startSession(w, r, http.StatusOK, user, req.Password)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, status int, user models.User, password string) {
	var sess auth.Session
	if err := h.authn.Login(&sess, user, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondServiceError(w, r, err)
		return
	}
	if err := h.sessions.Save(w, sess); err != nil {
		respondServiceError(w, r, err)
		return
	}
	token, err := h.sessions.Encode(sess)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "user logged in",
		log.FieldUserID, user.ID,
		log.FieldOperation, log.OpLogin,
	)
	respondJSON(w, status, sessionResponse{User: user, Token: token})
}

// Logout always succeeds, with or without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(r)
	h.authn.Logout(&sess)
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
