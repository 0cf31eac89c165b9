package handlers

import (
	"net/http"

	"piggybank/internal/log"
	"piggybank/internal/websocket"
)

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// AdminReset wipes the database and reseeds the demo admin. The caller's
// session is gone afterwards, so its cookie is cleared too.
func (h *Handler) AdminReset(w http.ResponseWriter, r *http.Request) {
	if h.cfg.IsProduction() {
		respondError(w, http.StatusForbidden, "reset is disabled in production")
		return
	}
	actorID, _ := actor(w, r)
	admin, err := h.bootstrap.Reset(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "database reset by admin", log.FieldActorID, actorID)
	h.sessions.Clear(w)
	respondJSON(w, http.StatusOK, admin)
}

func (h *Handler) AdminGenerateTestUsers(w http.ResponseWriter, r *http.Request) {
	created, err := h.users.GenerateTestUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// WSBalances upgrades to a websocket streaming balance updates for the
// authenticated user's banks.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := websocket.ServeWS(w, r, h.upgrader, h.hub, userID); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "websocket upgrade failed", log.FieldError, err)
	}
}
