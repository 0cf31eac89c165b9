package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorilla "github.com/gorilla/websocket"

	"piggybank/internal/config"
	"piggybank/internal/log"
	"piggybank/internal/middleware"
	"piggybank/internal/models"
	"piggybank/internal/websocket"
)

type Handler struct {
	cfg       config.Config
	ledger    Ledger
	users     Users
	sessions  Sessions
	authn     Authenticator
	bootstrap Resetter
	hub       *websocket.Hub
	upgrader  gorilla.Upgrader
	logger    *log.Logger
}

func New(cfg config.Config, ledger Ledger, users Users, sessions Sessions, authn Authenticator, bootstrap Resetter, hub *websocket.Hub, logger *log.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		ledger:    ledger,
		users:     users,
		sessions:  sessions,
		authn:     authn,
		bootstrap: bootstrap,
		hub:       hub,
		upgrader:  websocket.NewUpgrader(cfg.AllowedOrigins),
		logger:    logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(log.Middleware(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(h.cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireLogin := middleware.Auth(h.sessions, h.authn)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(requireLogin).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(requireLogin)

		r.Get("/banks", h.ListBanks)
		r.Post("/banks", h.CreateBank)
		r.Get("/banks/{id}", h.BankOverview)
		r.Put("/banks/{id}", h.RenameBank)
		r.Delete("/banks/{id}", h.DeleteBank)
		r.Get("/banks/{id}/export", h.ExportBank)

		r.Get("/banks/{id}/deposits", h.ListDeposits)
		r.Post("/banks/{id}/deposits", h.CreateDeposit)
		r.Delete("/deposits/{id}", h.DeleteDeposit)

		r.Get("/banks/{id}/expenses", h.ListExpenses)
		r.Post("/banks/{id}/expenses", h.CreateExpense)
		r.Post("/expenses/{id}/purchase", h.PurchaseExpense)
		r.Post("/expenses/{id}/refund", h.RefundExpense)
		r.Delete("/expenses/{id}", h.DeleteExpense)

		r.Get("/banks/{id}/allowances", h.ListAllowances)
		r.Post("/banks/{id}/allowances", h.CreateAllowance)
		r.Put("/allowances/{id}", h.ChangeAllowance)
		r.Delete("/allowances/{id}", h.DeleteAllowance)
		r.Post("/allowances/{id}/toggle", h.ToggleAllowance)

		r.With(middleware.RequireRole(models.RoleParent, models.RoleAdmin)).Get("/users/children", h.ListChildren)
		r.With(middleware.RequireRole(models.RoleParent, models.RoleAdmin)).Post("/users/children", h.CreateChild)

		r.Get("/ws/balances", h.WSBalances)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(requireLogin)
		r.Use(middleware.RequireAdmin())
		r.Get("/users", h.AdminListUsers)
		r.Post("/reset", h.AdminReset)
		r.Post("/test-users", h.AdminGenerateTestUsers)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
