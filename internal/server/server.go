package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"questboard/internal/handler"
	"questboard/internal/middleware"
	"questboard/internal/store"
	ws "questboard/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	kidH         *handler.KidHandler
	templateH    *handler.TemplateHandler
	instanceH    *handler.InstanceHandler
	ledgerH      *handler.LedgerHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	kidStore := store.NewKidStore(db)
	templateStore := store.NewTemplateStore(db)
	instanceStore := store.NewInstanceStore(db)
	ledgerStore := store.NewLedgerStore(db)
	rentStore := store.NewRentStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		kidH:         handler.NewKidHandler(kidStore, ledgerStore, hub, logger.With("component", "kid")),
		templateH:    handler.NewTemplateHandler(templateStore, hub, logger.With("component", "template")),
		instanceH:    handler.NewInstanceHandler(instanceStore, templateStore, kidStore, ledgerStore, hub, logger.With("component", "instance")),
		ledgerH:      handler.NewLedgerHandler(ledgerStore, rentStore, kidStore, hub, logger.With("component", "ledger")),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// UserStore returns the user store for startup bootstrap.
func (s *Server) UserStore() *store.UserStore {
	return s.userStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)

	// Kids
	mux.HandleFunc("GET /api/kids", s.kidH.List)
	mux.Handle("POST /api/kids", gm(s.kidH.Create))
	mux.Handle("PUT /api/kids/{id}", gm(s.kidH.Update))

	// Template catalog and pool
	mux.HandleFunc("GET /api/templates", s.templateH.List)
	mux.Handle("POST /api/templates", gm(s.templateH.Create))
	mux.Handle("PUT /api/templates/{id}", gm(s.templateH.Update))
	mux.Handle("DELETE /api/templates/{id}", gm(s.templateH.Delete))
	mux.HandleFunc("POST /api/pool/refresh", s.templateH.RefreshPool)

	// Instance lifecycle
	mux.HandleFunc("POST /api/templates/{id}/instantiate", s.instanceH.Instantiate)
	mux.HandleFunc("POST /api/instances/{id}/move", s.instanceH.Move)
	mux.HandleFunc("PUT /api/instances/{id}/details", s.instanceH.UpdateDetails)
	mux.Handle("POST /api/instances/{id}/approve", gm(s.instanceH.Approve))
	mux.Handle("POST /api/instances/{id}/reject", gm(s.instanceH.Reject))
	mux.HandleFunc("POST /api/instances/{id}/collect", s.instanceH.Collect)
	mux.Handle("DELETE /api/instances/{id}", gm(s.instanceH.Delete))
	mux.HandleFunc("POST /api/instances/reorder", s.instanceH.Reorder)

	// Board and archive views
	mux.HandleFunc("GET /api/kids/{id}/board", s.instanceH.Board)
	mux.HandleFunc("GET /api/archive", s.instanceH.Archive)

	// Ledger and rent
	mux.HandleFunc("GET /api/kids/{id}/ledger", s.ledgerH.Summary)
	mux.Handle("POST /api/kids/{id}/adjust", gm(s.ledgerH.Adjust))
	mux.Handle("PUT /api/kids/{id}/rent", gm(s.ledgerH.UpdateRent))
	mux.Handle("POST /api/rent/charge", gm(s.ledgerH.ChargeRent))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}

func gm(h http.HandlerFunc) http.Handler {
	return middleware.RequireGamemaster(h)
}
