package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/slotfinder/internal/handler"
	"github.com/dukerupert/slotfinder/internal/middleware"
	"github.com/dukerupert/slotfinder/internal/store"
	ws "github.com/dukerupert/slotfinder/internal/websocket"
)

// Config holds the tunables the router needs beyond its dependencies.
type Config struct {
	// APIKeyHash is the bcrypt hash of the shared API key. Nil disables the check.
	APIKeyHash []byte
	// QueryLimit is the number of meeting queries allowed per client per QueryWindow.
	QueryLimit  int
	QueryWindow time.Duration
	// TrustProxy keys rate limits on CF-Connecting-IP / X-Forwarded-For.
	// Set it only when a proxy that overwrites those headers fronts every request.
	TrustProxy bool
	// WebSocketOrigins lists extra Origin host patterns allowed to open /ws.
	// Same-origin and non-browser clients are always allowed.
	WebSocketOrigins []string
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	eventH      *handler.CalendarEventHandler
	meetingH    *handler.MeetingHandler
	rateLimiter *middleware.RateLimiter
	cfg         Config
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	if cfg.QueryLimit <= 0 {
		cfg.QueryLimit = 60
	}
	if cfg.QueryWindow <= 0 {
		cfg.QueryWindow = time.Minute
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	eventStore := store.NewEventStore(db)

	return &Server{
		db:          db,
		hub:         hub,
		eventH:      handler.NewCalendarEventHandler(eventStore, hub, logger.With("component", "calendar")),
		meetingH:    handler.NewMeetingHandler(eventStore, logger.With("component", "meeting")),
		rateLimiter: middleware.NewRateLimiter(),
		cfg:         cfg,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)
	outerMux.Handle("/", middleware.RequireAPIKey(s.cfg.APIKeyHash)(apiMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ClientIP(s.cfg.TrustProxy), s.cfg.QueryLimit, s.cfg.QueryWindow)
	wrapped := rl(h)
	return wrapped.ServeHTTP
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	mux.HandleFunc("POST /api/meetings/query", s.rateLimitedHandler(s.meetingH.Query))

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.WebSocketOrigins, s.logger.With("component", "websocket")))
}
