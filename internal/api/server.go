// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/vrsandeep/serieswatch/internal/core"
	"github.com/vrsandeep/serieswatch/internal/store"
	"github.com/vrsandeep/serieswatch/internal/tracker"
)

// Server holds the dependencies for our API.
type Server struct {
	app     *core.App
	db      *sql.DB
	store   *store.Store
	tracker *tracker.Service
	log     zerolog.Logger
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:     app,
		db:      app.DB,
		store:   app.Store,
		tracker: app.Tracker,
		log:     app.Log.With().Str("component", "api").Logger(),
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.AccessHandler(accessLog))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/regions", s.handleListRegions)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(s.UserMiddleware)

			r.Get("/tracked", s.handleListTracked)
			r.Post("/series/{seriesID}/follow", s.handleFollowSeries)
			r.Delete("/series/{seriesID}/follow", s.handleUnfollowSeries)
			r.Get("/releases", s.handleListReleases)
			r.Post("/releases/{releaseID}/dismiss", s.handleDismissRelease)
		})

		r.Post("/tracked/{trackedID}/check", s.handleManualCheck)

		// Admin job triggers
		r.Route("/admin", func(r chi.Router) {
			r.Get("/jobs/status", s.handleGetAdminJobsStatus)
			r.Post("/jobs/run", s.handleRunAdminJob)
		})
	})

	// WebSocket route
	r.With(s.UserMiddleware).Get("/ws/users/{userID}", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub.ServeWs(w, r, userFromContext(r.Context()))
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("http")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		RespondWithError(w, r, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	resp := map[string]any{
		"status":        "ok",
		"sweep_running": s.app.Scheduler.IsRunning(),
	}
	if next, ok := s.app.Scheduler.NextRun(); ok {
		resp["next_sweep"] = next
	}
	RespondWithJSON(w, r, http.StatusOK, resp)
}
