package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/vigilhq/vigil/internal/httpapi/middleware"
	"github.com/vigilhq/vigil/internal/repo"
	"github.com/vigilhq/vigil/internal/scheduler"
)

// uptimeWindow is the display window for the public status view. It is
// wider than the raw-result retention horizon on purpose: with the
// default 7-day retention the percentages simply cover what is stored.
const uptimeWindow = 90 * 24 * time.Hour

type Server struct {
	Logger     *zap.Logger
	Runner     *scheduler.Runner
	Pages      repo.StatusPageStore
	Results    repo.ResultStore
	Incidents  repo.IncidentStore
	CronSecret string
	APIKeys    []string
	Origins    []string
}

func NewServer(
	logger *zap.Logger,
	runner *scheduler.Runner,
	pages repo.StatusPageStore,
	results repo.ResultStore,
	incidents repo.IncidentStore,
	cronSecret string,
	apiKeys []string,
	origins []string,
) *Server {
	return &Server{
		Logger:     logger,
		Runner:     runner,
		Pages:      pages,
		Results:    results,
		Incidents:  incidents,
		CronSecret: cronSecret,
		APIKeys:    apiKeys,
		Origins:    origins,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.Origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireCronSecret(s.CronSecret))
		r.Get("/api/cron/check", s.handleRunChecks)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireKey(s.APIKeys))
		r.Post("/api/checks/run", s.handleRunChecks)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(120, 60))
		r.Get("/api/public/status/{slug}", s.handleStatusPage)
	})

	return r
}

// handleRunChecks serves both trigger surfaces; auth differs, the work
// does not. Probe-level failures are data and still count as success
// here; only a persistence failure turns into a 500.
func (s *Server) handleRunChecks(w http.ResponseWriter, r *http.Request) {
	report, err := s.Runner.RunBatch(r.Context())
	if err != nil {
		s.Logger.Error("check_run_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "check run failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"checked":   report.Checked,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type statusMonitor struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	DisplayOrder  int      `json:"display_order"`
	Status        string   `json:"status"`
	UptimePercent *float64 `json:"uptime_percent"`
	LatencyMS     *float64 `json:"latency_ms"`
	CheckedAt     *string  `json:"checked_at"`
}

type statusIncident struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Impact    string    `json:"impact"`
	CreatedAt time.Time `json:"created_at"`
	Updates   []any     `json:"updates"`
}

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	page, err := s.Pages.GetPublicBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		http.Error(w, "status page not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Logger.Error("status_page_lookup_failed", zap.String("slug", slug), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	linked, err := s.Pages.PageMonitors(ctx, page.ID)
	if err != nil {
		s.Logger.Error("page_monitors_failed", zap.String("slug", slug), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	since := time.Now().UTC().Add(-uptimeWindow)
	monitors := make([]statusMonitor, 0, len(linked))
	for _, pm := range linked {
		sm := statusMonitor{
			ID:           string(pm.Monitor.ID),
			Name:         pm.Monitor.Name,
			DisplayOrder: pm.DisplayOrder,
			Status:       "unknown",
		}

		latest, err := s.Results.LatestByMonitor(ctx, pm.Monitor.ID)
		if err != nil {
			s.Logger.Warn("latest_outcome_failed",
				zap.String("monitor_id", string(pm.Monitor.ID)), zap.Error(err))
		} else if latest != nil {
			if latest.Kind.Failed() {
				sm.Status = "down"
			} else {
				sm.Status = "operational"
			}
			sm.LatencyMS = latest.LatencyMS
			ts := latest.ExecutedAt.Format(time.RFC3339)
			sm.CheckedAt = &ts
		}

		stats, err := s.Results.UptimeSince(ctx, pm.Monitor.ID, since)
		if err != nil {
			s.Logger.Warn("uptime_stats_failed",
				zap.String("monitor_id", string(pm.Monitor.ID)), zap.Error(err))
		} else {
			sm.UptimePercent = stats.Percent()
		}

		monitors = append(monitors, sm)
	}

	open, err := s.Incidents.ListOpenByPage(ctx, page.ID)
	if err != nil {
		s.Logger.Error("open_incidents_failed", zap.String("slug", slug), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	incidents := make([]statusIncident, 0, len(open))
	for _, inc := range open {
		si := statusIncident{
			ID:        string(inc.ID),
			Title:     inc.Title,
			Status:    string(inc.Status),
			Impact:    string(inc.Impact),
			CreatedAt: inc.CreatedAt,
			Updates:   []any{},
		}
		updates, err := s.Incidents.ListUpdates(ctx, inc.ID)
		if err != nil {
			s.Logger.Warn("incident_updates_failed",
				zap.String("incident_id", string(inc.ID)), zap.Error(err))
		}
		for _, u := range updates {
			si.Updates = append(si.Updates, map[string]any{
				"status":     string(u.Status),
				"message":    u.Message,
				"created_at": u.CreatedAt,
			})
		}
		incidents = append(incidents, si)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"page": map[string]string{
			"name": page.Name,
			"slug": page.Slug,
		},
		"monitors":  monitors,
		"incidents": incidents,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
