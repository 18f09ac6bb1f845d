package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"crmcal/internal/auth"
	"crmcal/internal/config"
	"crmcal/internal/crm"
	"crmcal/internal/ics"
	appLog "crmcal/internal/log"
	"crmcal/internal/metrics"
	"crmcal/internal/model"
	"crmcal/internal/pipeline"
	"crmcal/internal/window"
)

// Source provides the current snapshot and reloads it on demand.
type Source interface {
	Current() (pipeline.Snapshot, error)
	Refresh(ctx context.Context) error
}

// Server serves the agenda page, its JSON API and the ICS feed.
type Server struct {
	cfg     *config.Config
	source  Source
	metrics *metrics.Metrics
	roster  model.Roster
	loc     *time.Location
	now     func() time.Time
	mux     *http.ServeMux
	pages   *template.Template
}

//go:embed templates/*.html
var embeddedTemplates embed.FS

// NewServer constructs a Server. m may be nil, in which case /metrics is not
// registered.
func NewServer(cfg *config.Config, src Source, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		source:  src,
		metrics: m,
		roster:  model.Roster(cfg.Responsibles),
		loc:     cfg.Location(),
		now:     time.Now,
		mux:     http.NewServeMux(),
		pages:   template.Must(template.ParseFS(embeddedTemplates, "templates/*.html")),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler including auth and request logging.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "user", s.cfg.BasicAuth.Username)
		h = s.basicAuthMiddleware(h)
	}
	return logRequests(h)
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/responsibles", s.handleResponsibles)
	s.mux.HandleFunc("GET /api/detail", s.handleDetail)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /{$}", s.handleCalendar)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.PasswordHash != ""
}

// basicAuthMiddleware guards everything except /health and /metrics.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	hash := s.cfg.BasicAuth.PasswordHash

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(u), []byte(username)) == 1
		passOK := false
		if ok && userOK {
			var err error
			passOK, err = auth.VerifyPassword(p, hash)
			if err != nil {
				appLog.Error("password verification failed", err)
			}
		}
		if !ok || !userOK || !passOK {
			appLog.Warn("unauthorized request", "path", r.URL.Path, "remote", r.RemoteAddr, "user", u)
			w.Header().Set("WWW-Authenticate", `Basic realm="crmcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// selection is a parsed range and filter request.
type selection struct {
	query  window.Query
	filter window.Filter
}

func (s *Server) parseSelection(q url.Values) (selection, error) {
	wq, err := window.ParseQuery(q.Get("range"), q.Get("from"), q.Get("to"), s.loc)
	if err != nil {
		return selection{}, err
	}
	types, err := window.ParseTypes(q.Get("types"))
	if err != nil {
		return selection{}, err
	}
	return selection{
		query:  wq,
		filter: window.Filter{Types: types, Responsible: strings.TrimSpace(q.Get("responsible"))},
	}, nil
}

func (s *Server) apply(snap pipeline.Snapshot, sel selection) window.View {
	w := window.Bounds(sel.query, s.now().In(s.loc))
	return window.Apply(snap.Events, w, sel.filter)
}

// snapshot returns the current snapshot and, when the last refresh failed,
// its error text. It writes 503 and reports false before the first load.
func (s *Server) snapshot(w http.ResponseWriter) (pipeline.Snapshot, string, bool) {
	snap, err := s.source.Current()
	if errors.Is(err, pipeline.ErrNotLoaded) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return pipeline.Snapshot{}, "", false
	}
	stale := ""
	if err != nil {
		stale = err.Error()
	}
	return snap, stale, true
}

// eventDTO adds the resolved responsible name to an event.
type eventDTO struct {
	model.Event
	Responsible string `json:"responsible"`
}

type eventsResponse struct {
	Range    window.Range  `json:"range"`
	Window   window.Window `json:"window"`
	Stats    window.Stats  `json:"stats"`
	Events   []eventDTO    `json:"events"`
	Timezone string        `json:"timezone"`
	LoadedAt time.Time     `json:"loaded_at"`
	Stale    string        `json:"stale_error,omitempty"`
}

// handleEvents returns the visible events for a range and filter.
//
// GET /api/events?range=week&from=&to=&responsible=&types=due,presentation
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sel, err := s.parseSelection(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, stale, ok := s.snapshot(w)
	if !ok {
		return
	}

	v := s.apply(snap, sel)
	dtos := make([]eventDTO, 0, len(v.Events))
	for _, ev := range v.Events {
		dtos = append(dtos, eventDTO{Event: ev, Responsible: s.roster.Name(ev.ResponsibleID)})
	}

	appLog.Debug("api events request",
		"range", sel.query.Range,
		"start", v.Window.Start.Format(time.RFC3339),
		"end", v.Window.End.Format(time.RFC3339),
		"visible", len(dtos),
	)

	writeJSON(w, http.StatusOK, eventsResponse{
		Range:    sel.query.Range,
		Window:   v.Window,
		Stats:    v.Stats,
		Events:   dtos,
		Timezone: s.loc.String(),
		LoadedAt: snap.LoadedAt,
		Stale:    stale,
	})
}

func (s *Server) handleResponsibles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"responsibles": s.roster.People()})
}

// handleDetail resolves the CRM web link of an event's card.
//
// GET /api/detail?event=<event id>
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("event"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}
	snap, _, ok := s.snapshot(w)
	if !ok {
		return
	}

	for _, ev := range snap.Events {
		if ev.ID != id {
			continue
		}
		link, err := s.detailURL(ev)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": link})
		return
	}
	writeError(w, http.StatusNotFound, "event not found")
}

type refreshResponse struct {
	Records  int       `json:"records"`
	Events   int       `json:"events"`
	Skipped  int       `json:"skipped_dates"`
	LoadedAt time.Time `json:"loaded_at"`
}

// handleRefresh reloads cards now. On failure the previous snapshot stays
// in place and the fetch error is reported with 502.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.source.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	snap, _, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Records:  snap.Records,
		Events:   len(snap.Events),
		Skipped:  len(snap.Skipped),
		LoadedAt: snap.LoadedAt,
	})
}

// handleICS serves the filtered view as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	sel, err := s.parseSelection(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, _, ok := s.snapshot(w)
	if !ok {
		return
	}
	v := s.apply(snap, sel)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	err = ics.Encode(w, v.Events, ics.Options{
		DetailHost: s.cfg.CRM.DetailHost,
		PanelID:    s.cfg.CRM.PanelID,
		Roster:     s.roster,
		Now:        s.now(),
	})
	if err != nil {
		appLog.Error("failed to write calendar feed", err)
	}
}

// detailURL links an event to its card, using the configured panel when the
// card did not report one.
func (s *Server) detailURL(ev model.Event) (string, error) {
	panel := ev.PanelID
	if panel == "" {
		panel = s.cfg.CRM.PanelID
	}
	return crm.CardURL(s.cfg.CRM.DetailHost, panel, ev.CardKey)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start).String(),
		)
	})
}
