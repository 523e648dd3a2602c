// internal/api/server.go

// Package api exposes crawl runs over HTTP: start a run from a profile,
// watch its progress, stop it and fetch its records.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/monitoring"
	"github.com/valpere/CatalogScrapexter/internal/output"
	"github.com/valpere/CatalogScrapexter/internal/pipeline"
	"github.com/valpere/CatalogScrapexter/internal/utils"
)

// ErrTooManyJobs is returned when every retained job is still running.
var ErrTooManyJobs = errors.New("too many jobs in progress")

// Options configures a Server.
type Options struct {
	Settings config.Settings
	// Pipeline is the template for every run. Its Sink is replaced per job.
	Pipeline pipeline.Options
	Metrics  *monitoring.MetricsManager
	Health   *monitoring.HealthManager
	Logger   utils.Logger
}

// Server runs crawl jobs on behalf of HTTP clients.
type Server struct {
	settings config.Settings
	pipeline pipeline.Options
	metrics  *monitoring.MetricsManager
	health   *monitoring.HealthManager
	logger   utils.Logger
	router   *mux.Router

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	jobs  map[string]*crawlJob
	order []string
}

// crawlJob is a job tracked by the server.
type crawlJob struct {
	ID          string
	Config      config.CrawlConfig
	Format      string
	Destination string
	CreatedAt   time.Time
	job         *pipeline.Job
}

// NewServer creates a server with its routes registered.
func NewServer(opts Options) (*Server, error) {
	if opts.Pipeline.Fetcher == nil {
		return nil, errors.New("api: pipeline fetcher is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.Health == nil {
		opts.Health = monitoring.NewHealthManager(0)
	}
	if opts.Pipeline.Logger == nil {
		opts.Pipeline.Logger = opts.Logger
	}
	if opts.Pipeline.Metrics == nil {
		opts.Pipeline.Metrics = opts.Metrics
	}
	config.ApplyDefaults(&opts.Settings)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		settings: opts.Settings,
		pipeline: opts.Pipeline,
		metrics:  opts.Metrics,
		health:   opts.Health,
		logger:   opts.Logger.WithField("component", "api"),
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*crawlJob),
	}
	if config.IsFileFormat(s.settings.Output.Format) {
		s.health.RegisterCheck("output_dir", monitoring.WritableDirCheck(s.settings.Server.OutputDir))
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health.HealthHandler()).Methods("GET")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware, s.authMiddleware)
	api.HandleFunc("/crawls", s.createCrawlHandler).Methods("POST")
	api.HandleFunc("/crawls", s.listCrawlsHandler).Methods("GET")
	api.HandleFunc("/crawls/{id}", s.getCrawlHandler).Methods("GET")
	api.HandleFunc("/crawls/{id}", s.stopCrawlHandler).Methods("DELETE")
	api.HandleFunc("/crawls/{id}/records", s.recordsHandler).Methods("GET")

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves the API until ctx is cancelled, then stops every
// running job and waits for them to finish their export.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		s.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("API listening on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops all jobs and waits for them until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.RLock()
	jobs := make([]*crawlJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.RUnlock()

	for _, j := range jobs {
		select {
		case <-j.job.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// StartCrawl launches a job for cfg and returns its id.
func (s *Server) StartCrawl(cfg config.CrawlConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	out := s.settings.Output
	if config.IsFileFormat(out.Format) {
		out.File = filepath.Join(s.settings.Server.OutputDir, id+"."+config.FileExtension(out.Format))
	}
	manager, err := output.NewManager(out, s.logger.WithField("job", id))
	if err != nil {
		return "", err
	}

	opts := s.pipeline
	opts.Sink = manager.Factory()
	opts.Logger = s.pipeline.Logger.WithField("job", id)
	orchestrator, err := pipeline.New(opts)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.evictLocked(); err != nil {
		return "", err
	}
	entry := &crawlJob{
		ID:          id,
		Config:      cfg,
		Format:      out.Format,
		Destination: out.File,
		CreatedAt:   time.Now(),
		job:         orchestrator.Start(s.ctx, cfg),
	}
	if entry.Destination == "" {
		entry.Destination = out.Format
	}
	s.jobs[id] = entry
	s.order = append(s.order, id)
	s.logger.WithField("job", id).Infof("Started crawl of %s", cfg.SeedURL)
	return id, nil
}

// evictLocked drops the oldest finished jobs once the retention limit is
// reached.
func (s *Server) evictLocked() error {
	limit := s.settings.Server.MaxJobs
	if limit <= 0 || len(s.order) < limit {
		return nil
	}
	kept := s.order[:0]
	excess := len(s.order) - limit + 1
	for _, id := range s.order {
		j := s.jobs[id]
		if excess > 0 && isDone(j.job) {
			delete(s.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	if excess > 0 {
		return ErrTooManyJobs
	}
	return nil
}

func isDone(j *pipeline.Job) bool {
	select {
	case <-j.Done():
		return true
	default:
		return false
	}
}

func (s *Server) lookup(id string) (*crawlJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// Handlers

func (s *Server) createCrawlHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := config.LoadProfileFromReader(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.StartCrawl(profile.CrawlConfig())
	switch {
	case errors.Is(err, ErrTooManyJobs):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	w.Header().Set("Location", "/api/v1/crawls/"+id)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":    id,
		"state": pipeline.StateIdle,
	})
}

func (s *Server) listCrawlsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	views := make([]jobView, 0, len(s.jobs))
	for _, id := range s.order {
		views = append(views, newJobView(s.jobs[id], false))
	}
	s.mu.RUnlock()

	sort.SliceStable(views, func(i, k int) bool { return views[i].CreatedAt.Before(views[k].CreatedAt) })
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"crawls": views,
		"total":  len(views),
	})
}

func (s *Server) getCrawlHandler(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("crawl not found"))
		return
	}
	writeJSON(w, http.StatusOK, newJobView(j, r.URL.Query().Get("events") != "false"))
}

func (s *Server) stopCrawlHandler(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("crawl not found"))
		return
	}
	j.job.Stop()
	s.logger.WithField("job", j.ID).Info("Stop requested")
	writeJSON(w, http.StatusAccepted, newJobView(j, false))
}

func (s *Server) recordsHandler(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("crawl not found"))
		return
	}
	result, _ := j.job.Result()
	if result == nil {
		writeError(w, http.StatusConflict, fmt.Errorf("crawl is still running"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       j.ID,
		"columns":  output.Header,
		"records":  result.Records,
		"partial":  result.Partial,
		"failures": result.Failures,
	})
}

// Middleware

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := s.settings.Server.APIKey
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid authorization format"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(authHeader, "Bearer ")), []byte(key)) != 1 {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid API key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.settings.Server.RateLimit <= 0 {
		return next
	}
	burst := int(s.settings.Server.RateLimit * 2)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(s.settings.Server.RateLimit), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Views

type eventView struct {
	pipeline.ProgressEvent
	Error string `json:"error,omitempty"`
}

type jobView struct {
	ID          string            `json:"id"`
	SeedURL     string            `json:"seed_url"`
	Format      string            `json:"format"`
	Destination string            `json:"destination"`
	CreatedAt   time.Time         `json:"created_at"`
	Status      pipeline.Snapshot `json:"status"`
	Partial     bool              `json:"partial"`
	Events      []eventView       `json:"events,omitempty"`
}

func newJobView(j *crawlJob, withEvents bool) jobView {
	view := jobView{
		ID:          j.ID,
		SeedURL:     j.Config.SeedURL,
		Format:      j.Format,
		Destination: j.Destination,
		CreatedAt:   j.CreatedAt,
		Status:      j.job.Snapshot(),
	}
	if result, _ := j.job.Result(); result != nil {
		view.Partial = result.Partial
	}
	if withEvents {
		for _, e := range j.job.History() {
			ev := eventView{ProgressEvent: e}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			view.Events = append(view.Events, ev)
		}
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
