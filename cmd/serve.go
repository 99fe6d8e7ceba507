package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regioncheck/internal/config"
	"github.com/sells-group/regioncheck/internal/enrich"
	"github.com/sells-group/regioncheck/internal/region"
	"github.com/sells-group/regioncheck/internal/shapeload"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the region enrichment HTTP API",
	Long: `Starts an HTTP server exposing dataset management and enrichment jobs:

  GET    /health                      liveness
  GET    /api/datasets                registered datasets in order
  POST   /api/datasets                upload a zip of shapefiles (multipart field "archive")
  DELETE /api/datasets                unregister every dataset
  POST   /api/jobs                    upload an address CSV (multipart field "file") and start a job
  GET    /api/jobs/{job_id}           job progress and summary
  POST   /api/jobs/{job_id}/cancel    stop between records, keeping partial results
  GET    /api/jobs/{job_id}/download  result CSV for done and cancelled jobs`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		// Serve mode can start empty; datasets arrive over the API.
		reg, err := loadRegistry(ctx, nil, "")
		if err != nil {
			zap.L().Warn("serve: starting with no preloaded datasets", zap.Error(err))
			reg = region.NewRegistry()
		}

		client, err := newGeocodeClient()
		if err != nil {
			return err
		}
		defer client.Close() //nolint:errcheck

		srv := newServer(ctx, reg, pointGeocoder{client: client}, cfg)
		port := resolvePort(servePort, cfg.Server.Port)

		return startServer(ctx, srv.routes(), port)
	},
}

// server is the shared state behind the HTTP API. The registry is guarded
// here because region.Registry itself is not safe for concurrent mutation;
// each job runs against an immutable snapshot so uploads mid-run never shift
// a job's columns.
type server struct {
	base     context.Context
	geocoder enrich.Geocoder
	delay    time.Duration
	origins  []string
	jobs     *jobStore
	log      *zap.Logger

	mu       sync.Mutex
	registry *region.Registry
}

func newServer(ctx context.Context, reg *region.Registry, g enrich.Geocoder, c *config.Config) *server {
	return &server{
		base:     ctx,
		geocoder: g,
		delay:    time.Duration(c.Pipeline.DelayMS) * time.Millisecond,
		origins:  c.Server.CORSOrigins,
		jobs:     newJobStore(),
		log:      zap.L().With(zap.String("component", "cmd.serve")),
		registry: reg,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/datasets", s.handleListDatasets)
		r.Post("/datasets", s.handleUploadDatasets)
		r.Delete("/datasets", s.handleResetDatasets)
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{job_id}", s.handleJobStatus)
		r.Post("/jobs/{job_id}/cancel", s.handleCancelJob)
		r.Get("/jobs/{job_id}/download", s.handleJobDownload)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := s.registry.Len()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "datasets": count})
}

func (s *server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	infos := describeDatasets(s.registry.List())
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"datasets": infos})
}

func (s *server) handleUploadDatasets(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("archive")
	if err != nil {
		http.Error(w, `multipart field "archive" is required`, http.StatusBadRequest)
		return
	}
	defer file.Close() //nolint:errcheck

	tmp, err := os.CreateTemp("", "regioncheck-upload-*.zip")
	if err != nil {
		http.Error(w, "stage upload: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		http.Error(w, "stage upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// A bad archive leaves the registry untouched.
	datasets, err := shapeload.LoadArchive(tmp.Name())
	if err != nil {
		http.Error(w, "load archive: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.registry.RegisterAll(datasets)
	s.mu.Unlock()

	s.log.Info("registered uploaded datasets", zap.Int("count", len(datasets)))
	writeJSON(w, http.StatusCreated, map[string]any{"datasets": describeDatasets(datasets)})
}

func (s *server) handleResetDatasets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.registry.Reset()
	s.mu.Unlock()

	s.log.Info("registry reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	snapshot := s.snapshotRegistry()
	if snapshot.Len() == 0 {
		http.Error(w, "no datasets registered", http.StatusConflict)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `multipart field "file" is required`, http.StatusBadRequest)
		return
	}
	defer file.Close() //nolint:errcheck

	records, err := enrich.ReadAddresses(file)
	if err != nil {
		http.Error(w, "invalid address csv: "+err.Error(), http.StatusBadRequest)
		return
	}

	jobCtx, cancel := context.WithCancel(s.base)
	j := s.jobs.create(len(records), cancel)

	pipeline := enrich.New(snapshot, s.geocoder,
		enrich.WithDelay(s.delay),
		enrich.WithObserver(j.observe))

	go s.runJob(jobCtx, j, snapshot, pipeline, records)

	s.log.Info("job started", zap.String("job_id", j.id), zap.Int("records", len(records)))
	writeJSON(w, http.StatusAccepted, map[string]string{"id": j.id, "state": jobRunning})
}

func (s *server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobs.get(chi.URLParam(r, "job_id"))
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, j.status())
}

func (s *server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobs.get(chi.URLParam(r, "job_id"))
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	j.requestCancel()
	writeJSON(w, http.StatusAccepted, j.status())
}

func (s *server) handleJobDownload(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobs.get(chi.URLParam(r, "job_id"))
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	rows, columns, ok := j.results()
	if !ok {
		http.Error(w, "results not ready", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="addresses_with_regions.csv"`)
	if err := enrich.WriteCSVTo(w, rows, columns); err != nil {
		s.log.Warn("download write failed", zap.String("job_id", j.id), zap.Error(err))
	}
}

// runJob drives one enrichment job to a terminal state.
func (s *server) runJob(ctx context.Context, j *job, snapshot *region.Registry, pipeline *enrich.Pipeline, records []enrich.AddressRecord) {
	enriched, summary, runErr := pipeline.Run(ctx, records)

	rows, columns, err := enrich.Flatten(snapshot, records[:len(enriched)], enriched)
	if err != nil {
		j.finish(jobFailed, nil, nil, summary, err)
		return
	}

	switch {
	case runErr == nil:
		j.finish(jobDone, rows, columns, summary, nil)
	case errors.Is(runErr, context.Canceled):
		j.finish(jobCancelled, rows, columns, summary, nil)
	default:
		j.finish(jobFailed, rows, columns, summary, runErr)
	}

	s.log.Info("job finished",
		zap.String("job_id", j.id),
		zap.String("state", j.status().State),
		zap.Int("processed", summary.Total))
}

// snapshotRegistry copies the current datasets into a fresh registry.
func (s *server) snapshotRegistry() *region.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := region.NewRegistry()
	snap.RegisterAll(s.registry.List())
	return snap
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// resolvePort prefers the flag when set, then config.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "serve: listen")
	}

	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")

	rootCmd.AddCommand(serveCmd)
}
