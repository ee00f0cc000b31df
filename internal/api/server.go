// Package api serves helix frames, strand validation and background
// relaxation over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/banshee-data/ensnano-geometry/internal/config"
	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/httputil"
	"github.com/banshee-data/ensnano-geometry/internal/metrics"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/relax"
	"github.com/banshee-data/ensnano-geometry/internal/storage/sqlite"
	"github.com/banshee-data/ensnano-geometry/internal/sweep"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Options are the optional collaborators of a Server.
type Options struct {
	// Tuning is the base relaxer configuration; request bodies override it
	// field by field. Nil uses the defaults.
	Tuning *config.TuningConfig
	// Store, if set, records every finished relaxation and serves snapshots.
	Store *sqlite.Store
	// Metrics, if set, observes relaxations and is served on /metrics.
	Metrics *metrics.Relax
}

// Server owns the working design. Relaxations run in the background on a
// copy; a successful one replaces the working design.
type Server struct {
	mu         sync.RWMutex
	design     *design.Design
	snapshotID string
	history    []float64
	pending    relax.Config

	tuning  *config.TuningConfig
	runner  *sweep.Runner
	store   *sqlite.Store
	metrics *metrics.Relax
}

// NewServer creates a server around d.
func NewServer(d *design.Design, opts Options) *Server {
	var obs relax.Observer
	if opts.Metrics != nil {
		obs = opts.Metrics
	}
	tuning := opts.Tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	s := &Server{
		design:  d,
		tuning:  tuning,
		runner:  sweep.NewRunner(obs),
		store:   opts.Store,
		metrics: opts.Metrics,
	}
	s.runner.OnRelaxComplete(s.relaxDone)
	return s
}

// Design returns the working design. Callers must not mutate it.
func (s *Server) Design() *design.Design {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.design
}

// Runner returns the background runner.
func (s *Server) Runner() *sweep.Runner {
	return s.runner
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/design", s.getDesign)
		r.Put("/design", s.putDesign)

		r.Get("/helices", s.listHelices)
		r.Get("/helices/{id}/frame", s.helixFrame)
		r.Get("/helices/{id}/frame2d", s.helixFrame2D)

		r.Post("/strands/validate", s.validateStrand)

		r.Get("/relax", s.relaxState)
		r.Post("/relax", s.startRelax)
		r.Delete("/relax", s.stopRelax)
		r.Post("/sweep", s.startSweep)

		r.Get("/snapshots", s.listSnapshots)
		r.Post("/snapshots", s.saveSnapshot)
		r.Get("/snapshots/{id}", s.getSnapshot)
		r.Post("/snapshots/{id}/load", s.loadSnapshot)
		r.Delete("/snapshots/{id}", s.deleteSnapshot)
		r.Get("/runs", s.listRuns)
	})

	r.Get("/debug/layout", s.debugLayout)
	r.Get("/debug/strain.png", s.debugStrain)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// writeError maps engine errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case geomerr.IsNotFound(err), errors.Is(err, sqlite.ErrNotFound), errors.Is(err, design.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, geomerr.ErrTopologyMismatch), errors.Is(err, geomerr.ErrDegenerateCurve):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, sweep.ErrBusy), errors.Is(err, design.ErrInUse):
		status = http.StatusConflict
	}
	httputil.WriteCodedError(w, status, err, string(geomerr.GetCode(err)))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func intParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}
