package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/location-intel-service/internal/domain"
)

// statusClientClosedRequest is the non-standard status logged when the
// caller goes away before the assessment finishes.
const statusClientClosedRequest = 499

// Assessor produces a location report for a coordinate.
type Assessor interface {
	Assess(ctx context.Context, lat, lon float64) (domain.Report, error)
}

// Server exposes the assessment API alongside health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer     *http.Server
	assessor       Assessor
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewServer creates an HTTP server with /v1/assessment, /healthz, /readyz,
// and /metrics routes. Each assessment is bounded by requestTimeout.
func NewServer(addr string, assessor Assessor, ready sharedobs.ReadinessChecker, requestTimeout time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: requestTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		assessor:       assessor,
		requestTimeout: requestTimeout,
		logger:         logger,
	}

	mux.HandleFunc("GET /v1/assessment", s.handleAssessment)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	lat, err := parseCoordinate(r, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lon, err := parseCoordinate(r, "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	report, err := s.assessor.Assess(ctx, lat, lon)
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, report)
	case errors.Is(err, domain.ErrInvalidCoordinate):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("assessment timed out", "lat", lat, "lon", lon, "timeout", s.requestTimeout)
		writeError(w, http.StatusServiceUnavailable, errors.New("assessment timed out"))
	case errors.Is(err, context.Canceled):
		writeError(w, statusClientClosedRequest, errors.New("request cancelled"))
	default:
		s.logger.Error("assessment failed", "lat", lat, "lon", lon, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("assessment failed"))
	}
}

func parseCoordinate(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, errors.New("missing query parameter " + key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("invalid query parameter " + key)
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
