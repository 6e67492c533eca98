package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/labelbridge/internal/telemetry"
	"github.com/tournevent/labelbridge/pkg/shipment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ShipmentService creates and cancels labels for batches of any store.
type ShipmentService interface {
	CreateShipments(ctx context.Context, reqs []*shipment.ShipmentRequest) ([]shipment.Response, error)
	CancelShipments(ctx context.Context, reqs []*shipment.CancellationRequest) ([]shipment.Response, error)
}

// Server is the HTTP server for the label service.
type Server struct {
	port     int
	service  ShipmentService
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
}

// Config holds server configuration.
type Config struct {
	Port int
	// Gatherer serves /metrics. Defaults to the Prometheus default gatherer.
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, service ShipmentService, logger *otelzap.Logger, metrics *telemetry.Metrics) *Server {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:     cfg.Port,
		service:  service,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /v1/shipments", s.handleCreate)
	mux.HandleFunc("POST /v1/cancellations", s.handleCancel)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "create", start, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	reqs := make([]*shipment.ShipmentRequest, 0, len(body.Shipments))
	for i, in := range body.Shipments {
		req, err := shipmentInputToModel(in)
		if err != nil {
			s.writeError(w, "create", start, http.StatusBadRequest, fmt.Sprintf("shipments[%d]: %s", i, err))
			return
		}
		reqs = append(reqs, req)
	}

	responses, err := s.service.CreateShipments(ctx, reqs)
	if err != nil {
		s.serviceFailed(ctx, w, "create", start, err)
		return
	}
	s.writeResults(w, "create", start, responses)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var body cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "cancel", start, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	reqs := make([]*shipment.CancellationRequest, 0, len(body.Cancellations))
	for _, in := range body.Cancellations {
		reqs = append(reqs, cancellationInputToModel(in))
	}

	responses, err := s.service.CancelShipments(ctx, reqs)
	if err != nil {
		s.serviceFailed(ctx, w, "cancel", start, err)
		return
	}
	s.writeResults(w, "cancel", start, responses)
}

func (s *Server) serviceFailed(ctx context.Context, w http.ResponseWriter, operation string, start time.Time, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shipment.ErrDuplicateRequestIndex):
		status = http.StatusBadRequest
	case errors.Is(err, shipment.ErrStoreNotConfigured):
		status = http.StatusUnprocessableEntity
	default:
		s.logger.Ctx(ctx).Error("Batch failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	s.writeError(w, operation, start, status, err.Error())
}

func (s *Server) writeResults(w http.ResponseWriter, operation string, start time.Time, responses []shipment.Response) {
	results := make([]result, 0, len(responses))
	for _, resp := range responses {
		results = append(results, responseToResult(resp))
	}
	s.metrics.RecordRequest(operation, "success", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, resultsResponse{Results: results})
}

func (s *Server) writeError(w http.ResponseWriter, operation string, start time.Time, status int, message string) {
	s.metrics.RecordRequest(operation, "error", time.Since(start).Seconds())
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
