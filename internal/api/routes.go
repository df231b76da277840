// Package api provides HTTP API server implementation for the feature pipeline service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/correlator-io/featurepipe/internal/api/middleware"
	"github.com/correlator-io/featurepipe/internal/pipeline"
)

const (
	healthCheckTimeout = 2 * time.Second
	expectedURLParts   = 2
	buildVersion       = "v0.1.0"
)

type (
	// Version represents the API version response structure.
	Version struct {
		Version     string `json:"version"`
		ServiceName string `json:"serviceName"`
	}

	// HealthStatus represents the health check response structure.
	HealthStatus struct {
		Status      string `json:"status"`
		ServiceName string `json:"serviceName"`
		Version     string `json:"version"`
		Uptime      string `json:"uptime,omitempty"`
	}

	// ProcessRequest is the POST /process request body: a batch of per-pipeline requests.
	ProcessRequest struct {
		Requests []pipeline.Request `json:"requests"`
	}

	// ProcessResponse is the POST /process response body.
	ProcessResponse struct {
		Results []pipeline.Result `json:"results"`
	}

	// Route represents an HTTP route configuration with a path and handler.
	// Used for declarative route registration with middleware bypass support.
	Route struct {
		Path    string           // The URL path for this route (e.g., "/healthz", "/version")
		Handler http.HandlerFunc // The HTTP handler function for this route
	}
)

// Routes sets up all HTTP routes for the API server.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	s.registerPublicRoutes(
		mux,
		Route{"GET /version", s.handleVersion},
		Route{"GET /healthz", s.handleHealthz},
		Route{"/", s.handleNotFound}, // Catch-all handler for 404 responses
	)

	mux.HandleFunc("GET /pipelines", s.handlePipelines)
	mux.HandleFunc("GET /lookup-sources", s.handleLookupSources)
	mux.HandleFunc("POST /process", s.handleProcess)
}

// registerPublicRoutes registers HTTP routes that bypass authentication and rate limiting.
// This is a convenience method that:
//  1. Registers the route handler with the HTTP mux
//  2. Automatically registers the path as a public endpoint (bypasses auth middleware)
//
// Public routes should only be used for health check endpoints that need to be accessible
// without authentication (e.g., K8s liveness/readiness probes, monitoring tools).
//
// Security Warning: Never register business logic endpoints as public routes.
func (s *Server) registerPublicRoutes(mux *http.ServeMux, routes ...Route) {
	validHTTPMethods := map[string]bool{
		"GET":    true,
		"POST":   true,
		"PUT":    true,
		"PATCH":  true,
		"DELETE": true,
	}

	for _, route := range routes {
		mux.Handle(route.Path, route.Handler)

		// Strip method prefix for public endpoint bypass registration
		// Go 1.22+ method-based routing uses "GET /path" format
		// But r.URL.Path is just "/path" (no method prefix)
		path := route.Path

		parts := strings.Fields(path)
		if len(parts) == expectedURLParts && validHTTPMethods[parts[0]] {
			path = strings.TrimSpace(parts[1])
		}

		if path == "" {
			s.logger.Warn("Malformed route path detected, ignoring route", slog.String("path", path))

			continue
		}

		middleware.RegisterPublicEndpoint(path)
	}
}

// handleVersion responds with the running build's version identifiers.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.logger, http.StatusOK, Version{
		Version:     buildVersion,
		ServiceName: "featurepipe",
	})
}

// handleHealthz reports true iff every registered lookup source's probe
// succeeds within a bounded timeout, per spec.md §4.9.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	var uptime string
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	if !s.runtime.HealthCheck(ctx) {
		s.logger.Warn("health check failed", slog.String("correlation_id", correlationID))

		writeJSON(w, r, s.logger, http.StatusServiceUnavailable, HealthStatus{
			Status:      "unhealthy",
			ServiceName: "featurepipe",
			Version:     buildVersion,
			Uptime:      uptime,
		})

		return
	}

	writeJSON(w, r, s.logger, http.StatusOK, HealthStatus{
		Status:      "healthy",
		ServiceName: "featurepipe",
		Version:     buildVersion,
		Uptime:      uptime,
	})
}

// handlePipelines returns every active pipeline's schemas and operator descriptions.
func (s *Server) handlePipelines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.logger, http.StatusOK, s.runtime.GetPipelines())
}

// handleLookupSources returns every registered lookup source's redacted description.
func (s *Server) handleLookupSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.logger, http.StatusOK, s.runtime.GetLookupSources())
}

// handleNotFound returns RFC 7807 compliant 404 responses for unknown endpoints.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}

// handleProcess runs a batch of per-pipeline requests through the runtime,
// per spec.md §6's POST /process contract.
//
// Request validation (returns 4xx):
//   - 415 Unsupported Media Type: Content-Type must be application/json
//   - 413 Payload Too Large: Request body exceeds MaxRequestSize
//   - 400 Bad Request: Empty body, invalid JSON, or empty requests array
//
// Individual pipeline failures (unknown pipeline, validation error, row error)
// never fail the HTTP request itself - they surface as status "ERROR" entries
// in the results array alongside any "OK" entries from the same batch.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	correlationID := middleware.GetCorrelationID(r.Context())

	if !hasJSONContentType(r.Header.Get("Content-Type")) {
		WriteErrorResponse(w, r, s.logger, UnsupportedMediaType("Content-Type must be application/json"))

		return
	}

	req, problem := s.parseProcessRequest(r)
	if problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	results := make([]pipeline.Result, len(req.Requests))
	for i, pr := range req.Requests {
		results[i] = s.runtime.Process(r.Context(), pr)
	}

	writeJSON(w, r, s.logger, http.StatusOK, ProcessResponse{Results: results})

	s.logger.Info("process batch handled",
		slog.String("correlation_id", correlationID),
		slog.Int("requests", len(req.Requests)),
		slog.Duration("duration", time.Since(startTime)),
	)
}

// parseProcessRequest parses and validates the HTTP request body.
// Returns the parsed batch or a ProblemDetail if validation fails.
func (s *Server) parseProcessRequest(r *http.Request) (*ProcessRequest, *ProblemDetail) {
	if r.ContentLength > 0 && r.ContentLength > s.config.MaxRequestSize {
		return nil, PayloadTooLarge(
			fmt.Sprintf("Request body exceeds maximum size of %d bytes", s.config.MaxRequestSize),
		)
	}

	if r.ContentLength == 0 {
		return nil, BadRequest("Request body cannot be empty")
	}

	var req ProcessRequest

	decoder := json.NewDecoder(io.LimitReader(r.Body, s.config.MaxRequestSize))
	if err := decoder.Decode(&req); err != nil {
		return nil, BadRequest("Invalid JSON: " + err.Error())
	}

	if len(req.Requests) == 0 {
		return nil, BadRequest("requests array cannot be empty")
	}

	return &req, nil
}

// hasJSONContentType checks if Content-Type header starts with "application/json".
// This allows charset parameters (e.g., "application/json; charset=utf-8").
func hasJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(contentType), "application/json")
}

// writeJSON marshals and writes a 200-class JSON response, logging (but not
// retrying) any write failure - headers are already committed by that point.
func writeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, body interface{}) {
	correlationID := middleware.GetCorrelationID(r.Context())

	data, err := json.Marshal(body)
	if err != nil {
		logger.Error("Failed to marshal response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, logger, InternalServerError("Failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		logger.Error("Failed to write response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}
