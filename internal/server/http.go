package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/action-gateway/pkg/dispatcher"
	"github.com/morezero/action-gateway/pkg/envelope"
)

const httpLogPrefix = "server:http"

const healthCheckTimeout = 3 * time.Second

type healthResponse struct {
	Status  string          `json:"status"`
	Version string          `json:"version"`
	Checks  map[string]bool `json:"checks,omitempty"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.rateLimit(http.HandlerFunc(s.handleGet)))
	mux.Handle("POST /{$}", s.rateLimit(http.HandlerFunc(s.handlePost)))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	env := s.disp.HandleGet(ctx, dispatcher.GetRequest{Query: r.URL.Query(), Header: r.Header})
	s.writeEnvelope(w, env)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn(fmt.Sprintf("%s - POST body over %d bytes from %s", httpLogPrefix, tooLarge.Limit, clientKey(r, s.cfg.TrustForwardedFor)))
			s.writeEnvelope(w, envelope.Err("Request body too large", http.StatusRequestEntityTooLarge, nil))
			return
		}
		s.writeEnvelope(w, envelope.Err("Invalid JSON body", http.StatusBadRequest, nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	env := s.disp.HandlePost(ctx, dispatcher.PostRequest{Body: body, Header: r.Header})
	s.writeEnvelope(w, env)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: Version, Checks: map[string]bool{}}
	status := http.StatusOK

	if s.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		resp.Checks["database"] = s.pool.Ping(ctx) == nil
	}
	if s.nc != nil {
		resp.Checks["comms"] = s.nc.IsConnected()
	}
	for _, ok := range resp.Checks {
		if !ok {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// transportStatus maps an envelope to the HTTP status. Failures whose code is not an HTTP error
// status (e.g. GET_HANDLER_ERROR) are 500.
func transportStatus(env envelope.Envelope, mirror bool) int {
	if !mirror || env.Ok {
		return http.StatusOK
	}
	if code := env.StatusCode(); code >= 400 && code <= 599 {
		return code
	}
	return http.StatusInternalServerError
}

func (s *Server) writeEnvelope(w http.ResponseWriter, env envelope.Envelope) {
	writeJSON(w, transportStatus(env, s.cfg.MirrorStatusCodes), env)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - response encode: %v", httpLogPrefix, err))
	}
}
