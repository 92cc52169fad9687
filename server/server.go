// Package server exposes the pipeline over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/metrics"
	"podcastSummarize/pipeline"
)

// Server holds the HTTP surface around one pipeline instance.
type Server struct {
	cfg  *config.Config
	pipe *pipeline.Pipeline
	log  *logrus.Entry
}

// New builds the server around an assembled pipeline.
func New(cfg *config.Config, pipe *pipeline.Pipeline) *Server {
	return &Server{
		cfg:  cfg,
		pipe: pipe,
		log:  logrus.WithField("component", "server"),
	}
}

// Routes registers all handlers on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/process", s.recovered("process", s.handleProcess))
	mux.HandleFunc("/ask", s.recovered("ask", s.handleAsk))
	mux.HandleFunc("/live", s.recovered("live", s.handleLive))
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// ListenAndServe runs the server on the configured address.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.log.WithField("addr", addr).Info("listening")
	return http.ListenAndServe(addr, s.Routes())
}

// recovered wraps a handler with panic recovery and request counting.
func (s *Server) recovered(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithFields(logrus.Fields{
					"endpoint": endpoint,
					"panic":    rec,
				}).Error(string(debug.Stack()))
				metrics.RequestsTotal.WithLabelValues(endpoint, "panic").Inc()
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
