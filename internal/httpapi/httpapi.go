// Package httpapi serves the read-only HTTP surface over the shared
// snapshot: an HTML index, per-release JSON data, the active configuration
// and override tree, hit statistics, and a live event feed.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mkowalski/repochecker/internal/snapshot"
	"github.com/mkowalski/repochecker/pkg/logger"
	"github.com/mkowalski/repochecker/pkg/metrics"
)

// Server wires the snapshot store to the route handlers and the
// websocket hub the scheduler pushes cycle-complete events through.
type Server struct {
	snap    *snapshot.Store
	metrics *metrics.Registry
	hub     *Hub
	limiter *RateLimiter
}

// New builds a Server. reg may be nil (metrics middleware becomes a no-op).
func New(snap *snapshot.Store, reg *metrics.Registry) *Server {
	return &Server{
		snap:    snap,
		metrics: reg,
		hub:     newHub(),
		limiter: NewRateLimiter(600, 60),
	}
}

// Hub exposes the websocket hub as a scheduler.EventSink (structurally —
// this package never imports internal/scheduler to avoid a cycle).
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router assembles the route table and middleware stack: logging, rate
// limiting, and Prometheus HTTP metrics, in that order, grounded on the
// teacher's internal/api.Router middleware ordering.
func (s *Server) Router(log *slog.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(logger.LoggingMiddleware(log))
	r.Use(s.limiter.Middleware)
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/data/{release}", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	r.HandleFunc("/overrides", s.handleOverrides).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/ws/events", s.hub.ServeWS).Methods(http.MethodGet)

	r.HandleFunc("/swagger/doc.json", serveSwaggerDoc).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.NotFoundHandler = http.HandlerFunc(handleNotFound)

	return r
}
