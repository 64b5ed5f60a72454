package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes builds the handler tree:
//
//	request id -> panic recovery -> CORS -> mux
//
// API routes additionally go through the identity check and rate limiter.
// Every route is instrumented under its pattern.
func (s *DashboardServer) routes() http.Handler {
	api := http.NewServeMux()
	s.handle(api, "GET /api/domains", s.handleListDomains)
	s.handle(api, "POST /api/domains", s.handleCreateDomain)
	s.handle(api, "GET /api/domains/{id}", s.handleGetDomain)
	s.handle(api, "PATCH /api/domains/{id}", s.handleEditDomain)
	s.handle(api, "DELETE /api/domains/{id}", s.handleDeleteDomain)
	s.handle(api, "GET /api/domains/{id}/history", s.handleHistory)
	s.handle(api, "GET /api/domains/{id}/schedules", s.handleListSchedules)
	s.handle(api, "POST /api/domains/{id}/schedules", s.handleCreateSchedule)
	s.handle(api, "GET /api/schedules/upcoming", s.handleUpcoming)
	s.handle(api, "POST /api/schedules/{id}/cancel", s.handleCancelSchedule)
	s.handle(api, "GET /api/access/me", s.handleAccessMe)
	s.handle(api, "GET /api/events", s.handleEvents)

	root := http.NewServeMux()
	root.Handle("/api/", s.requireIdentity(s.rateLimit(api)))
	root.Handle("GET /healthz", s.instrument("GET /healthz", http.HandlerFunc(s.handleHealth)))
	root.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = root
	h = s.corsHandler().Handler(h)
	h = s.recoverPanics(h)
	h = withRequestID(h)
	return h
}

func (s *DashboardServer) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}
