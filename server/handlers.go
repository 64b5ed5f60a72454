package server

import (
	"net/http"

	"github.com/sharanvkt/insane-dashboard-v2/dashboard"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
	"github.com/sharanvkt/insane-dashboard-v2/version"
)

func (s *DashboardServer) respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	logWriteErr(logger.FromContext(r.Context(), s.logger), writeJSON(w, status, data))
}

// GET /api/domains
func (s *DashboardServer) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.service.ListDomains(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, DomainListResponse{Domains: domains, Count: len(domains)})
}

// POST /api/domains
func (s *DashboardServer) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	var fields domain.Update
	if err := readJSON(r, &fields); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	d, err := s.service.CreateDomain(r.Context(), identityFrom(r.Context()), fields)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, d)
}

// GET /api/domains/{id}
func (s *DashboardServer) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.GetDomain(r.Context(), identityFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, d)
}

// PATCH /api/domains/{id}
func (s *DashboardServer) handleEditDomain(w http.ResponseWriter, r *http.Request) {
	var update domain.Update
	if err := readJSON(r, &update); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	d, changes, err := s.service.EditDomain(r.Context(), identityFrom(r.Context()), r.PathValue("id"), update)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if changes == nil {
		changes = history.Changes{}
	}
	s.respond(w, r, http.StatusOK, EditDomainResponse{Domain: d, Changes: changes, Changed: len(changes) > 0})
}

// DELETE /api/domains/{id}
func (s *DashboardServer) handleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteDomain(r.Context(), identityFrom(r.Context()), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/domains/{id}/history
func (s *DashboardServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entries, err := s.service.History(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	now := s.clock()
	views := make([]HistoryEntryView, len(entries))
	for i, e := range entries {
		views[i] = HistoryEntryView{
			Entry:     e,
			Formatted: history.FormatChanges(e.Changes),
			Relative:  history.RelativeTime(now, e.UpdatedAt),
		}
	}
	s.respond(w, r, http.StatusOK, HistoryResponse{DomainID: id, Entries: views, Count: len(views)})
}

// GET /api/domains/{id}/schedules
func (s *DashboardServer) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.service.ListSchedules(r.Context(), identityFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if schedules == nil {
		schedules = []*schedule.ScheduledUpdate{}
	}
	s.respond(w, r, http.StatusOK, ScheduleListResponse{Schedules: schedules, Count: len(schedules)})
}

// POST /api/domains/{id}/schedules
func (s *DashboardServer) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req dashboard.ScheduleRequest
	if err := readJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	u, err := s.service.ScheduleUpdate(r.Context(), identityFrom(r.Context()), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, u)
}

// GET /api/schedules/upcoming
func (s *DashboardServer) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	upcoming, err := s.service.UpcomingSchedules(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if upcoming == nil {
		upcoming = []dashboard.UpcomingSchedule{}
	}
	s.respond(w, r, http.StatusOK, UpcomingResponse{Schedules: upcoming, Count: len(upcoming)})
}

// POST /api/schedules/{id}/cancel
func (s *DashboardServer) handleCancelSchedule(w http.ResponseWriter, r *http.Request) {
	u, err := s.service.CancelSchedule(r.Context(), identityFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, u)
}

// GET /api/access/me
func (s *DashboardServer) handleAccessMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	res := s.service.Access(identity)
	s.respond(w, r, http.StatusOK, AccessResponse{
		Identity: identity,
		Role:     res.Role,
		Scope:    res.Scope,
		Domains:  res.DomainList(),
		Source:   res.Source,
	})
}

// GET /healthz
func (s *DashboardServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	s.respond(w, r, http.StatusOK, HealthResponse{
		Status:       "ok",
		Version:      info.Version,
		Commit:       info.Short(),
		EventClients: s.hub.ClientCount(),
		EventDrops:   s.hub.Drops(),
		Time:         s.clock().UTC(),
	})
}
