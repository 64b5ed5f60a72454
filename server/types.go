package server

import (
	"time"

	"github.com/sharanvkt/insane-dashboard-v2/access"
	"github.com/sharanvkt/insane-dashboard-v2/dashboard"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
)

// DomainListResponse is returned by GET /api/domains
type DomainListResponse struct {
	Domains []*domain.Domain `json:"domains"`
	Count   int              `json:"count"`
}

// EditDomainResponse is returned by PATCH /api/domains/{id}
type EditDomainResponse struct {
	Domain  *domain.Domain  `json:"domain"`
	Changes history.Changes `json:"changes"`
	Changed bool            `json:"changed"`
}

// ScheduleListResponse is returned by the schedule list endpoints
type ScheduleListResponse struct {
	Schedules []*schedule.ScheduledUpdate `json:"schedules"`
	Count     int                         `json:"count"`
}

// UpcomingResponse is returned by GET /api/schedules/upcoming
type UpcomingResponse struct {
	Schedules []dashboard.UpcomingSchedule `json:"schedules"`
	Count     int                          `json:"count"`
}

// HistoryEntryView is a history entry with its display rendering.
type HistoryEntryView struct {
	history.Entry
	Formatted []history.FormattedChange `json:"formatted"`
	Relative  string                    `json:"relative"`
}

// HistoryResponse is returned by GET /api/domains/{id}/history
type HistoryResponse struct {
	DomainID string             `json:"domainId"`
	Entries  []HistoryEntryView `json:"entries"`
	Count    int                `json:"count"`
}

// AccessResponse is returned by GET /api/access/me
type AccessResponse struct {
	Identity string       `json:"identity"`
	Role     access.Role  `json:"role"`
	Scope    access.Scope `json:"scope"`
	Domains  []string     `json:"domains"`
	Source   string       `json:"source"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Commit       string    `json:"commit"`
	EventClients int       `json:"eventClients"`
	EventDrops   int64     `json:"eventDrops"`
	Time         time.Time `json:"time"`
}
