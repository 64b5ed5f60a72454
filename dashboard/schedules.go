package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sharanvkt/insane-dashboard-v2/access"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
)

// ScheduleRequest asks for a deferred or recurring update.
type ScheduleRequest struct {
	Kind       schedule.Kind        `json:"scheduleType"`
	ExecuteAt  time.Time            `json:"executeAt"`
	Recurrence *schedule.Recurrence `json:"recurrence,omitempty"`
	Updates    domain.Update        `json:"updates"`
}

// UpcomingSchedule is a pending schedule with its domain's display data.
type UpcomingSchedule struct {
	*schedule.ScheduledUpdate
	DomainName string `json:"domainName"`
	DomainURL  string `json:"domainUrl"`
}

// ScheduleUpdate validates and persists req for domainID.
// An omitted recurrence interval means 1.
func (s *Service) ScheduleUpdate(ctx context.Context, actor, domainID string, req ScheduleRequest) (*schedule.ScheduledUpdate, error) {
	if _, err := s.loadAuthorized(ctx, s.db, actor, domainID); err != nil {
		return nil, err
	}
	if req.Updates.IsEmpty() {
		return nil, errors.NewValidationError("At least one field must be updated")
	}
	updates, err := req.Updates.Normalize()
	if err != nil {
		return nil, err
	}

	rec := req.Recurrence
	if rec != nil && rec.Interval == 0 {
		rec = &schedule.Recurrence{Unit: rec.Unit, Interval: 1}
	}
	now := s.clock()
	if err := schedule.Validate(req.Kind, req.ExecuteAt, rec, now); err != nil {
		return nil, err
	}

	u := &schedule.ScheduledUpdate{
		ID:         uuid.NewString(),
		DomainID:   domainID,
		Updates:    updates,
		Kind:       req.Kind,
		ExecuteAt:  req.ExecuteAt.UTC(),
		Status:     schedule.StatusPending,
		Recurrence: rec,
		CreatedBy:  actor,
		CreatedAt:  now,
	}
	if err := schedule.NewStore(s.db).Create(ctx, u); err != nil {
		return nil, err
	}

	s.recordSchedule(ctx, u, actor, history.FieldScheduleCreated, history.ActionScheduleCreate)
	logger.AddPulseSymbol(s.logger).Infow("Update scheduled",
		logger.FieldScheduleID, u.ID,
		logger.FieldDomainID, domainID,
		logger.FieldExecuteAt, u.ExecuteAt.Format(time.RFC3339),
		logger.FieldActor, actor)
	s.scheduleChanged(EventScheduleCreated, u)
	return u, nil
}

// CancelSchedule cancels a pending schedule and returns it in its final
// state. Cancelling a record that already left pending is not an error;
// the record is returned as it is.
func (s *Service) CancelSchedule(ctx context.Context, actor, scheduleID string) (*schedule.ScheduledUpdate, error) {
	store := schedule.NewStore(s.db)
	u, err := store.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeSchedule(ctx, actor, u); err != nil {
		return nil, err
	}
	if u.Status.Terminal() {
		s.logger.Infow("Schedule already left pending",
			logger.FieldScheduleID, scheduleID, logger.FieldStatus, string(u.Status))
		return u, nil
	}

	cancelled, err := store.Cancel(ctx, scheduleID, s.clock())
	if err != nil {
		return nil, err
	}
	final, err := store.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		s.logger.Infow("Schedule already left pending",
			logger.FieldScheduleID, scheduleID, logger.FieldStatus, string(final.Status))
		return final, nil
	}

	s.recordSchedule(ctx, final, actor, history.FieldScheduleCancelled, history.ActionScheduleCancel)
	s.scheduleChanged(EventScheduleCancelled, final)
	return final, nil
}

// authorizeSchedule checks access through the schedule's domain. A schedule
// whose domain is gone needs organization-wide access.
func (s *Service) authorizeSchedule(ctx context.Context, actor string, u *schedule.ScheduledUpdate) error {
	name, err := domain.NewStore(s.db).NameOf(ctx, u.DomainID)
	if err == nil {
		return s.authorize(actor, name)
	}
	if !errors.IsNotFoundError(err) {
		return err
	}
	if s.access.Resolve(actor).Scope != access.ScopeAll {
		return errors.NewAccessDeniedError("%s may not manage orphaned schedule %s", actor, u.ID)
	}
	return nil
}

// ListSchedules returns the pending schedules of one domain, soonest first.
func (s *Service) ListSchedules(ctx context.Context, actor, domainID string) ([]*schedule.ScheduledUpdate, error) {
	if _, err := s.loadAuthorized(ctx, s.db, actor, domainID); err != nil {
		return nil, err
	}
	return schedule.NewStore(s.db).ListPendingForDomain(ctx, domainID)
}

// UpcomingSchedules returns pending schedules across every domain the
// caller may see, soonest first.
func (s *Service) UpcomingSchedules(ctx context.Context, actor string) ([]UpcomingSchedule, error) {
	domains, err := s.ListDomains(ctx, actor)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Domain, len(domains))
	for _, d := range domains {
		byID[d.ID] = d
	}

	pending, err := schedule.NewStore(s.db).ListPending(ctx)
	if err != nil {
		return nil, err
	}

	upcoming := make([]UpcomingSchedule, 0, len(pending))
	for _, u := range pending {
		d, ok := byID[u.DomainID]
		if !ok {
			continue
		}
		upcoming = append(upcoming, UpcomingSchedule{ScheduledUpdate: u, DomainName: d.Name, DomainURL: d.URL})
	}
	return upcoming, nil
}

// History returns a domain's audit trail, newest first.
func (s *Service) History(ctx context.Context, actor, domainID string) ([]history.Entry, error) {
	return s.recorder.Fetch(ctx, domainID, actor)
}

func (s *Service) recordSchedule(ctx context.Context, u *schedule.ScheduledUpdate, actor, field string, action history.Action) {
	payload := history.SchedulePayload{
		Type:      string(u.Kind),
		ExecuteAt: u.ExecuteAt,
		Updates:   fieldList(u.Updates),
	}
	if u.Recurrence != nil {
		payload.Recurrence = u.Recurrence.String()
	}
	changes, err := history.PayloadChange(field, payload, true)
	if err != nil {
		s.logger.Warnw("Failed to encode schedule payload", logger.FieldScheduleID, u.ID, logger.FieldError, err)
		return
	}
	s.recorder.RecordBestEffort(ctx, u.DomainID, changes, actor, action)
}
