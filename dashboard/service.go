// Package dashboard orchestrates domain edits, scheduling and history on
// behalf of an authenticated caller. Every operation takes the caller's
// identity and checks it against the permission resolver before touching
// any record.
package dashboard

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sharanvkt/insane-dashboard-v2/access"
	"github.com/sharanvkt/insane-dashboard-v2/db"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
)

// Domain and schedule event names passed to Events.
const (
	EventDomainCreated     = "domain_created"
	EventDomainUpdated     = "domain_updated"
	EventDomainDeleted     = "domain_deleted"
	EventScheduleCreated   = "schedule_created"
	EventScheduleCancelled = "schedule_cancelled"
)

// Events is notified after a mutation commits.
type Events interface {
	history.Listener
	DomainChanged(event string, d *domain.Domain)
	ScheduleChanged(event string, u *schedule.ScheduledUpdate)
}

// Service is the dashboard's application layer.
type Service struct {
	db       db.Database
	access   access.Checker
	recorder *history.Recorder
	events   Events
	clock    func() time.Time
	logger   *zap.SugaredLogger
}

// NewService wires a service. recorder must persist to the same database.
func NewService(database db.Database, checker access.Checker, recorder *history.Recorder, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = logger.ComponentLogger("dashboard")
	}
	return &Service{
		db:       database,
		access:   checker,
		recorder: recorder,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   log,
	}
}

// SetEvents registers e for post-commit notifications, including the
// entries written by the service's recorder.
func (s *Service) SetEvents(e Events) {
	s.events = e
	s.recorder.SetListener(e)
}

// Access returns the caller's resolved permissions.
func (s *Service) Access(actor string) access.Resolution {
	return s.access.Resolve(actor)
}

func (s *Service) authorize(actor, domainName string) error {
	if !s.access.CanAccess(actor, domainName) {
		return errors.NewAccessDeniedError("%s may not access domain %q", actor, domainName)
	}
	return nil
}

// loadAuthorized reads a domain and checks the caller may see it.
func (s *Service) loadAuthorized(ctx context.Context, q db.Querier, actor, id string) (*domain.Domain, error) {
	d, err := domain.NewStore(q).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, d.Name); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateDomain adds a domain from fields, which must include name and url.
func (s *Service) CreateDomain(ctx context.Context, actor string, fields domain.Update) (*domain.Domain, error) {
	if _, ok := fields.Get(domain.FieldName); !ok {
		return nil, errors.NewValidationError("Domain name is required")
	}
	if _, ok := fields.Get(domain.FieldURL); !ok {
		return nil, errors.NewValidationError("Domain URL is required")
	}
	normalized, err := fields.Normalize()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	d := &domain.Domain{
		ID:          uuid.NewString(),
		LastUpdated: now,
		UpdatedBy:   actor,
		CreatedAt:   now,
	}
	d.SetSnapshot(normalized.Apply(domain.Snapshot{}))

	if err := s.authorize(actor, d.Name); err != nil {
		return nil, err
	}
	if err := domain.NewStore(s.db).Create(ctx, d); err != nil {
		return nil, err
	}

	if changes, err := history.PayloadChange(history.FieldCreation, history.NewDomainPayload(d), true); err == nil {
		s.recorder.RecordBestEffort(ctx, d.ID, changes, actor, history.ActionCreate)
	}
	s.logger.Infow("Domain created", logger.FieldDomainID, d.ID, logger.FieldDomainName, d.Name, logger.FieldActor, actor)
	s.domainChanged(EventDomainCreated, d)
	return d, nil
}

// ListDomains returns the domains the caller may see, ordered by name.
func (s *Service) ListDomains(ctx context.Context, actor string) ([]*domain.Domain, error) {
	all, err := domain.NewStore(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]*domain.Domain, 0, len(all))
	for _, d := range all {
		if s.access.CanAccess(actor, d.Name) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// GetDomain returns one domain.
func (s *Service) GetDomain(ctx context.Context, actor, id string) (*domain.Domain, error) {
	return s.loadAuthorized(ctx, s.db, actor, id)
}

// EditDomain applies update immediately. An edit that changes nothing
// (after trimming) writes neither the domain nor history and returns the
// domain unchanged with an empty diff.
func (s *Service) EditDomain(ctx context.Context, actor, id string, update domain.Update) (*domain.Domain, history.Changes, error) {
	normalized, err := update.Normalize()
	if err != nil {
		return nil, nil, err
	}

	var result *domain.Domain
	var changes history.Changes
	err = db.WithTxContext(ctx, s.db, func(tx *sql.Tx) error {
		d, err := s.loadAuthorized(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		before := d.Snapshot()
		merged := normalized.Apply(before)
		changes = history.ComputeDiff(before, merged)
		result = d
		if len(changes) == 0 {
			return nil
		}

		d.SetSnapshot(merged)
		// a rename must land on a name the caller can still access
		if err := s.authorize(actor, d.Name); err != nil {
			return err
		}
		d.LastUpdated = s.clock()
		d.UpdatedBy = actor
		return domain.NewStore(tx).Save(ctx, d)
	})
	if err != nil {
		return nil, nil, err
	}

	if len(changes) == 0 {
		s.logger.Debugw("Edit changed nothing", logger.FieldDomainID, id, logger.FieldActor, actor)
		return result, changes, nil
	}

	s.recorder.RecordBestEffort(ctx, id, changes, actor, history.ActionUpdate)
	s.domainChanged(EventDomainUpdated, result)
	return result, changes, nil
}

// DeleteDomain removes a domain. The final history entry, the cancellation
// of its pending schedules and the delete commit together or not at all.
func (s *Service) DeleteDomain(ctx context.Context, actor, id string) error {
	var deleted *domain.Domain
	var entry *history.Entry
	err := db.WithTxContext(ctx, s.db, func(tx *sql.Tx) error {
		d, err := s.loadAuthorized(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		changes, err := history.PayloadChange(history.FieldDeletion, history.NewDomainPayload(d), false)
		if err != nil {
			return errors.Wrap(err, "encode deletion payload")
		}
		if entry, err = s.recorder.WithQuerier(tx).Record(ctx, id, changes, actor, history.ActionDelete); err != nil {
			return err
		}

		cancelled, err := schedule.NewStore(tx).CancelPendingForDomain(ctx, id, s.clock())
		if err != nil {
			return err
		}
		if cancelled > 0 {
			s.logger.Infow("Cancelled pending schedules of deleted domain", logger.FieldDomainID, id, logger.FieldCount, cancelled)
		}

		deleted = d
		return domain.NewStore(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Infow("Domain deleted", logger.FieldDomainID, id, logger.FieldDomainName, deleted.Name, logger.FieldActor, actor)
	if s.events != nil && entry != nil {
		s.events.HistoryRecorded(*entry)
	}
	s.domainChanged(EventDomainDeleted, deleted)
	return nil
}

func (s *Service) domainChanged(event string, d *domain.Domain) {
	if s.events != nil {
		s.events.DomainChanged(event, d)
	}
}

func (s *Service) scheduleChanged(event string, u *schedule.ScheduledUpdate) {
	if s.events != nil {
		s.events.ScheduleChanged(event, u)
	}
}

func fieldList(u domain.Update) string {
	fields := u.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
