package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sharanvkt/insane-dashboard-v2/db"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
)

// DomainLookup resolves a domain id to its display name.
// A missing domain must be reported with errors.ErrNotFound.
type DomainLookup interface {
	NameOf(ctx context.Context, domainID string) (string, error)
}

// AccessChecker decides whether an identity may see a domain.
type AccessChecker interface {
	CanAccess(identity, domainName string) bool
}

// Listener is told about every entry written by a Recorder.
type Listener interface {
	HistoryRecorded(e Entry)
}

// Recorder writes and reads history entries.
type Recorder struct {
	store    *Store
	lookup   DomainLookup
	access   AccessChecker
	listener Listener
	logger   *zap.SugaredLogger
	clock    func() time.Time
}

// NewRecorder creates a recorder persisting through q.
func NewRecorder(q db.Querier, lookup DomainLookup, checker AccessChecker, log *zap.SugaredLogger) *Recorder {
	if log == nil {
		log = logger.ComponentLogger("history")
	}
	return &Recorder{
		store:  NewStore(q),
		lookup: lookup,
		access: checker,
		logger: log,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// SetListener registers l for entries written by this recorder.
func (r *Recorder) SetListener(l Listener) {
	r.listener = l
}

// WithQuerier returns a recorder that writes through q, typically a
// transaction. It has no listener: the caller announces entries once the
// transaction commits.
func (r *Recorder) WithQuerier(q db.Querier) *Recorder {
	cp := *r
	cp.store = NewStore(q)
	cp.listener = nil
	return &cp
}

// Record appends an entry for changes. Empty changes write nothing and
// return (nil, nil). A store failure is an errors.ErrPersistence.
func (r *Recorder) Record(ctx context.Context, domainID string, changes Changes, actor string, action Action) (*Entry, error) {
	return r.RecordAt(ctx, r.clock(), domainID, changes, actor, action)
}

// RecordAt is Record with an explicit timestamp, for writers that stamp
// the domain with their own clock.
func (r *Recorder) RecordAt(ctx context.Context, at time.Time, domainID string, changes Changes, actor string, action Action) (*Entry, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	if !action.Valid() {
		return nil, errors.NewValidationErrorf("Unknown history action %q", action)
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		DomainID:  domainID,
		Changes:   changes,
		UpdatedBy: actor,
		Action:    action,
		UpdatedAt: at.UTC(),
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		return nil, errors.WrapPersistence(err, "record history")
	}

	entriesRecorded.WithLabelValues(string(action)).Inc()
	if r.listener != nil {
		r.listener.HistoryRecorded(*entry)
	}
	return entry, nil
}

// RecordBestEffort is Record for primary paths: a failure is logged,
// counted and swallowed.
func (r *Recorder) RecordBestEffort(ctx context.Context, domainID string, changes Changes, actor string, action Action) *Entry {
	return r.RecordBestEffortAt(ctx, r.clock(), domainID, changes, actor, action)
}

// RecordBestEffortAt is RecordBestEffort with an explicit timestamp.
func (r *Recorder) RecordBestEffortAt(ctx context.Context, at time.Time, domainID string, changes Changes, actor string, action Action) *Entry {
	entry, err := r.RecordAt(ctx, at, domainID, changes, actor, action)
	if err != nil {
		writeFailures.WithLabelValues(string(action)).Inc()
		logger.AddHistorySymbol(logger.FromContext(ctx, r.logger)).Errorw("Failed to record history",
			logger.FieldDomainID, domainID,
			logger.FieldAction, string(action),
			logger.FieldActor, actor,
			logger.FieldError, err)
		return nil
	}
	return entry
}

// Fetch returns the history of domainID, newest first, if requester may
// see the domain. Denial returns errors.ErrAccessDenied and no entries.
func (r *Recorder) Fetch(ctx context.Context, domainID, requester string) ([]Entry, error) {
	if r.lookup == nil || r.access == nil {
		return nil, errors.New("history recorder has no domain lookup or access checker")
	}

	name, err := r.lookup.NameOf(ctx, domainID)
	if err != nil {
		return nil, errors.WrapPersistence(err, "resolve domain for history")
	}
	if !r.access.CanAccess(requester, name) {
		return nil, errors.NewAccessDeniedError("%s may not view history of %s", requester, name)
	}

	entries, err := r.store.ListForDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
