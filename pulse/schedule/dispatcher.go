package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sharanvkt/insane-dashboard-v2/db"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
)

// SchedulerActor is written to domain.updatedBy by scheduled applications.
const SchedulerActor = "scheduled_update"

// HistoryActor is the history actor for an application of a record created by creator.
func HistoryActor(creator string) string {
	if creator == "" {
		creator = "unknown"
	}
	return fmt.Sprintf("%s (created by %s)", SchedulerActor, creator)
}

// Broadcaster receives schedule outcomes, e.g. to push them to live clients.
// This avoids a dependency from schedule on the server package.
type Broadcaster interface {
	ScheduleApplied(u *ScheduledUpdate, changes history.Changes)
	ScheduleFailed(u *ScheduledUpdate, reason string)
}

// DispatcherConfig tunes one dispatcher.
type DispatcherConfig struct {
	BatchSize int           // max records per tick, 0 = unlimited
	LeaseTTL  time.Duration // how long a claim blocks other ticks
	WorkerID  string        // lease owner, DefaultWorkerID() if empty
}

// DefaultWorkerID returns hostname:pid:random, unique per process.
func DefaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d:%s", host, os.Getpid(), strings.Split(uuid.NewString(), "-")[0])
}

// TickReport summarises one tick.
type TickReport struct {
	Due         int           `json:"due"`
	Completed   int           `json:"completed"`
	Rescheduled int           `json:"rescheduled"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"` // lease held elsewhere or no longer due
	Dropped     int           `json:"dropped"` // lost a race, e.g. cancelled mid-apply
	Errored     int           `json:"errored"` // left pending for the next tick
	Duration    time.Duration `json:"duration"`
}

// Applied is the number of records whose update reached the domain.
func (r TickReport) Applied() int {
	return r.Completed + r.Rescheduled
}

type outcome string

const (
	outcomeCompleted   outcome = "completed"
	outcomeRescheduled outcome = "rescheduled"
	outcomeFailed      outcome = "failed"
	outcomeSkipped     outcome = "skipped"
	outcomeDropped     outcome = "dropped"
	outcomeErrored     outcome = "errored"
)

// Dispatcher applies due scheduled updates. It keeps no state between ticks.
type Dispatcher struct {
	db          db.Database
	recorder    *history.Recorder
	broadcaster Broadcaster
	cfg         DispatcherConfig
	logger      *zap.SugaredLogger
	pulseLog    *zap.SugaredLogger
}

// NewDispatcher creates a dispatcher. recorder may be nil to skip history.
func NewDispatcher(database db.Database, recorder *history.Recorder, cfg DispatcherConfig, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = logger.ComponentLogger("pulse")
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = DefaultWorkerID()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 2 * time.Minute
	}
	return &Dispatcher{
		db:       database,
		recorder: recorder,
		cfg:      cfg,
		logger:   log,
		pulseLog: logger.AddPulseSymbol(log),
	}
}

// SetBroadcaster registers b for schedule outcomes.
func (d *Dispatcher) SetBroadcaster(b Broadcaster) {
	d.broadcaster = b
}

// WorkerID returns the lease owner used by this dispatcher.
func (d *Dispatcher) WorkerID() string {
	return d.cfg.WorkerID
}

// Tick processes every pending record due at now. Each record is handled in
// isolation: an error or panic on one never stops the others. Outcomes are
// side effects in the store; the report is informational.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) TickReport {
	start := time.Now()
	var report TickReport
	defer func() {
		report.Duration = time.Since(start)
		tickDuration.Observe(report.Duration.Seconds())
		ticksTotal.Inc()
	}()

	due, err := NewStore(d.db).ListDue(ctx, now, d.cfg.WorkerID, d.cfg.BatchSize)
	if err != nil {
		logStoreError(d.pulseLog, "Failed to list due schedules", err)
		report.Errored++
		return report
	}
	report.Due = len(due)
	if len(due) == 0 {
		d.logger.Debugw("No scheduled updates due")
		return report
	}

	d.pulseLog.Infow("Processing scheduled updates",
		logger.FieldCount, len(due),
		logger.FieldWorkerID, d.cfg.WorkerID)

	for _, u := range due {
		if ctx.Err() != nil {
			break
		}
		switch d.processOne(ctx, u, now) {
		case outcomeCompleted:
			report.Completed++
		case outcomeRescheduled:
			report.Rescheduled++
		case outcomeFailed:
			report.Failed++
		case outcomeSkipped:
			report.Skipped++
		case outcomeDropped:
			report.Dropped++
		case outcomeErrored:
			report.Errored++
		}
	}

	d.pulseLog.Infow("Scheduled updates processed",
		"completed", report.Completed,
		"rescheduled", report.Rescheduled,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"dropped", report.Dropped,
		"errored", report.Errored)
	return report
}

func (d *Dispatcher) processOne(ctx context.Context, u *ScheduledUpdate, now time.Time) (result outcome) {
	log := d.pulseLog.With(logger.FieldScheduleID, u.ID, logger.FieldDomainID, u.DomainID)

	defer func() {
		if p := recover(); p != nil {
			log.Errorw("Panic while applying scheduled update", "panic", p)
			result = outcomeErrored
		}
		processedTotal.WithLabelValues(string(result)).Inc()
	}()

	claimed, err := NewStore(d.db).Claim(ctx, u.ID, d.cfg.WorkerID, now, d.cfg.LeaseTTL)
	if err != nil {
		logStoreError(log, "Failed to claim scheduled update", err)
		return outcomeErrored
	}
	if !claimed {
		log.Debugw("Scheduled update claimed elsewhere or no longer due")
		return outcomeSkipped
	}

	changes, next, err := d.apply(ctx, u, now)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrNotPending):
		log.Infow("Scheduled update left pending before it could be applied")
		return outcomeDropped
	case errors.IsApplyFailure(err):
		return d.fail(ctx, u, now, err, log)
	default:
		logStoreError(log, "Failed to apply scheduled update, will retry next tick", err)
		return outcomeErrored
	}

	if d.recorder != nil {
		d.recorder.RecordBestEffortAt(ctx, now, u.DomainID, changes, HistoryActor(u.CreatedBy), history.ActionScheduledUpdate)
	}
	if d.broadcaster != nil {
		d.broadcaster.ScheduleApplied(applied(u, now, next), changes)
	}

	if next != nil {
		log.Infow("Recurring update applied", logger.FieldNextRun, next.Format(time.RFC3339), "changed", len(changes))
		return outcomeRescheduled
	}
	log.Infow("One-time update completed", "changed", len(changes))
	return outcomeCompleted
}

// apply merges the update into the domain and runs the guarded transition
// in one transaction. It returns the diff and, for recurring records, the
// next execution time.
func (d *Dispatcher) apply(ctx context.Context, u *ScheduledUpdate, now time.Time) (history.Changes, *time.Time, error) {
	if u.decodeErr != nil {
		return nil, nil, u.decodeErr
	}

	var changes history.Changes
	var next *time.Time
	err := db.WithTxContext(ctx, d.db, func(tx *sql.Tx) error {
		target, err := domain.NewStore(tx).Get(ctx, u.DomainID)
		if err != nil {
			if errors.IsNotFoundError(err) {
				return errors.NewApplyFailure("Domain %s not found", u.DomainID)
			}
			return err
		}

		before := target.Snapshot()
		merged := u.Updates.Apply(before)
		changes = history.ComputeDiff(before, merged)

		target.SetSnapshot(merged)
		target.LastUpdated = now
		target.UpdatedBy = SchedulerActor
		if err := domain.NewStore(tx).Save(ctx, target); err != nil {
			return err
		}

		store := NewStore(tx)
		if u.Kind != KindRecurring {
			return store.Complete(ctx, u.ID, d.cfg.WorkerID, now)
		}

		at, _, err := u.NextExecution()
		if err != nil {
			return errors.WrapApplyFailure(err, "compute next execution")
		}
		if err := store.Reschedule(ctx, u.ID, d.cfg.WorkerID, at, now); err != nil {
			return err
		}
		next = &at
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return changes, next, nil
}

func (d *Dispatcher) fail(ctx context.Context, u *ScheduledUpdate, now time.Time, cause error, log *zap.SugaredLogger) outcome {
	reason := cause.Error()
	err := NewStore(d.db).Fail(ctx, u.ID, d.cfg.WorkerID, now, reason)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrNotPending):
		return outcomeDropped
	default:
		log.Errorw("Failed to mark scheduled update failed", logger.FieldError, err)
		return outcomeErrored
	}

	log.Warnw("Scheduled update failed", logger.FieldError, reason)
	if d.broadcaster != nil {
		failed := *u
		failed.Status = StatusFailed
		failed.FailedAt = &now
		failed.Error = reason
		d.broadcaster.ScheduleFailed(&failed, reason)
	}
	return outcomeFailed
}

// applied returns u as stored after a successful apply at now.
func applied(u *ScheduledUpdate, now time.Time, next *time.Time) *ScheduledUpdate {
	out := *u
	if next != nil {
		out.ExecuteAt = *next
		out.LastExecuted = &now
		return &out
	}
	out.Status = StatusCompleted
	out.CompletedAt = &now
	return &out
}

// logStoreError logs a store error that leaves work for the next tick.
// Lock contention and shutdown are expected and logged below warn.
func logStoreError(log *zap.SugaredLogger, msg string, err error) {
	switch {
	case db.IsDatabaseClosed(err):
		log.Debugw(msg+" (database closed)", logger.FieldError, err)
	case db.IsBusy(err):
		log.Infow(msg+" (database busy)", logger.FieldError, err)
	default:
		log.Warnw(msg, logger.FieldError, err)
	}
}
