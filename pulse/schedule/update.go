// Package schedule implements deferred and recurring domain updates.
//
// A ScheduledUpdate carries a sparse domain.Update and an execution time.
// The Dispatcher applies due records on each Tick; the Ticker drives Tick on
// a cron cadence. All state between ticks lives in the store.
package schedule

import (
	"fmt"
	"time"

	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

// Kind is the schedule type.
type Kind string

const (
	KindOnce      Kind = "once"
	KindRecurring Kind = "recurring"
)

// Status is the lifecycle state of a scheduled update.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Unit is the recurrence step.
type Unit string

const (
	UnitDaily   Unit = "daily"
	UnitWeekly  Unit = "weekly"
	UnitMonthly Unit = "monthly"
)

// Recurrence describes how a recurring schedule advances.
type Recurrence struct {
	Unit     Unit `json:"type"`
	Interval int  `json:"interval"`
}

// String renders the recurrence for display, e.g. "every 2 weeks".
func (r *Recurrence) String() string {
	if r == nil {
		return "none"
	}
	noun := map[Unit]string{UnitDaily: "day", UnitWeekly: "week", UnitMonthly: "month"}[r.Unit]
	if noun == "" {
		noun = string(r.Unit)
	}
	if r.Interval <= 1 {
		return "every " + noun
	}
	return fmt.Sprintf("every %d %ss", r.Interval, noun)
}

// Next advances from by one recurrence step.
// Monthly steps use time.AddDate, so a day-of-month that does not exist in
// the target month overflows into the next one (Jan 31 + 1 month = Mar 3).
func (r *Recurrence) Next(from time.Time) (time.Time, error) {
	if r == nil {
		return time.Time{}, errors.New("recurrence is nil")
	}
	if r.Interval < 1 {
		return time.Time{}, errors.Newf("recurrence interval must be at least 1, got %d", r.Interval)
	}
	switch r.Unit {
	case UnitDaily:
		return from.AddDate(0, 0, r.Interval), nil
	case UnitWeekly:
		return from.AddDate(0, 0, 7*r.Interval), nil
	case UnitMonthly:
		return from.AddDate(0, r.Interval, 0), nil
	}
	return time.Time{}, errors.Newf("unsupported recurrence type %q", r.Unit)
}

// ScheduledUpdate is a deferred instruction to merge Updates into a domain.
type ScheduledUpdate struct {
	ID           string        `json:"id"`
	DomainID     string        `json:"domainId"`
	Updates      domain.Update `json:"updates"`
	Kind         Kind          `json:"scheduleType"`
	ExecuteAt    time.Time     `json:"executeAt"`
	Status       Status        `json:"status"`
	Recurrence   *Recurrence   `json:"recurrence,omitempty"`
	CreatedBy    string        `json:"createdBy"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastExecuted *time.Time    `json:"lastExecuted,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
	CancelledAt  *time.Time    `json:"cancelledAt,omitempty"`
	FailedAt     *time.Time    `json:"failedAt,omitempty"`
	Error        string        `json:"error,omitempty"`

	decodeErr error
}

// NextExecution returns when a recurring record runs after its current
// executeAt. Once-kind records have no next execution.
func (u *ScheduledUpdate) NextExecution() (time.Time, bool, error) {
	if u.Kind != KindRecurring {
		return time.Time{}, false, nil
	}
	next, err := u.Recurrence.Next(u.ExecuteAt)
	if err != nil {
		return time.Time{}, false, err
	}
	return next, true, nil
}

// Validate checks schedule parameters before anything is persisted.
func Validate(kind Kind, executeAt time.Time, recurrence *Recurrence, now time.Time) error {
	if !executeAt.After(now) {
		return errors.NewValidationError("Execution time must be in the future")
	}

	switch kind {
	case KindOnce:
		if recurrence != nil {
			return errors.NewValidationError("One-time schedules cannot have a recurrence")
		}
	case KindRecurring:
		if recurrence == nil || recurrence.Unit == "" {
			return errors.NewValidationError("Recurrence type is required for recurring schedules")
		}
		switch recurrence.Unit {
		case UnitDaily, UnitWeekly, UnitMonthly:
		default:
			return errors.NewValidationError("Invalid recurrence type")
		}
		if recurrence.Interval < 1 {
			return errors.NewValidationError("Recurrence interval must be at least 1")
		}
	default:
		return errors.NewValidationErrorf("Invalid schedule type %q", kind)
	}
	return nil
}
