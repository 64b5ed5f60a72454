package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sharanvkt/insane-dashboard-v2/db"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

// Store handles persistence of scheduled updates.
//
// Every transition away from pending is a single guarded UPDATE that
// re-checks status = 'pending' (and, for dispatcher transitions, the
// caller's lease). A transition that loses a race affects zero rows and
// reports errors.ErrNotPending.
type Store struct {
	db db.Querier
}

// NewStore creates a schedule store over q, which may be a *sql.DB or a *sql.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

const updateColumns = `id, domain_id, updates, schedule_type, execute_at, status,
		       recurrence_unit, recurrence_interval, created_by, created_at,
		       last_executed, completed_at, cancelled_at, failed_at, error`

// Create inserts a new scheduled update.
func (s *Store) Create(ctx context.Context, u *ScheduledUpdate) error {
	updates, err := json.Marshal(u.Updates)
	if err != nil {
		return errors.Wrap(err, "failed to encode update set")
	}

	var unit, interval, errText interface{}
	if u.Recurrence != nil {
		unit = string(u.Recurrence.Unit)
		interval = u.Recurrence.Interval
	}
	if u.Error != "" {
		errText = u.Error
	}

	query := `
		INSERT INTO scheduled_updates (
			id, domain_id, updates, schedule_type, execute_at, status,
			recurrence_unit, recurrence_interval, created_by, created_at,
			last_executed, completed_at, cancelled_at, failed_at, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		u.ID,
		u.DomainID,
		string(updates),
		string(u.Kind),
		db.FormatTime(u.ExecuteAt),
		string(u.Status),
		unit,
		interval,
		u.CreatedBy,
		db.FormatTime(u.CreatedAt),
		db.NullTime(u.LastExecuted),
		db.NullTime(u.CompletedAt),
		db.NullTime(u.CancelledAt),
		db.NullTime(u.FailedAt),
		errText,
	)
	if err != nil {
		return errors.WrapPersistencef(err, "failed to create scheduled update %s", u.ID)
	}
	return nil
}

// Get retrieves a scheduled update by ID.
func (s *Store) Get(ctx context.Context, id string) (*ScheduledUpdate, error) {
	query := `SELECT ` + updateColumns + ` FROM scheduled_updates WHERE id = ?`

	u, err := scanUpdate(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("Schedule not found")
		}
		return nil, errors.WrapPersistencef(err, "failed to get scheduled update %s", id)
	}
	return u, nil
}

// ListPendingForDomain returns the pending records of one domain, soonest first.
func (s *Store) ListPendingForDomain(ctx context.Context, domainID string) ([]*ScheduledUpdate, error) {
	query := `
		SELECT ` + updateColumns + `
		FROM scheduled_updates
		WHERE domain_id = ? AND status = 'pending'
		ORDER BY execute_at ASC, id ASC
	`
	return s.list(ctx, query, domainID)
}

// ListPending returns every pending record, soonest first.
func (s *Store) ListPending(ctx context.Context) ([]*ScheduledUpdate, error) {
	query := `
		SELECT ` + updateColumns + `
		FROM scheduled_updates
		WHERE status = 'pending'
		ORDER BY execute_at ASC, id ASC
	`
	return s.list(ctx, query)
}

// ListDue returns pending records whose executeAt is at or before now and
// that owner could claim, oldest first. Records under another owner's live
// lease are skipped so they do not use up the limit. A limit of 0 means no
// limit.
func (s *Store) ListDue(ctx context.Context, now time.Time, owner string, limit int) ([]*ScheduledUpdate, error) {
	if limit <= 0 {
		limit = -1
	}
	nowStr := db.FormatTime(now)
	query := `
		SELECT ` + updateColumns + `
		FROM scheduled_updates
		WHERE status = 'pending' AND execute_at <= ?
		  AND (claimed_until IS NULL OR claimed_until <= ? OR claimed_by = ?)
		ORDER BY execute_at ASC, id ASC
		LIMIT ?
	`
	return s.list(ctx, query, nowStr, nowStr, owner, limit)
}

// NextDue returns the earliest pending executeAt, or nil if nothing is pending.
func (s *Store) NextDue(ctx context.Context) (*time.Time, error) {
	var next sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(execute_at) FROM scheduled_updates WHERE status = 'pending'`,
	).Scan(&next)
	if err != nil {
		return nil, errors.WrapPersistence(err, "failed to query next due schedule")
	}
	t, err := db.ParseNullTime(next)
	if err != nil {
		return nil, errors.WrapPersistence(err, "failed to parse next due schedule")
	}
	return t, nil
}

// Claim takes a lease on a due record for owner until now+ttl.
// It succeeds only while the record is pending, due, and not leased by
// another owner; an expired lease can be taken over.
func (s *Store) Claim(ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (bool, error) {
	nowStr := db.FormatTime(now)
	query := `
		UPDATE scheduled_updates
		SET claimed_by = ?, claimed_until = ?
		WHERE id = ?
		  AND status = 'pending'
		  AND execute_at <= ?
		  AND (claimed_by IS NULL OR claimed_by = ? OR claimed_until IS NULL OR claimed_until <= ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		owner,
		db.FormatTime(now.Add(ttl)),
		id,
		nowStr,
		owner,
		nowStr,
	)
	if err != nil {
		return false, errors.WrapPersistencef(err, "failed to claim scheduled update %s", id)
	}
	return affected(result, id)
}

// Complete marks a leased once-kind record completed.
func (s *Store) Complete(ctx context.Context, id, owner string, now time.Time) error {
	query := `
		UPDATE scheduled_updates
		SET status = 'completed', completed_at = ?, claimed_by = NULL, claimed_until = NULL
		WHERE id = ? AND status = 'pending' AND claimed_by = ?
	`
	return s.transition(ctx, id, "complete", query, db.FormatTime(now), id, owner)
}

// Reschedule advances a leased recurring record to next and stamps lastExecuted.
// The record stays pending.
func (s *Store) Reschedule(ctx context.Context, id, owner string, next, now time.Time) error {
	query := `
		UPDATE scheduled_updates
		SET execute_at = ?, last_executed = ?, claimed_by = NULL, claimed_until = NULL
		WHERE id = ? AND status = 'pending' AND claimed_by = ?
	`
	return s.transition(ctx, id, "reschedule", query, db.FormatTime(next), db.FormatTime(now), id, owner)
}

// Fail marks a leased record failed with the error description.
func (s *Store) Fail(ctx context.Context, id, owner string, now time.Time, reason string) error {
	query := `
		UPDATE scheduled_updates
		SET status = 'failed', failed_at = ?, error = ?, claimed_by = NULL, claimed_until = NULL
		WHERE id = ? AND status = 'pending' AND claimed_by = ?
	`
	return s.transition(ctx, id, "fail", query, db.FormatTime(now), reason, id, owner)
}

// Cancel moves a pending record to cancelled. It reports false, with no
// error, when the record had already left pending.
func (s *Store) Cancel(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE scheduled_updates
		SET status = 'cancelled', cancelled_at = ?, claimed_by = NULL, claimed_until = NULL
		WHERE id = ? AND status = 'pending'
	`
	result, err := s.db.ExecContext(ctx, query, db.FormatTime(now), id)
	if err != nil {
		return false, errors.WrapPersistencef(err, "failed to cancel scheduled update %s", id)
	}
	ok, err := affected(result, id)
	if err != nil || ok {
		return ok, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// CancelPendingForDomain cancels every pending record of a domain and
// returns how many were cancelled.
func (s *Store) CancelPendingForDomain(ctx context.Context, domainID string, now time.Time) (int64, error) {
	query := `
		UPDATE scheduled_updates
		SET status = 'cancelled', cancelled_at = ?, claimed_by = NULL, claimed_until = NULL
		WHERE domain_id = ? AND status = 'pending'
	`
	result, err := s.db.ExecContext(ctx, query, db.FormatTime(now), domainID)
	if err != nil {
		return 0, errors.WrapPersistencef(err, "failed to cancel schedules for domain %s", domainID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.WrapPersistence(err, "failed to check rows affected")
	}
	return n, nil
}

func (s *Store) transition(ctx context.Context, id, op, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.WrapPersistencef(err, "failed to %s scheduled update %s", op, id)
	}
	ok, err := affected(result, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotPending, "%s scheduled update %s", op, id)
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]*ScheduledUpdate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapPersistence(err, "failed to query scheduled updates")
	}
	defer rows.Close()

	var updates []*ScheduledUpdate
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, errors.WrapPersistence(err, "failed to scan scheduled update")
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapPersistence(err, "failed to iterate scheduled updates")
	}
	return updates, nil
}

func affected(result sql.Result, id string) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.WrapPersistencef(err, "failed to check rows affected for %s", id)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanUpdate maps a row to a ScheduledUpdate. A stored update set that no
// longer decodes does not fail the scan; the record carries the decode
// error so the dispatcher can fail it.
func scanUpdate(row scanner) (*ScheduledUpdate, error) {
	var u ScheduledUpdate
	var updates, kind, executeAt, status, createdAt string
	var unit sql.NullString
	var interval sql.NullInt64
	var lastExecuted, completedAt, cancelledAt, failedAt, errText sql.NullString

	if err := row.Scan(
		&u.ID,
		&u.DomainID,
		&updates,
		&kind,
		&executeAt,
		&status,
		&unit,
		&interval,
		&u.CreatedBy,
		&createdAt,
		&lastExecuted,
		&completedAt,
		&cancelledAt,
		&failedAt,
		&errText,
	); err != nil {
		return nil, err
	}

	u.Kind = Kind(kind)
	u.Status = Status(status)
	u.Error = errText.String
	if unit.Valid {
		u.Recurrence = &Recurrence{Unit: Unit(unit.String), Interval: int(interval.Int64)}
	}

	var decoded domain.Update
	if err := json.Unmarshal([]byte(updates), &decoded); err != nil {
		u.decodeErr = errors.WrapApplyFailure(err, "stored update set is invalid")
	}
	u.Updates = decoded

	var err error
	if u.ExecuteAt, err = db.ParseTime(executeAt); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst **time.Time
		src sql.NullString
	}{
		{&u.LastExecuted, lastExecuted},
		{&u.CompletedAt, completedAt},
		{&u.CancelledAt, cancelledAt},
		{&u.FailedAt, failedAt},
	} {
		if *f.dst, err = db.ParseNullTime(f.src); err != nil {
			return nil, err
		}
	}
	return &u, nil
}
