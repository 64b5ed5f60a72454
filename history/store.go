package history

import (
	"context"
	"encoding/json"

	"github.com/sharanvkt/insane-dashboard-v2/db"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

// Store persists entries in the domain_history table.
type Store struct {
	db db.Querier
}

// NewStore creates a history store over q.
func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

// Insert appends e.
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return errors.Wrap(err, "failed to encode history changes")
	}

	query := `
		INSERT INTO domain_history (id, domain_id, changes, updated_by, action, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.DomainID,
		string(changes),
		e.UpdatedBy,
		string(e.Action),
		db.FormatTime(e.UpdatedAt),
	); err != nil {
		return errors.WrapPersistencef(err, "failed to insert history entry %s", e.ID)
	}
	return nil
}

// ListForDomain returns the entries for domainID, newest first.
// Entries sharing a timestamp come back in reverse insertion order.
func (s *Store) ListForDomain(ctx context.Context, domainID string) ([]Entry, error) {
	query := `
		SELECT id, domain_id, changes, updated_by, action, updated_at
		FROM domain_history
		WHERE domain_id = ?
		ORDER BY updated_at DESC, rowid DESC
	`
	rows, err := s.db.QueryContext(ctx, query, domainID)
	if err != nil {
		return nil, errors.WrapPersistencef(err, "failed to query history for domain %s", domainID)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var changes, action, updatedAt string
		if err := rows.Scan(&e.ID, &e.DomainID, &changes, &e.UpdatedBy, &action, &updatedAt); err != nil {
			return nil, errors.WrapPersistence(err, "failed to scan history entry")
		}
		if err := json.Unmarshal([]byte(changes), &e.Changes); err != nil {
			return nil, errors.WrapPersistencef(err, "corrupt changes in history entry %s", e.ID)
		}
		e.Action = Action(action)
		if e.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
			return nil, errors.WrapPersistence(err, "failed to parse history timestamp")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapPersistence(err, "failed to iterate history entries")
	}
	return entries, nil
}
