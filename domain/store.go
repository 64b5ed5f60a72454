package domain

import (
	"context"
	"database/sql"

	"github.com/sharanvkt/insane-dashboard-v2/db"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

// Store handles persistence of domains
type Store struct {
	db db.Querier
}

// NewStore creates a domain store over q, which may be a *sql.DB or a *sql.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

const domainColumns = `id, name, url, content1, content2, content3, content4,
		       last_updated, updated_by, created_at`

// Create inserts a new domain
func (s *Store) Create(ctx context.Context, d *Domain) error {
	query := `
		INSERT INTO domains (
			id, name, url, content1, content2, content3, content4,
			last_updated, updated_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID,
		d.Name,
		d.URL,
		db.NullString(d.Content1),
		db.NullString(d.Content2),
		db.NullString(d.Content3),
		db.NullString(d.Content4),
		db.FormatTime(d.LastUpdated),
		d.UpdatedBy,
		db.FormatTime(d.CreatedAt),
	)
	if err != nil {
		return errors.WrapPersistencef(err, "failed to create domain %s", d.ID)
	}
	return nil
}

// Get retrieves a domain by ID
func (s *Store) Get(ctx context.Context, id string) (*Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains WHERE id = ?`

	d, err := scanDomain(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("Domain not found")
		}
		return nil, errors.WrapPersistencef(err, "failed to get domain %s", id)
	}
	return d, nil
}

// NameOf returns the display name of a domain.
func (s *Store) NameOf(ctx context.Context, id string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM domains WHERE id = ?`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.NewNotFoundError("Domain not found")
		}
		return "", errors.WrapPersistencef(err, "failed to look up domain %s", id)
	}
	return name, nil
}

// List returns all domains ordered by name
func (s *Store) List(ctx context.Context) ([]*Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.WrapPersistence(err, "failed to list domains")
	}
	defer rows.Close()

	var domains []*Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, errors.WrapPersistence(err, "failed to scan domain")
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapPersistence(err, "failed to iterate domains")
	}
	return domains, nil
}

// Save writes every tracked field of d along with its update metadata.
func (s *Store) Save(ctx context.Context, d *Domain) error {
	query := `
		UPDATE domains
		SET name = ?, url = ?, content1 = ?, content2 = ?, content3 = ?, content4 = ?,
		    last_updated = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		d.Name,
		d.URL,
		db.NullString(d.Content1),
		db.NullString(d.Content2),
		db.NullString(d.Content3),
		db.NullString(d.Content4),
		db.FormatTime(d.LastUpdated),
		d.UpdatedBy,
		d.ID,
	)
	if err != nil {
		return errors.WrapPersistencef(err, "failed to update domain %s", d.ID)
	}
	return requireOneRow(result, d.ID)
}

// Delete removes a domain
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM domains WHERE id = ?`, id)
	if err != nil {
		return errors.WrapPersistencef(err, "failed to delete domain %s", id)
	}
	return requireOneRow(result, id)
}

func requireOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.WrapPersistencef(err, "failed to check rows affected for domain %s", id)
	}
	if n == 0 {
		return errors.NewNotFoundError("Domain not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDomain(row scanner) (*Domain, error) {
	var d Domain
	var c1, c2, c3, c4 sql.NullString
	var lastUpdated, createdAt string

	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.URL,
		&c1, &c2, &c3, &c4,
		&lastUpdated,
		&d.UpdatedBy,
		&createdAt,
	); err != nil {
		return nil, err
	}

	d.Content1 = db.StringPtr(c1)
	d.Content2 = db.StringPtr(c2)
	d.Content3 = db.StringPtr(c3)
	d.Content4 = db.StringPtr(c4)

	var err error
	if d.LastUpdated, err = db.ParseTime(lastUpdated); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &d, nil
}
