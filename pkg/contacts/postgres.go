package contacts

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// DB is the part of *pgxpool.Pool the PostgreSQL repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

const contactColumns = "id, name, email, created_at, updated_at"

// PostgresRepository stores contacts in the "contacts" table.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Contact, error) {
	rows, err := r.db.Query(ctx, "SELECT "+contactColumns+" FROM contacts ORDER BY lower(name), id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contacts")
	}
	defer rows.Close()

	out := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan contact")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list contacts")
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Contact, error) {
	c, err := scanContact(r.db.QueryRow(ctx, "SELECT "+contactColumns+" FROM contacts WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, errors.Wrapf(err, "failed to get contact %d", id)
	}
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *Contact) error {
	if err := c.Validate(); err != nil {
		return err
	}
	err := r.db.QueryRow(ctx,
		"INSERT INTO contacts (name, email) VALUES ($1, $2) RETURNING id, created_at, updated_at",
		c.Name, c.Email,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create contact")
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *Contact) error {
	if err := c.Validate(); err != nil {
		return err
	}
	err := r.db.QueryRow(ctx,
		"UPDATE contacts SET name = $1, email = $2, updated_at = now() WHERE id = $3 RETURNING created_at, updated_at",
		c.Name, c.Email, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "failed to update contact %d", c.ID)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM contacts WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete contact %d", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresRepository) Close() {
	r.db.Close()
}

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
