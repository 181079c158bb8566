// Package contacts provides the PostgreSQL-backed contact store.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

const columns = `id, user_id, name, surname, email, phone, birthday, info, created_at, updated_at`

var uniqueFields = map[string]string{
	"contacts_user_email_key": "email",
	"contacts_user_phone_key": "phone",
}

type scanner interface {
	Scan(dest ...any) error
}

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanContact(row scanner) (*models.Contact, error) {
	c := &models.Contact{}
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Surname, &c.Email, &c.Phone,
		&c.Birthday, &c.Info, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func mapWriteError(err error) error {
	if constraint, ok := dbx.UniqueViolation(err); ok {
		return &common.UniqueViolationError{Field: uniqueFields[constraint], Constraint: constraint}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (user_id, name, surname, email, phone, birthday, info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + columns

	row := r.db.QueryRowContext(ctx, query, contact.UserID, contact.Name, contact.Surname,
		contact.Email, contact.Phone, contact.Birthday, contact.Info)

	created, err := scanContact(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

// escapeLike quotes the LIKE wildcards so user input is matched literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns a page of the owner's contacts ordered by id.
func (r *PostgresRepository) List(ctx context.Context, userID string, filter Filter) ([]*models.Contact, error) {
	query := `SELECT ` + columns + ` FROM contacts
		WHERE user_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR surname ILIKE '%' || $3 || '%')
		  AND ($4 = '' OR email ILIKE '%' || $4 || '%')
		ORDER BY id
		OFFSET $5 LIMIT $6
		`
	return r.query(ctx, query, userID,
		escapeLike(filter.Name), escapeLike(filter.Surname), escapeLike(filter.Email),
		filter.Skip, filter.Limit)
}

// ListAll returns every contact of the owner ordered by id.
func (r *PostgresRepository) ListAll(ctx context.Context, userID string) ([]*models.Contact, error) {
	query := `SELECT ` + columns + ` FROM contacts WHERE user_id = $1 ORDER BY id`
	return r.query(ctx, query, userID)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select contacts: %w", err)
	}
	defer rows.Close()

	result := []*models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, id int64) (*models.Contact, error) {
	query := `SELECT ` + columns + ` FROM contacts WHERE id = $1 AND user_id = $2`
	return r.getOne(ctx, query, id, userID)
}

// GetForUpdate is Get with a row lock; it only makes sense inside a transaction.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID string, id int64) (*models.Contact, error) {
	query := `SELECT ` + columns + ` FROM contacts WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return r.getOne(ctx, query, id, userID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id int64, userID string) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Update replaces every editable field of the contact and bumps updated_at.
func (r *PostgresRepository) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query := `
		UPDATE contacts
		SET name = $3, surname = $4, email = $5, phone = $6, birthday = $7, info = $8, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + columns

	row := r.db.QueryRowContext(ctx, query, contact.ID, contact.UserID, contact.Name, contact.Surname,
		contact.Email, contact.Phone, contact.Birthday, contact.Info)

	updated, err := scanContact(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

// Delete removes the contact and returns it as it was before deletion.
func (r *PostgresRepository) Delete(ctx context.Context, userID string, id int64) (*models.Contact, error) {
	query := `DELETE FROM contacts WHERE id = $1 AND user_id = $2 RETURNING ` + columns

	deleted, err := scanContact(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return deleted, nil
}
