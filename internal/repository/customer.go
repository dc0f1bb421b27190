package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

// CustomerRepository is the document store adapter: one row per
// aggregate, the whole aggregate serialized into a JSONB column.
// Timestamps are never set here - the service owns them.
// Lookups return nil without error when the target row is absent
type CustomerRepository interface {
	FindByID(context.Context, int64) (*model.Customer, error)
	FindByIDForUpdate(context.Context, int64) (*model.Customer, error)
	FindByEmail(context.Context, string) (*model.Customer, error)
	Create(context.Context, *model.Customer) error
	Update(context.Context, *model.Customer) error
	DeleteByID(context.Context, int64) error
	PageAfter(context.Context, int64, int) ([]*model.Customer, error)
}

type postgresCustomerRepository struct {
	ex transactor.PgxWithinTransactionExecutor
}

// NewPostgresCustomerRepository builds postgres CustomerRepository
func NewPostgresCustomerRepository(ex transactor.PgxWithinTransactionExecutor) CustomerRepository {
	return &postgresCustomerRepository{ex: ex}
}

func (r *postgresCustomerRepository) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	q := "SELECT id, document, created_at, updated_at FROM customers WHERE id = $1"
	row := r.ex.Executor(ctx).QueryRow(ctx, q, id)
	return r.scanRow(row)
}

// FindByIDForUpdate locks the row until the ambient transaction ends,
// so concurrent read-modify-write cycles on one aggregate serialize.
// Must run inside a transaction to be of any use
func (r *postgresCustomerRepository) FindByIDForUpdate(ctx context.Context, id int64) (*model.Customer, error) {
	q := "SELECT id, document, created_at, updated_at FROM customers WHERE id = $1 FOR UPDATE"
	row := r.ex.Executor(ctx).QueryRow(ctx, q, id)
	return r.scanRow(row)
}

func (r *postgresCustomerRepository) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	filter, err := emailContainmentFilter(email)
	if err != nil {
		return nil, apperrors.Internal("failed to build email filter", err)
	}

	q := "SELECT id, document, created_at, updated_at FROM customers WHERE document @> $1::jsonb LIMIT 1"
	row := r.ex.Executor(ctx).QueryRow(ctx, q, filter)
	return r.scanRow(row)
}

func (r *postgresCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return apperrors.Internal(fmt.Sprintf("failed to serialize customer %d", c.ID), err)
	}

	q := "INSERT INTO customers(id, document, created_at, updated_at) VALUES($1, $2, $3, $4)"
	if _, err := r.ex.Executor(ctx).Exec(ctx, q, c.ID, doc, c.CreatedAt, c.UpdatedAt); err != nil {
		return apperrors.FromStorage(err)
	}
	return nil
}

func (r *postgresCustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return apperrors.Internal(fmt.Sprintf("failed to serialize customer %d", c.ID), err)
	}

	q := "UPDATE customers SET document = $1, updated_at = $2 WHERE id = $3"
	comm, err := r.ex.Executor(ctx).Exec(ctx, q, doc, c.UpdatedAt, c.ID)
	if err != nil {
		return apperrors.FromStorage(err)
	}
	if comm.RowsAffected() == 0 {
		return apperrors.NotFound(fmt.Sprintf("customer %d does not exist", c.ID))
	}
	return nil
}

func (r *postgresCustomerRepository) DeleteByID(ctx context.Context, id int64) error {
	q := "DELETE FROM customers WHERE id = $1"
	comm, err := r.ex.Executor(ctx).Exec(ctx, q, id)
	if err != nil {
		return apperrors.FromStorage(err)
	}
	if comm.RowsAffected() == 0 {
		return apperrors.NotFound(fmt.Sprintf("customer %d does not exist", id))
	}
	return nil
}

func (r *postgresCustomerRepository) PageAfter(ctx context.Context, afterID int64, limit int) ([]*model.Customer, error) {
	customers := make([]*model.Customer, 0, limit)
	q := "SELECT id, document, created_at, updated_at FROM customers WHERE id > $1 ORDER BY id LIMIT $2"

	rows, err := r.ex.Executor(ctx).Query(ctx, q, afterID, limit)
	if err != nil {
		return nil, apperrors.FromStorage(err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := r.scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStorage(err)
	}
	return customers, nil
}

func (r *postgresCustomerRepository) scanRow(row pgx.Row) (*model.Customer, error) {
	c, err := r.scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCustomerRepository) scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	var doc []byte

	if err := row.Scan(&c.ID, &doc, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.FromStorage(err)
	}

	id, createdAt, updatedAt := c.ID, c.CreatedAt, c.UpdatedAt
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, apperrors.Internal(fmt.Sprintf("failed to deserialize customer %d", id), err)
	}

	// columns are authoritative for ordering keys
	c.ID = id
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt
	return &c, nil
}

// emailContainmentFilter builds {"emails":[{"email":"..."}]} which the
// @> operator matches against any element of the stored emails array.
// Only the email key may be present, extra keys would narrow the match
func emailContainmentFilter(email string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"emails": []map[string]string{{"email": email}},
	})
}
