package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avelours/orderdesk/internal/domain/customer"
)

const (
	findActiveCustomerByEmailSQL = `SELECT id, email, name, points_balance, active
		FROM customers WHERE LOWER(email) = LOWER($1) AND active = TRUE`

	getCustomerByIDSQL = `SELECT id, email, name, points_balance, active
		FROM customers WHERE id = $1`

	findAddressForCustomerSQL = `SELECT id, customer_id, recipient, phone, address_text
		FROM addresses WHERE id = $1 AND customer_id = $2`

	debitPointsSQL = `UPDATE customers SET points_balance = points_balance - $2
		WHERE id = $1 AND points_balance >= $2`

	creditPointsSQL = `UPDATE customers SET points_balance = points_balance + $2
		WHERE id = $1`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// FindActiveByEmail resolves an active customer account by email
// (case-insensitive). Returns customer.ErrNotFound when absent or inactive.
func (r *CustomerRepository) FindActiveByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, findActiveCustomerByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("finding customer by email: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("finding customer by email: %w", err)
	}
	return &c, nil
}

// GetByID returns a customer by identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// FindAddressForCustomer returns the address only when it belongs to the
// given customer; otherwise customer.ErrAddressNotFound.
func (r *CustomerRepository) FindAddressForCustomer(ctx context.Context, addressID, customerID string) (*customer.Address, error) {
	rows, err := r.pool.Query(ctx, findAddressForCustomerSQL, addressID, customerID)
	if err != nil {
		return nil, fmt.Errorf("finding address %q: %w", addressID, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrAddressNotFound
		}
		return nil, fmt.Errorf("finding address %q: %w", addressID, err)
	}
	return &a, nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.PointsBalance, &c.Active)
	return c, err
}

func scanAddress(row pgx.CollectableRow) (customer.Address, error) {
	var a customer.Address
	err := row.Scan(&a.ID, &a.CustomerID, &a.Recipient, &a.Phone, &a.AddressText)
	return a, err
}

// debitPoints subtracts spent loyalty points inside the given transaction.
// The balance guard in the UPDATE keeps concurrent debits from overdrawing.
func debitPoints(ctx context.Context, tx pgx.Tx, customerID string, points decimal.Decimal) error {
	tag, err := tx.Exec(ctx, debitPointsSQL, customerID, points)
	if err != nil {
		return fmt.Errorf("debiting points for customer %q: %w", customerID, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrInsufficientPoints
	}
	return nil
}

// creditPoints adds loyalty points inside the given transaction, used both
// for refunds on cancellation and for accrual on delivery.
func creditPoints(ctx context.Context, tx pgx.Tx, customerID string, points decimal.Decimal) error {
	if _, err := tx.Exec(ctx, creditPointsSQL, customerID, points); err != nil {
		return fmt.Errorf("crediting points for customer %q: %w", customerID, err)
	}
	return nil
}
