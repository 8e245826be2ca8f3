package customer

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no active customer matches the lookup.
	ErrNotFound = errors.New("customer not found")
	// ErrAddressNotFound is returned when an address does not exist or does
	// not belong to the given customer.
	ErrAddressNotFound = errors.New("address not found")
	// ErrInsufficientPoints is returned when a points debit loses the race
	// against a concurrent order spending the same balance.
	ErrInsufficientPoints = errors.New("insufficient points balance")
)

// Customer is an account that can place orders and hold loyalty points.
type Customer struct {
	ID            string
	Email         string
	Name          string
	PointsBalance decimal.Decimal
	Active        bool
}

// Address is a saved shipping address. Orders copy its fields at creation
// time; later edits never affect already-placed orders.
type Address struct {
	ID          string
	CustomerID  string
	Recipient   string
	Phone       string
	AddressText string
}

// Repository resolves customer identity and shipping addresses.
type Repository interface {
	FindActiveByEmail(ctx context.Context, email string) (*Customer, error)
	GetByID(ctx context.Context, id string) (*Customer, error)
	FindAddressForCustomer(ctx context.Context, addressID, customerID string) (*Address, error)
}
