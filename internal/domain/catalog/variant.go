package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product variant does not exist.
var ErrNotFound = errors.New("variant not found")

// Variant represents a purchasable product variant with live pricing and
// stock. Orders snapshot the name, image and price fields at creation time.
type Variant struct {
	ID             string
	ProductName    string
	ImageURL       string
	Price          decimal.Decimal
	DiscountPct    decimal.Decimal
	AvailableStock int
}

// OutOfStockError indicates a variant cannot cover the requested quantity.
type OutOfStockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("variant %s out of stock: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// Repository defines read operations for the variant catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Variant, error)
	GetByIDs(ctx context.Context, ids []string) ([]Variant, error)
}
