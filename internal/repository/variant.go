package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelours/orderdesk/internal/domain/catalog"
)

const (
	getVariantByIDSQL = `SELECT id, product_name, image_url, price, discount_pct, available_stock
		FROM product_variants WHERE id = $1`

	getVariantsByIDsSQL = `SELECT id, product_name, image_url, price, discount_pct, available_stock
		FROM product_variants WHERE id = ANY($1)`

	decrementStockSQL = `UPDATE product_variants
		SET available_stock = available_stock - $2
		WHERE id = $1 AND available_stock >= $2`

	restoreStockSQL = `UPDATE product_variants
		SET available_stock = available_stock + $2
		WHERE id = $1`

	getAvailableStockSQL = `SELECT available_stock FROM product_variants WHERE id = $1`
)

var _ catalog.Repository = (*VariantRepository)(nil)

// VariantRepository implements catalog.Repository backed by PostgreSQL.
type VariantRepository struct {
	pool *pgxpool.Pool
}

// NewVariantRepository returns a VariantRepository that uses the given pool.
func NewVariantRepository(pool *pgxpool.Pool) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// GetByID returns a single variant by its identifier.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

// GetByIDs returns variants matching any of the given IDs.
func (r *VariantRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting variants by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanVariant)
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(
		&v.ID, &v.ProductName, &v.ImageURL,
		&v.Price, &v.DiscountPct, &v.AvailableStock,
	)
	return v, err
}

// decrementStock reserves stock for one line inside the given transaction.
// The conditional UPDATE makes check-then-decrement atomic per row; zero rows
// affected means the variant is missing or short on stock, distinguished by a
// follow-up read.
func decrementStock(ctx context.Context, tx pgx.Tx, variantID string, qty int) error {
	tag, err := tx.Exec(ctx, decrementStockSQL, variantID, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock for variant %q: %w", variantID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var available int
	err = tx.QueryRow(ctx, getAvailableStockSQL, variantID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(catalog.ErrNotFound, "variant %s", variantID)
		}
		return fmt.Errorf("checking stock for variant %q: %w", variantID, err)
	}
	return &catalog.OutOfStockError{VariantID: variantID, Requested: qty, Available: available}
}

// restoreStock returns reserved stock on cancellation.
func restoreStock(ctx context.Context, tx pgx.Tx, variantID string, qty int) error {
	if _, err := tx.Exec(ctx, restoreStockSQL, variantID, qty); err != nil {
		return fmt.Errorf("restoring stock for variant %q: %w", variantID, err)
	}
	return nil
}
