package orders

import (
	"context"
	"errors"

	"github.com/faelmarcondeli/backorder-confirmation/internal/backorder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog is the read-only product collaborator. This service never writes
// stock; it only snapshots it for backorder decisions.
type Catalog struct{ DB *pgxpool.Pool }

// Resolve returns the effective product: the variation when one is given,
// the base product otherwise.
func (c *Catalog) Resolve(ctx context.Context, productID, variationID int64) (*Product, error) {
	id := productID
	if variationID > 0 {
		id = variationID
	}
	var p Product
	err := c.DB.QueryRow(ctx, `
		SELECT id, parent_id, sku, name, stock, backorders_allowed, backorders_notify, price_cents, created_at, updated_at
		FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.ParentID, &p.SKU, &p.Name, &p.Stock, &p.BackordersAllowed, &p.BackordersNotify, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Snapshot converts a catalog row into the stock view the predicate works on.
func (p *Product) Snapshot() backorder.Snapshot {
	return backorder.Snapshot{
		Stock:             p.Stock,
		BackordersAllowed: p.BackordersAllowed,
		Notify:            p.BackordersNotify,
	}
}
