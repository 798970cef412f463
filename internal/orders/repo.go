package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/faelmarcondeli/backorder-confirmation/internal/backorder"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// CheckoutLine is a cart line at the moment it becomes part of an order.
type CheckoutLine struct {
	ProductID         int64
	Qty               int
	AcceptedBackorder bool
}

type Repo struct{ DB *pgxpool.Pool }

// CreateOrder persists a new PENDING order from checkout lines. If any line
// carries the backorder-acceptance marker the whole order is latched with
// has_sob_encomenda=yes; the latch is one-way and covers the entire order.
func (r *Repo) CreateOrder(ctx context.Context, userID, billingEmail string, lines []CheckoutLine, coupons []string) (orderID int64, hasBackorder bool, err error) {
	if len(lines) == 0 {
		return 0, false, errors.New("order must contain at least one line")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// price and name come from the catalog, never from the client
	type priced struct {
		name  string
		price int
	}
	prices := map[int64]priced{}
	total := 0
	for _, ln := range lines {
		if ln.Qty <= 0 {
			return 0, false, fmt.Errorf("invalid qty for product %d", ln.ProductID)
		}
		if _, ok := prices[ln.ProductID]; !ok {
			var p priced
			err := tx.QueryRow(ctx, `SELECT name, price_cents FROM products WHERE id=$1`, ln.ProductID).Scan(&p.name, &p.price)
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, false, fmt.Errorf("%w: %d", ErrProductNotFound, ln.ProductID)
			}
			if err != nil {
				return 0, false, err
			}
			prices[ln.ProductID] = p
		}
		total += prices[ln.ProductID].price * ln.Qty
		if ln.AcceptedBackorder {
			hasBackorder = true
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, billing_email, status, total_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, billingEmail, string(StatusPending), total).Scan(&orderID)
	if err != nil {
		return 0, false, err
	}

	for _, ln := range lines {
		p := prices[ln.ProductID]
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, name, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), orderID, ln.ProductID, p.name, ln.Qty, p.price,
		); err != nil {
			return 0, false, err
		}
	}

	for _, code := range coupons {
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_coupons(order_id, code)
			VALUES ($1, $2)
			ON CONFLICT (order_id, code) DO NOTHING`, orderID, code,
		); err != nil {
			return 0, false, err
		}
	}

	if hasBackorder {
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_meta(order_id, meta_key, meta_value)
			VALUES ($1, $2, $3)`, orderID, MetaHasBackorder, MetaYes,
		); err != nil {
			return 0, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	return orderID, hasBackorder, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, billing_email, status, total_cents, created_at, updated_at
		FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.UserID, &o.BillingEmail, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, name, qty, price_cents
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// UpdateStatus moves the order through the transition table and returns the
// previous status. The row is locked so concurrent re-saves of the same
// transition cannot both succeed.
func (r *Repo) UpdateStatus(ctx context.Context, orderID int64, to Status) (Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, string(to)); err != nil {
		return from, err
	}
	return from, tx.Commit(ctx)
}

func (r *Repo) Meta(ctx context.Context, orderID int64, key string) (string, error) {
	var v string
	err := r.DB.QueryRow(ctx, `
		SELECT meta_value FROM order_meta WHERE order_id=$1 AND meta_key=$2`, orderID, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (r *Repo) SetMeta(ctx context.Context, orderID int64, key, value string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_meta(order_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`,
		orderID, key, value)
	return err
}

func (r *Repo) AddNote(ctx context.Context, orderID int64, note string) error {
	_, err := r.DB.Exec(ctx, `INSERT INTO order_notes(order_id, note) VALUES ($1, $2)`, orderID, note)
	return err
}

func (r *Repo) Coupons(ctx context.Context, orderID int64) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT code FROM order_coupons WHERE order_id=$1 ORDER BY code`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AnyItemOnBackorder re-evaluates line items against live product stock.
// Fallback path for orders created before the checkout latch existed.
func (r *Repo) AnyItemOnBackorder(ctx context.Context, orderID int64) (bool, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT i.qty, p.stock, p.backorders_allowed, p.backorders_notify
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id=$1`, orderID)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var qty int
		var snap backorder.Snapshot
		if err := rows.Scan(&qty, &snap.Stock, &snap.BackordersAllowed, &snap.Notify); err != nil {
			return false, err
		}
		if snap.OnBackorder(qty) {
			return true, nil
		}
	}
	return false, rows.Err()
}
