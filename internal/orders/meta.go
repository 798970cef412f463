package orders

import "context"

// Order metadata keys. Kept byte-compatible with the WooCommerce plugin this
// service replaced, so existing orders keep working.
const (
	MetaHasBackorder   = "has_sob_encomenda"
	MetaTinyOrderID    = "tiny_order_id"
	MetaTinyMarkerSent = "tiny_marker_sent"

	MetaYes = "yes"
)

// BackorderSource is the slice of the order store needed to decide whether an
// order contains backordered items.
type BackorderSource interface {
	// Meta returns "" when the key is absent.
	Meta(ctx context.Context, orderID int64, key string) (string, error)
	// AnyItemOnBackorder re-scans line items against live stock.
	AnyItemOnBackorder(ctx context.Context, orderID int64) (bool, error)
}

// HasBackorder reports whether the order needs the backorder workflow.
// The checkout-time flag is authoritative; the live re-scan only covers
// orders that predate the flag. The two can disagree once stock moves, which
// is why the flag wins when present.
func HasBackorder(ctx context.Context, src BackorderSource, orderID int64) (bool, error) {
	v, err := src.Meta(ctx, orderID, MetaHasBackorder)
	if err != nil {
		return false, err
	}
	if v != "" {
		return v == MetaYes, nil
	}
	return src.AnyItemOnBackorder(ctx, orderID)
}
