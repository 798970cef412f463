package redisx

import (
	"fmt"
	"time"
)

const (
	// Cached Tiny order id: tiny:pedido:{order_id} -> remote id
	KeyTinyOrderID = "tiny:pedido:%v"

	// Shopping cart: cart:{cart_id} -> JSON lines + coupons
	KeyCart = "cart:%v"

	// Dedup event/email processing: dedup:{scope}:{id}
	KeyDedup = "dedup:%v:%v"
)

var (
	TTLCart  = 7 * 24 * time.Hour
	TTLDedup = 48 * time.Hour
)

func Key(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
