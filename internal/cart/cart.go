package cart

import (
	"strings"

	"github.com/google/uuid"
)

// Line is one cart entry. Lines that carry the backorder-acceptance marker
// also carry a uniqueness key so they never merge with visually identical
// lines added without the confirmation.
type Line struct {
	ProductID         int64  `json:"product_id"`
	VariationID       int64  `json:"variation_id,omitempty"`
	Qty               int    `json:"qty"`
	AcceptedBackorder bool   `json:"aceita_sob_encomenda,omitempty"`
	UniqueKey         string `json:"unique_key,omitempty"`
}

type Cart struct {
	Lines   []Line   `json:"lines"`
	Coupons []string `json:"coupons,omitempty"`
}

// Add merges the new line into the cart. Unmarked lines for the same
// product/variation merge by quantity; marked lines always stay separate.
func (c *Cart) Add(ln Line) {
	if ln.AcceptedBackorder {
		ln.UniqueKey = uuid.NewString()
		c.Lines = append(c.Lines, ln)
		return
	}
	for i := range c.Lines {
		ex := &c.Lines[i]
		if ex.ProductID == ln.ProductID && ex.VariationID == ln.VariationID &&
			!ex.AcceptedBackorder {
			ex.Qty += ln.Qty
			return
		}
	}
	c.Lines = append(c.Lines, ln)
}

// ApplyCoupon records a coupon code once, case preserved.
func (c *Cart) ApplyCoupon(code string) {
	for _, ex := range c.Coupons {
		if strings.EqualFold(ex, code) {
			return
		}
	}
	c.Coupons = append(c.Coupons, code)
}

// HasCoupon matches case-insensitively, like the storefront's coupon check.
func (c *Cart) HasCoupon(code string) bool {
	for _, ex := range c.Coupons {
		if strings.EqualFold(ex, code) {
			return true
		}
	}
	return false
}

// HasBackorderLine reports whether any line carries the acceptance marker.
func (c *Cart) HasBackorderLine() bool {
	for _, ln := range c.Lines {
		if ln.AcceptedBackorder {
			return true
		}
	}
	return false
}
