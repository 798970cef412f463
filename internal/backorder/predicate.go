package backorder

// NoticeText is shown next to cart lines (and in the encomenda email) for
// items that will be fulfilled on backorder.
const NoticeText = "Estará disponível entre 4 a 15 dias úteis"

// RequiresConfirmation reports whether the shopper has to tick the
// "aceito o prazo de encomenda" box before the line is admitted to the cart.
//
// stock == nil means the product does not track stock; we never block on
// unknown stock, so that always yields false. The same rule is evaluated by
// the public check endpoint (UI feedback) and by the add-to-cart guard
// (authoritative).
func RequiresConfirmation(stock *int, backordersAllowed bool, qty int) bool {
	if !backordersAllowed || stock == nil {
		return false
	}
	return qty > *stock
}

// BackorderAware is implemented by anything that can tell whether a given
// quantity of itself would land on backorder.
type BackorderAware interface {
	OnBackorder(qty int) bool
}

// Snapshot is a product's stock state at evaluation time. It is derived, not
// stored: stock may change after purchase, so callers must not persist it.
type Snapshot struct {
	Stock             *int
	BackordersAllowed bool
	Notify            bool
}

func (s Snapshot) OnBackorder(qty int) bool {
	return RequiresConfirmation(s.Stock, s.BackordersAllowed, qty)
}

// RequiresNotification mirrors the storefront rule: the backorder notice is
// only rendered for products flagged for notification.
func (s Snapshot) RequiresNotification(qty int) bool {
	return s.Notify && s.OnBackorder(qty)
}
