package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/faelmarcondeli/backorder-confirmation/internal/backorder"
	"github.com/faelmarcondeli/backorder-confirmation/internal/cart"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/go-chi/chi/v5"
)

// ConfirmationRequired is the blocking notice shown when the guard rejects
// an add-to-cart without the backorder acceptance.
const ConfirmationRequired = "Você deve confirmar que aceita o prazo de encomenda para este produto."

type CartStore interface {
	Get(ctx context.Context, cartID string) (*cart.Cart, error)
	Save(ctx context.Context, cartID string, c *cart.Cart) error
	Clear(ctx context.Context, cartID string) error
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, userID, billingEmail string, lines []orders.CheckoutLine, coupons []string) (int64, bool, error)
}

type CartHandler struct {
	Catalog      ProductResolver
	Carts        CartStore
	Orders       OrderCreator
	Producer     Publisher
	Service      string
	SampleCoupon string
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart/{cartID}", h.getCart)
	r.Post("/cart/{cartID}/items", h.addItem)
	r.Post("/cart/{cartID}/coupons", h.applyCoupon)
	r.Post("/cart/{cartID}/checkout", h.checkout)
}

type addItemReq struct {
	ProductID       int64 `json:"product_id"`
	VariationID     int64 `json:"variation_id,omitempty"`
	Quantity        int   `json:"quantity"`
	AcceptBackorder bool  `json:"aceita_sob_encomenda"`
}

// addItem is the add-to-cart guard: the predicate is re-evaluated here,
// server-side, and the line is rejected when confirmation was required but
// not given.
func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	p, err := h.Catalog.Resolve(r.Context(), req.ProductID, req.VariationID)
	if errors.Is(err, orders.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := p.Snapshot()
	if backorder.RequiresConfirmation(snap.Stock, snap.BackordersAllowed, req.Quantity) && !req.AcceptBackorder {
		writeError(w, http.StatusUnprocessableEntity, ConfirmationRequired)
		return
	}

	c, err := h.Carts.Get(r.Context(), cartID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	c.Add(cart.Line{
		ProductID:         req.ProductID,
		VariationID:       req.VariationID,
		Qty:               req.Quantity,
		AcceptedBackorder: req.AcceptBackorder,
	})
	if err := h.Carts.Save(r.Context(), cartID, c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type cartLineView struct {
	cart.Line
	Notice string `json:"notice,omitempty"`
}

type cartView struct {
	Lines   []cartLineView `json:"lines"`
	Coupons []string       `json:"coupons,omitempty"`
}

// getCart returns the cart with the backorder notice attached to lines that
// will ship late. The sample coupon suppresses the notice, mirroring the
// storefront rule.
func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	c, err := h.Carts.Get(r.Context(), cartID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sample := h.SampleCoupon != "" && c.HasCoupon(h.SampleCoupon)
	view := cartView{Coupons: c.Coupons, Lines: make([]cartLineView, 0, len(c.Lines))}
	for _, ln := range c.Lines {
		lv := cartLineView{Line: ln}
		if !sample {
			if p, err := h.Catalog.Resolve(r.Context(), ln.ProductID, ln.VariationID); err == nil {
				if p.Snapshot().RequiresNotification(ln.Qty) {
					lv.Notice = backorder.NoticeText
				}
			}
		}
		view.Lines = append(view.Lines, lv)
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CartHandler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	c, err := h.Carts.Get(r.Context(), cartID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	c.ApplyCoupon(req.Code)
	if err := h.Carts.Save(r.Context(), cartID, c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type checkoutReq struct {
	UserID       string `json:"user_id"`
	BillingEmail string `json:"billing_email"`
}

type checkoutResp struct {
	OrderID      int64 `json:"order_id"`
	HasBackorder bool  `json:"has_backorder"`
}

// checkout turns the cart into a PENDING order. The backorder latch is the
// OR of the lines' acceptance markers and is persisted on the order.
func (h *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == "" || req.BillingEmail == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	c, err := h.Carts.Get(r.Context(), cartID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(c.Lines) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "cart is empty")
		return
	}

	lines := make([]orders.CheckoutLine, 0, len(c.Lines))
	for _, ln := range c.Lines {
		pid := ln.ProductID
		if ln.VariationID > 0 {
			pid = ln.VariationID
		}
		lines = append(lines, orders.CheckoutLine{
			ProductID:         pid,
			Qty:               ln.Qty,
			AcceptedBackorder: ln.AcceptedBackorder,
		})
	}

	orderID, hasBackorder, err := h.Orders.CreateOrder(r.Context(), req.UserID, req.BillingEmail, lines, c.Coupons)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	publishOrderEvent(h.Producer, h.Service, orders.EventOrderCreated, r.Header.Get("X-Request-Id"), orderID,
		orders.OrderCreatedPayload{OrderID: orderID, UserID: req.UserID, HasBackorder: hasBackorder})

	_ = h.Carts.Clear(r.Context(), cartID)
	writeJSON(w, http.StatusCreated, checkoutResp{OrderID: orderID, HasBackorder: hasBackorder})
}
