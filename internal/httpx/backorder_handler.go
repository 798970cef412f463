package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/faelmarcondeli/backorder-confirmation/internal/nonce"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/go-chi/chi/v5"
)

// ProductResolver resolves the effective product (variation wins).
type ProductResolver interface {
	Resolve(ctx context.Context, productID, variationID int64) (*orders.Product, error)
}

// BackorderHandler serves the storefront's live backorder check: the product
// page asks whether the current quantity/variation needs the confirmation
// checkbox. The answer here is advisory; the add-to-cart guard re-evaluates
// authoritatively.
type BackorderHandler struct {
	Catalog ProductResolver
	Nonces  *nonce.Issuer
}

func (h *BackorderHandler) Register(r *chi.Mux) {
	r.Get("/backorder/nonce", h.issueNonce)
	r.Post("/backorder/check", h.check)
}

func (h *BackorderHandler) issueNonce(w http.ResponseWriter, r *http.Request) {
	tok, err := h.Nonces.Issue(nonce.ActionBackorderCheck)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue nonce")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"nonce": tok})
}

type checkReq struct {
	ProductID   int64  `json:"product_id"`
	VariationID int64  `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity"`
	Nonce       string `json:"nonce"`
}

func (h *BackorderHandler) check(w http.ResponseWriter, r *http.Request) {
	var req checkReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.Nonces.Verify(req.Nonce, nonce.ActionBackorderCheck); err != nil {
		writeError(w, http.StatusForbidden, "invalid nonce")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
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

	writeJSON(w, http.StatusOK, map[string]bool{
		"backorder": p.Snapshot().OnBackorder(req.Quantity),
	})
}
