package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderStore interface {
	GetOrder(ctx context.Context, orderID int64) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, to orders.Status) (orders.Status, error)
}

// OrdersHandler exposes order reads and the status-transition endpoint the
// order-management side calls. Each successful transition is published as an
// OrderStatusChanged event; the worker reacts to the PROCESSING one.
type OrdersHandler struct {
	Repo     OrderStore
	Producer Publisher
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/status", h.updateStatus)
}

func orderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.Repo.GetOrder(r.Context(), id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type statusReq struct {
	Status string `json:"status"`
}

type statusResp struct {
	OrderID int64         `json:"order_id"`
	From    orders.Status `json:"from"`
	To      orders.Status `json:"to"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	to := orders.Status(strings.ToUpper(req.Status))
	if !orders.ValidStatus(to) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	from, err := h.Repo.UpdateStatus(r.Context(), id, to)
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if errors.Is(err, orders.ErrInvalidTransition) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	publishOrderEvent(h.Producer, h.Service, orders.EventOrderStatusChanged, r.Header.Get("X-Request-Id"), id,
		orders.OrderStatusChangedPayload{OrderID: id, From: from, To: to})

	writeJSON(w, http.StatusOK, statusResp{OrderID: id, From: from, To: to})
}
