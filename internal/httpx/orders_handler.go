package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/mars-shop.git/internal/orders"
)

type OrderService interface {
	Create(ctx context.Context, in orders.CreateInput, userID *int64, idemKey string) (*orders.Order, error)
	SetStatus(ctx context.Context, id int64, next string) (*orders.Order, error)
	Confirm(ctx context.Context, id int64) (*orders.Order, error)
	SetPending(ctx context.Context, id int64) (*orders.Order, error)
	Cancel(ctx context.Context, id int64) (*orders.Order, error)
	GetForUser(ctx context.Context, id, userID int64) (*orders.Order, error)
	ListForUser(ctx context.Context, userID int64) ([]orders.Order, error)
	ListAll(ctx context.Context) ([]orders.AdminOrder, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (orders.Stats, error)
}

type OrdersHandler struct {
	Orders OrderService
}

// RegisterCheckout mounts order creation. Guests may order; the router runs
// OptionalAuth in front of it.
func (h *OrdersHandler) RegisterCheckout(r chi.Router) {
	r.Post("/api/orders", h.create)
}

func (h *OrdersHandler) RegisterUser(r chi.Router) {
	r.Get("/api/my-orders", h.mine)
	r.Get("/api/orders", h.mine)
	r.Get("/api/orders/{id}", h.get)
}

func (h *OrdersHandler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/orders", h.listAll)
	r.Put("/api/admin/orders/{id}", h.setStatus)
	r.Patch("/api/admin/orders/{id}/confirm", h.transition(OrderService.Confirm, "Order confirmed successfully"))
	r.Patch("/api/admin/orders/{id}/pending", h.transition(OrderService.SetPending, "Order set to pending successfully"))
	r.Patch("/api/admin/orders/{id}/cancel", h.transition(OrderService.Cancel, "Order cancelled successfully"))
	r.Delete("/api/admin/orders/{id}", h.delete)
	r.Get("/api/admin/dashboard", h.dashboard)
}

type statusResponse struct {
	ID      int64         `json:"id"`
	Status  orders.Status `json:"status"`
	Message string        `json:"message"`
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	var userID *int64
	if p, ok := principalOf(r); ok {
		userID = &p.UserID
	}
	o, err := h.Orders.Create(r.Context(), in, userID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully",
		"order":   o,
	})
}

func (h *OrdersHandler) mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListForUser(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.GetForUser(r.Context(), id, principal(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Status string `json:"status" validate:"required"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.SetStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ID: o.ID, Status: o.Status, Message: "Order status updated successfully"})
}

func (h *OrdersHandler) transition(fn func(OrderService, context.Context, int64) (*orders.Order, error), msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		o, err := fn(h.Orders, r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{ID: o.ID, Status: o.Status, Message: msg})
	}
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Order deleted successfully"})
}

func (h *OrdersHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	s, err := h.Orders.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
