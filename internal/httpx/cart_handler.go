package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/mars-shop.git/internal/cart"
)

type CartService interface {
	Get(ctx context.Context, userID int64) (cart.View, error)
	Replace(ctx context.Context, userID int64, items []cart.Item) (cart.View, error)
	Clear(ctx context.Context, userID int64) error
}

type CartHandler struct {
	Carts CartService
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/api/cart", h.get)
	r.Post("/api/cart", h.replace)
	r.Delete("/api/cart", h.clear)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.Carts.Get(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) replace(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []cart.Item `json:"items"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Carts.Replace(r.Context(), principal(r).UserID, body.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.Clear(r.Context(), principal(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Cart cleared"})
}
