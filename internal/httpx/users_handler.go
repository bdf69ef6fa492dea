package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/mars-shop.git/internal/users"
)

type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.User, error)
	Login(ctx context.Context, email, password string) (*users.Session, error)
	Get(ctx context.Context, id int64) (*users.User, error)
	List(ctx context.Context) ([]users.User, error)
	UpdateMe(ctx context.Context, id int64, p users.ProfilePatch) (*users.User, error)
	Update(ctx context.Context, id int64, p users.AdminPatch) (*users.User, error)
	Delete(ctx context.Context, id int64) error
}

type UsersHandler struct {
	Users UserService
}

func (h *UsersHandler) RegisterPublic(r chi.Router) {
	r.Post("/api/register", h.register)
	r.Post("/api/login", h.login)
}

func (h *UsersHandler) RegisterUser(r chi.Router) {
	r.Get("/api/me", h.me)
	r.Patch("/api/me", h.updateMe)
}

func (h *UsersHandler) RegisterAdmin(r chi.Router) {
	r.Get("/api/users", h.list)
	r.Get("/api/users/{id}", h.get)
	r.Patch("/api/users/{id}", h.update)
	r.Delete("/api/users/{id}", h.delete)
}

func (h *UsersHandler) register(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    u,
	})
}

func (h *UsersHandler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Users.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *UsersHandler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	var patch users.ProfilePatch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.UpdateMe(r.Context(), principal(r).UserID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch users.AdminPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"User deleted successfully"})
}
