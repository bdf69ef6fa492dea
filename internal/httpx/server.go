package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/auth"
	"github.com/ariefcatur/mars-shop.git/internal/logger"
)

func NewRouter(log *zap.Logger, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.Middleware(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// API wires the shop handlers onto a router.
type API struct {
	Catalog CatalogService
	Orders  OrderService
	Carts   CartService
	Users   UserService
	Tokens  TokenVerifier
}

func (a *API) Register(r chi.Router) {
	catalog := &CatalogHandler{Catalog: a.Catalog}
	orders := &OrdersHandler{Orders: a.Orders}
	carts := &CartHandler{Carts: a.Carts}
	users := &UsersHandler{Users: a.Users}

	r.Group(func(r chi.Router) {
		catalog.RegisterPublic(r)
		users.RegisterPublic(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(OptionalAuth(a.Tokens))
		orders.RegisterCheckout(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(a.Tokens))
		users.RegisterUser(r)
		orders.RegisterUser(r)
		carts.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(a.Tokens), RequireRole(auth.RoleAdmin))
		catalog.RegisterAdmin(r)
		orders.RegisterAdmin(r)
		users.RegisterAdmin(r)
	})
}

// Handler returns a router with every route mounted.
func (a *API) Handler(log *zap.Logger, corsOrigins []string) http.Handler {
	r := NewRouter(log, corsOrigins)
	a.Register(r)
	return r
}
