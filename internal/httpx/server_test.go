package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/auth"
	"github.com/ariefcatur/mars-shop.git/internal/cart"
	"github.com/ariefcatur/mars-shop.git/internal/catalog"
	"github.com/ariefcatur/mars-shop.git/internal/orders"
	"github.com/ariefcatur/mars-shop.git/internal/users"
)

type mockOrders struct {
	mock.Mock
	OrderService
}

func (m *mockOrders) Create(ctx context.Context, in orders.CreateInput, userID *int64, key string) (*orders.Order, error) {
	args := m.Called(ctx, in, userID, key)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

func (m *mockOrders) SetStatus(ctx context.Context, id int64, next string) (*orders.Order, error) {
	args := m.Called(ctx, id, next)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

func (m *mockOrders) Confirm(ctx context.Context, id int64) (*orders.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

func (m *mockOrders) GetForUser(ctx context.Context, id, userID int64) (*orders.Order, error) {
	args := m.Called(ctx, id, userID)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

func (m *mockOrders) Stats(ctx context.Context) (orders.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(orders.Stats), args.Error(1)
}

type fakeCatalog struct {
	CatalogService
	product *catalog.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	if f.product == nil || f.product.ID != id {
		return nil, apperr.NotFound("Product not found")
	}
	return f.product, nil
}

type fakeCarts struct {
	items   map[int64][]cart.Item
	cleared []int64
}

func (f *fakeCarts) Get(_ context.Context, userID int64) (cart.View, error) {
	v := cart.View{Items: []cart.ItemView{}}
	for _, it := range f.items[userID] {
		v.Items = append(v.Items, cart.ItemView{Item: it})
	}
	return v, nil
}

func (f *fakeCarts) Replace(ctx context.Context, userID int64, items []cart.Item) (cart.View, error) {
	if items == nil {
		return cart.View{}, apperr.Validation("Invalid or missing items.")
	}
	f.items[userID] = items
	return f.Get(ctx, userID)
}

func (f *fakeCarts) Clear(_ context.Context, userID int64) error {
	delete(f.items, userID)
	f.cleared = append(f.cleared, userID)
	return nil
}

type fakeUsers struct {
	UserService
}

func (fakeUsers) Get(_ context.Context, id int64) (*users.User, error) {
	return &users.User{ID: id, Email: "amira@mars.tn", Roles: []string{auth.RoleUser}}, nil
}

type testAPI struct {
	handler http.Handler
	tokens  *auth.Tokens
	orders  *mockOrders
	carts   *fakeCarts
	catalog *fakeCatalog
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ta := &testAPI{
		tokens:  auth.NewTokens("test-secret", time.Hour, "mars-shop"),
		orders:  &mockOrders{},
		carts:   &fakeCarts{items: map[int64][]cart.Item{}},
		catalog: &fakeCatalog{},
	}
	api := &API{Catalog: ta.catalog, Orders: ta.orders, Carts: ta.carts, Users: fakeUsers{}, Tokens: ta.tokens}
	ta.handler = api.Handler(zap.NewNop(), []string{"*"})
	t.Cleanup(func() { ta.orders.AssertExpectations(t) })
	return ta
}

func (ta *testAPI) token(t *testing.T, userID int64, roles ...string) string {
	t.Helper()
	tok, _, err := ta.tokens.Issue(auth.Principal{UserID: userID, Email: "x@mars.tn", Roles: roles})
	require.NoError(t, err)
	return tok
}

func (ta *testAPI) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ta.handler.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{apperr.NotFound("Order not found"), http.StatusNotFound, "Order not found"},
		{apperr.Validation("Invalid item data."), http.StatusBadRequest, "Invalid item data."},
		{apperr.Unauthorized("Invalid JWT Token"), http.StatusUnauthorized, "Invalid JWT Token"},
		{apperr.Forbidden("Access Denied."), http.StatusForbidden, "Access Denied."},
		{apperr.Conflict("Email already used"), http.StatusConflict, "Email already used"},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, "An unexpected error occurred. Please try again."},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.code, w.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.msg, body.Error)
		assert.Equal(t, apperr.KindOf(tt.err).String(), body.Code)
	}
}

func TestDecodeReportsJSONFieldNames(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"123456","name":"A"}`))
	var in users.RegisterInput
	err := decode(r, &in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "email must be a valid email")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.True(t, apperr.Is(decode(r, &in), apperr.KindValidation))
}

func TestAuthentication(t *testing.T) {
	ta := newTestAPI(t)

	w := ta.do(http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "JWT Token not found", decodeBody(t, w)["error"])

	w = ta.do(http.MethodGet, "/api/me", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ta.do(http.MethodGet, "/api/me", ta.token(t, 7, auth.RoleUser), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, decodeBody(t, w)["id"])

	w = ta.do(http.MethodGet, "/api/admin/dashboard", ta.token(t, 7, auth.RoleUser), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access Denied.", decodeBody(t, w)["error"])
}

func TestCreateOrderAsGuest(t *testing.T) {
	ta := newTestAPI(t)
	created := &orders.Order{ID: 11, Status: orders.StatusPending, Total: decimal.NewFromInt(30)}
	ta.orders.On("Create", mock.Anything, mock.MatchedBy(func(in orders.CreateInput) bool {
		return len(in.Items) == 1 && in.CustomerName == "Amira"
	}), (*int64)(nil), "key-1").Return(created, nil).Once()

	w := ta.do(http.MethodPost, "/api/orders", "",
		`{"items":[{"productId":"/api/products/3","quantity":2}],"customerName":"Amira"}`,
		"Idempotency-Key", "key-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Order created successfully", body["message"])
	assert.EqualValues(t, 11, body["order"].(map[string]any)["id"])
}

func TestCreateOrderAttachesCaller(t *testing.T) {
	ta := newTestAPI(t)
	ta.orders.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(id *int64) bool {
		return id != nil && *id == 7
	}), "").Return(&orders.Order{ID: 12, Status: orders.StatusPending}, nil).Once()

	w := ta.do(http.MethodPost, "/api/orders", ta.token(t, 7, auth.RoleUser), `{"items":[{"productId":3,"quantity":1}]}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = ta.do(http.MethodPost, "/api/orders", "expired-or-forged", `{"items":[]}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrderValidationError(t *testing.T) {
	ta := newTestAPI(t)
	ta.orders.On("Create", mock.Anything, mock.Anything, (*int64)(nil), "").
		Return(nil, apperr.Validation("Invalid or missing items.")).Once()

	w := ta.do(http.MethodPost, "/api/orders", "", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or missing items.", decodeBody(t, w)["error"])
}

func TestAdminStatusRoutes(t *testing.T) {
	ta := newTestAPI(t)
	admin := ta.token(t, 1, auth.RoleAdmin)

	ta.orders.On("Confirm", mock.Anything, int64(5)).Return(&orders.Order{ID: 5, Status: orders.StatusConfirmed}, nil).Once()
	w := ta.do(http.MethodPatch, "/api/admin/orders/5/confirm", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"id": float64(5), "status": "confirmed", "message": "Order confirmed successfully"}, decodeBody(t, w))

	ta.orders.On("SetStatus", mock.Anything, int64(5), "canceled").Return(nil, apperr.Validation("Invalid status")).Once()
	w = ta.do(http.MethodPut, "/api/admin/orders/5", admin, `{"status":"canceled"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ta.do(http.MethodPut, "/api/admin/orders/5", admin, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status is required", decodeBody(t, w)["error"])

	w = ta.do(http.MethodPatch, "/api/admin/orders/abc/confirm", admin, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ta.orders.On("Stats", mock.Anything).Return(orders.Stats{TotalOrders: 3, TotalRevenue: decimal.NewFromInt(90)}, nil).Once()
	w = ta.do(http.MethodGet, "/api/admin/dashboard", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decodeBody(t, w)["totalOrders"])
}

func TestGetOrderForOtherUser(t *testing.T) {
	ta := newTestAPI(t)
	ta.orders.On("GetForUser", mock.Anything, int64(9), int64(7)).Return(nil, apperr.NotFound("Order not found")).Once()

	w := ta.do(http.MethodGet, "/api/orders/9", ta.token(t, 7, auth.RoleUser), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRoutes(t *testing.T) {
	ta := newTestAPI(t)
	tok := ta.token(t, 7, auth.RoleUser)

	w := ta.do(http.MethodGet, "/api/cart", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["items"])

	w = ta.do(http.MethodPost, "/api/cart", tok, `{"items":[{"productId":3,"quantity":2,"name":"Robe","price":20,"uniqueId":"3-red-M"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, ta.carts.items[7], 1)
	assert.Equal(t, "3-red-M", ta.carts.items[7][0].UniqueID)

	w = ta.do(http.MethodPost, "/api/cart", tok, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ta.do(http.MethodDelete, "/api/cart", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cart cleared", decodeBody(t, w)["message"])
	assert.Equal(t, []int64{7}, ta.carts.cleared)
}

func TestProductDetailEmbedsCategory(t *testing.T) {
	ta := newTestAPI(t)
	ta.catalog.product = &catalog.Product{ID: 3, Name: "Robe", CategoryID: 2,
		Category: &catalog.Category{ID: 2, Name: "Robes"}, Price: decimal.NewFromInt(20)}

	w := ta.do(http.MethodGet, "/api/products/3", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Robe", body["name"])
	assert.Equal(t, "Robes", body["category"].(map[string]any)["name"])

	w = ta.do(http.MethodGet, "/api/products/4", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	ta := newTestAPI(t)
	w := ta.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
