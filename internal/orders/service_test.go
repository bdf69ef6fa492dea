package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/catalog"
)

// memStore keeps orders and products in memory and reconciles stock the same
// way the SQL transaction does.
type memStore struct {
	mu       sync.Mutex
	orders   map[int64]*Order
	products map[int64]*catalog.Product
	nextID   int64
}

func newMemStore(products ...catalog.Product) *memStore {
	m := &memStore{orders: map[int64]*Order{}, products: map[int64]*catalog.Product{}}
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
	}
	return m
}

func (m *memStore) Create(_ context.Context, o *Order) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.IdempotencyKey != "" {
		for _, existing := range m.orders {
			if existing.IdempotencyKey == o.IdempotencyKey {
				*o = *existing
				return true, nil
			}
		}
	}
	m.nextID++
	o.ID = m.nextID
	cp := *o
	m.orders[o.ID] = &cp
	return false, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, errOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) List(context.Context) ([]Order, error) {
	out := []Order{}
	for id := int64(1); id <= m.nextID; id++ {
		if o, ok := m.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64) ([]Order, error) {
	out := []Order{}
	for id := int64(1); id <= m.nextID; id++ {
		if o, ok := m.orders[id]; ok && o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return errOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memStore) Stats(context.Context) (Stats, error) {
	s := Stats{TotalRevenue: decimal.Zero}
	for _, o := range m.orders {
		s.TotalOrders++
		s.TotalRevenue = s.TotalRevenue.Add(o.Total)
	}
	return s, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id int64, next Status) (Status, error) {
	o, ok := m.orders[id]
	if !ok {
		return "", errOrderNotFound
	}
	prev := o.Status
	ApplyStock(o.Items, StockEffect(prev, next), m.products)
	o.Status = next
	return prev, nil
}

func (m *memStore) FindProducts(_ context.Context, ids []int64) (map[int64]catalog.Product, error) {
	out := map[int64]catalog.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

type mockEvents struct{ mock.Mock }

func (e *mockEvents) OrderCreated(ctx context.Context, o Order, customer *Contact) error {
	return e.Called(ctx, o, customer).Error(0)
}

func (e *mockEvents) StatusChanged(ctx context.Context, orderID int64, from, to Status) error {
	return e.Called(ctx, orderID, from, to).Error(0)
}

type mockCarts struct{ mock.Mock }

func (c *mockCarts) Clear(ctx context.Context, userID int64) error {
	return c.Called(ctx, userID).Error(0)
}

type staticContacts map[int64]Contact

func (s staticContacts) Contact(_ context.Context, id int64) (Contact, error) {
	c, ok := s[id]
	if !ok {
		return Contact{}, apperr.NotFound("User not found")
	}
	return c, nil
}

func qty(n int) *int { return &n }

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func item(productID int64, n int, price string) ItemInput {
	return ItemInput{ProductID: catalog.ID(productID), Quantity: qty(n), Price: money(price)}
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newService(store *memStore) *Service {
	return &Service{Store: store, Products: store, Now: func() time.Time { return fixedNow }}
}

func TestCreateValidation(t *testing.T) {
	svc := newService(newMemStore())
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"no items", CreateInput{}},
		{"missing quantity", CreateInput{Items: []ItemInput{{Price: money("1")}}}},
		{"missing price", CreateInput{Items: []ItemInput{{Quantity: qty(1)}}}},
		{"zero quantity", CreateInput{Items: []ItemInput{item(1, 0, "5")}}},
		{"negative price", CreateInput{Items: []ItemInput{item(1, 1, "-5")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in, nil, "")
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestCreateKeepsSubmittedPrices(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "Robe", Price: decimal.RequireFromString("45.500"), Stock: 10})
	svc := newService(store)

	o, err := svc.Create(context.Background(), CreateInput{
		Items: []ItemInput{
			item(1, 2, "1.000"),
			item(99, 1, "12.250"),
			{Quantity: qty(3), Price: money("2"), Name: "Bracelet"},
		},
		CustomerName: "  Amira ",
	}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Equal(t, "Amira", o.CustomerName)
	require.Len(t, o.Items, 3)
	assert.Equal(t, "Robe", o.Items[0].Name)
	assert.True(t, o.Items[0].Price.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, UnknownProductName, o.Items[1].Name)
	assert.True(t, o.Items[1].Price.Equal(decimal.RequireFromString("12.25")))
	assert.Equal(t, "Bracelet", o.Items[2].Name)
	assert.Equal(t, "20.250", o.Total.StringFixed(3))
}

func TestCreateTotalIsSumOfSubmittedItems(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "Sac", Price: decimal.NewFromInt(30), Stock: 5})
	svc := newService(store)
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(1, 2, "10")}}, nil, "")
	require.NoError(t, err)

	stored, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.000", stored.Total.StringFixed(3))
	assert.True(t, stored.Items[0].Price.Equal(decimal.NewFromInt(10)))
}

func TestCreatePricesFromCatalogWhenEnabled(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "Robe", Price: decimal.RequireFromString("45.500"), Stock: 10})
	svc := newService(store)
	svc.PriceFromCatalog = true

	o, err := svc.Create(context.Background(), CreateInput{
		Items: []ItemInput{item(1, 2, "1.000"), item(99, 1, "12.250")},
	}, nil, "")
	require.NoError(t, err)

	assert.True(t, o.Items[0].Price.Equal(decimal.RequireFromString("45.5")))
	assert.True(t, o.Items[1].Price.Equal(decimal.RequireFromString("12.25")), "unknown product keeps submitted price")
	assert.Equal(t, "103.250", o.Total.StringFixed(3))
}

func TestTotalFixedAfterPriceChange(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "Sac", Price: decimal.NewFromInt(30), Stock: 5})
	svc := newService(store)
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(1, 2, "30")}}, nil, "")
	require.NoError(t, err)

	store.products[1].Price = decimal.NewFromInt(99)
	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(60)))
}

func TestCreateSideEffects(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "Robe", Price: decimal.NewFromInt(10)})
	events := &mockEvents{}
	carts := &mockCarts{}
	core, logs := observer.New(zap.WarnLevel)
	svc := newService(store)
	svc.Events = events
	svc.Carts = carts
	svc.Contacts = staticContacts{7: {ID: 7, Email: "amira@example.tn", Name: "Amira"}}
	svc.Log = zap.New(core)

	user := int64(7)
	events.On("OrderCreated", mock.Anything, mock.MatchedBy(func(o Order) bool { return o.ID == 1 }),
		&Contact{ID: 7, Email: "amira@example.tn", Name: "Amira"}).Return(errors.New("broker down"))
	carts.On("Clear", mock.Anything, int64(7)).Return(errors.New("redis down"))

	o, err := svc.Create(context.Background(), CreateInput{Items: []ItemInput{item(1, 1, "10")}}, &user, "")
	require.NoError(t, err, "side effect failures never fail the order")
	assert.Equal(t, int64(1), o.ID)

	events.AssertExpectations(t)
	carts.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("publish order created").Len())
	assert.Equal(t, 1, logs.FilterMessage("clear cart after checkout").Len())
}

func TestCreateGuestKeepsCart(t *testing.T) {
	store := newMemStore()
	carts := &mockCarts{}
	svc := newService(store)
	svc.Carts = carts

	_, err := svc.Create(context.Background(), CreateInput{Items: []ItemInput{item(0, 1, "10")}}, nil, "")
	require.NoError(t, err)
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestCreateIdempotencyKey(t *testing.T) {
	store := newMemStore()
	svc := newService(store)
	ctx := context.Background()
	in := CreateInput{Items: []ItemInput{item(0, 1, "10")}}

	first, err := svc.Create(ctx, in, nil, "checkout-1")
	require.NoError(t, err)
	again, err := svc.Create(ctx, in, nil, "checkout-1")
	require.NoError(t, err)
	other, err := svc.Create(ctx, in, nil, "checkout-2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Len(t, store.orders, 2)
}

func TestCreateIdempotencyKeyConcurrentSubmits(t *testing.T) {
	store := newMemStore()
	events := &mockEvents{}
	carts := &mockCarts{}
	svc := newService(store)
	svc.Events = events
	svc.Carts = carts
	events.On("OrderCreated", mock.Anything, mock.Anything, (*Contact)(nil)).Return(nil).Once()
	carts.On("Clear", mock.Anything, int64(7)).Return(nil).Once()

	user := int64(7)
	in := CreateInput{Items: []ItemInput{item(0, 1, "10")}}
	const n = 10
	ids := make([]int64, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			o, err := svc.Create(context.Background(), in, &user, "double-click")
			if assert.NoError(t, err) {
				ids[i] = o.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, store.orders, 1)
	events.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestLifecycleWithoutSizes(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "P", Price: decimal.NewFromInt(5), Stock: 10})
	svc := newService(store)
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(1, 3, "5")}}, nil, "")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, store.products[1].Stock)

	_, err = svc.Confirm(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, store.products[1].Stock, "confirmed to confirmed changes nothing")

	got, err := svc.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, 10, store.products[1].Stock)

	_, err = svc.SetPending(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, store.products[1].Stock, "cancelled to pending changes nothing")
}

func TestLifecycleWithSizes(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "P", Price: decimal.NewFromInt(5), Stock: 20,
		Sizes: []catalog.Size{{ID: "S", Name: "M", Stock: 5}}})
	svc := newService(store)
	ctx := context.Background()

	in := item(1, 2, "5")
	in.Size = "M"
	o, err := svc.Create(ctx, CreateInput{Items: []ItemInput{in}}, nil, "")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 18, store.products[1].Stock)
	assert.Equal(t, 3, store.products[1].Sizes[0].Stock)

	_, err = svc.SetPending(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, store.products[1].Stock)
	assert.Equal(t, 5, store.products[1].Sizes[0].Stock)
}

func TestDeleteConfirmedKeepsStock(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "P", Price: decimal.NewFromInt(5), Stock: 10})
	svc := newService(store)
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(1, 4, "5")}}, nil, "")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, o.ID))
	assert.Equal(t, 6, store.products[1].Stock)
	assert.True(t, apperr.Is(svc.Delete(ctx, o.ID), apperr.KindNotFound))
}

func TestSetStatusErrors(t *testing.T) {
	svc := newService(newMemStore())
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, 1, "archived")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SetStatus(ctx, 404, "confirmed")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSetStatusPublishesChange(t *testing.T) {
	store := newMemStore()
	events := &mockEvents{}
	svc := newService(store)
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(0, 1, "1")}}, nil, "")
	require.NoError(t, err)

	svc.Events = events
	events.On("StatusChanged", mock.Anything, o.ID, StatusPending, StatusShipped).Return(nil).Once()

	_, err = svc.SetStatus(ctx, o.ID, "shipped")
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, o.ID, "shipped")
	require.NoError(t, err)
	events.AssertExpectations(t)
}

func TestGetForUser(t *testing.T) {
	store := newMemStore()
	svc := newService(store)
	ctx := context.Background()
	owner, other := int64(1), int64(2)

	o, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(0, 1, "1")}}, &owner, "")
	require.NoError(t, err)
	guest, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(0, 1, "1")}}, nil, "")
	require.NoError(t, err)

	_, err = svc.GetForUser(ctx, o.ID, owner)
	require.NoError(t, err)
	_, err = svc.GetForUser(ctx, o.ID, other)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.GetForUser(ctx, guest.ID, owner)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	mine, err := svc.ListForUser(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestListAllEnriches(t *testing.T) {
	store := newMemStore(catalog.Product{ID: 1, Name: "Robe", Price: decimal.NewFromInt(10), Images: []string{"robe.jpg", "b.jpg"}})
	svc := newService(store)
	svc.Contacts = staticContacts{3: {ID: 3, Email: "a@b.tn", Name: "Amira"}}
	ctx := context.Background()
	user := int64(3)

	_, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(1, 1, "10"), item(42, 1, "3")}}, &user, "")
	require.NoError(t, err)

	list, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Items, 2)
	require.NotNil(t, list[0].Items[0].ProductName)
	assert.Equal(t, "Robe", *list[0].Items[0].ProductName)
	assert.Equal(t, "robe.jpg", *list[0].Items[0].ProductImage)
	assert.Nil(t, list[0].Items[1].ProductName)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "a@b.tn", list[0].User.Email)
}

func TestStats(t *testing.T) {
	store := newMemStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Items: []ItemInput{item(0, 2, "10.5")}}, nil, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Items: []ItemInput{item(0, 1, "4")}}, nil, "")
	require.NoError(t, err)

	s, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.TotalOrders)
	assert.True(t, s.TotalRevenue.Equal(decimal.NewFromInt(25)))
}
