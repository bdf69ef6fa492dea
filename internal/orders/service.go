package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/catalog"
)

// Store is implemented by *Repo.
type Store interface {
	// Create inserts o. When o.IdempotencyKey is already taken it loads the
	// existing order into o instead and reports existed.
	Create(ctx context.Context, o *Order) (existed bool, err error)
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (Stats, error)
	UpdateStatus(ctx context.Context, id int64, next Status) (Status, error)
}

type Products interface {
	FindProducts(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
}

type Carts interface {
	Clear(ctx context.Context, userID int64) error
}

type Contacts interface {
	Contact(ctx context.Context, userID int64) (Contact, error)
}

// Publisher announces order events. Implementations must not block on slow consumers.
type Publisher interface {
	OrderCreated(ctx context.Context, o Order, customer *Contact) error
	StatusChanged(ctx context.Context, orderID int64, from, to Status) error
}

type Service struct {
	Store    Store
	Products Products
	Carts    Carts
	Contacts Contacts
	Events   Publisher
	Log      *zap.Logger
	Now      func() time.Time
	// PriceFromCatalog replaces submitted prices with the current price of
	// known products. Off, the order keeps the prices the client saw.
	PriceFromCatalog bool
}

type ItemInput struct {
	ProductID catalog.ID       `json:"productId"`
	Quantity  *int             `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Name      string           `json:"name"`
	Color     catalog.Multi    `json:"color"`
	ColorName catalog.Multi    `json:"colorName"`
	Size      string           `json:"size"`
}

type CreateInput struct {
	Items           []ItemInput `json:"items"`
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerAddress string      `json:"customerAddress"`
	Notes           string      `json:"notes"`
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// Create validates and stores a new pending order. The total is the sum of the
// stored item prices, fixed here and never recomputed. A non-empty idemKey that
// already produced an order returns that order without side effects.
// The notification and the cart removal are best effort.
func (s *Service) Create(ctx context.Context, in CreateInput, userID *int64, idemKey string) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("Invalid or missing items.")
	}
	ids := make([]int64, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity == nil || it.Price == nil || *it.Quantity <= 0 || it.Price.IsNegative() {
			return nil, apperr.Validation("Invalid item data.")
		}
		if it.ProductID != 0 {
			ids = append(ids, int64(it.ProductID))
		}
	}

	products := map[int64]catalog.Product{}
	if len(ids) > 0 {
		var err error
		if products, err = s.Products.FindProducts(ctx, ids); err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
	}

	o := &Order{
		UserID:          userID,
		Status:          StatusPending,
		Items:           make([]Item, 0, len(in.Items)),
		Total:           decimal.Zero,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerPhone:   strings.TrimSpace(in.CustomerPhone),
		CustomerAddress: strings.TrimSpace(in.CustomerAddress),
		Notes:           in.Notes,
		CreatedAt:       s.now(),
		IdempotencyKey:  idemKey,
	}
	for _, src := range in.Items {
		it := Item{
			ProductID: src.ProductID,
			Quantity:  *src.Quantity,
			Price:     *src.Price,
			Name:      src.Name,
			Color:     src.Color,
			ColorName: src.ColorName,
			Size:      src.Size,
		}
		p, known := products[int64(src.ProductID)]
		if known && s.PriceFromCatalog {
			it.Price = p.Price
		}
		if it.Name == "" {
			it.Name = UnknownProductName
			if known {
				it.Name = p.Name
			}
		}
		o.Items = append(o.Items, it)
		o.Total = o.Total.Add(it.LineTotal())
	}

	existed, err := s.Store.Create(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	log := s.log().With(zap.Int64("order_id", o.ID))
	if existed {
		log.Info("order replayed for idempotency key", zap.String("key", idemKey))
		return o, nil
	}
	log.Info("order created", zap.Int("items", len(o.Items)), zap.String("total", o.Total.StringFixed(3)))

	if s.Events != nil {
		var customer *Contact
		if userID != nil && s.Contacts != nil {
			if c, err := s.Contacts.Contact(ctx, *userID); err != nil {
				log.Warn("load customer for notification", zap.Error(err))
			} else {
				customer = &c
			}
		}
		if err := s.Events.OrderCreated(ctx, *o, customer); err != nil {
			log.Warn("publish order created", zap.Error(err))
		}
	}

	if userID != nil && s.Carts != nil {
		if err := s.Carts.Clear(ctx, *userID); err != nil {
			log.Warn("clear cart after checkout", zap.Int64("user_id", *userID), zap.Error(err))
		}
	}
	return o, nil
}

// SetStatus moves the order to next, adjusting product stock when the order
// enters or leaves the confirmed state.
func (s *Service) SetStatus(ctx context.Context, id int64, next string) (*Order, error) {
	status, err := ParseStatus(next)
	if err != nil {
		return nil, err
	}
	prev, err := s.Store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.log().Info("order status changed", zap.Int64("order_id", id),
		zap.String("from", string(prev)), zap.String("to", string(status)))

	if s.Events != nil && prev != status {
		if err := s.Events.StatusChanged(ctx, id, prev, status); err != nil {
			s.log().Warn("publish status changed", zap.Int64("order_id", id), zap.Error(err))
		}
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) Confirm(ctx context.Context, id int64) (*Order, error) {
	return s.SetStatus(ctx, id, string(StatusConfirmed))
}

func (s *Service) SetPending(ctx context.Context, id int64) (*Order, error) {
	return s.SetStatus(ctx, id, string(StatusPending))
}

func (s *Service) Cancel(ctx context.Context, id int64) (*Order, error) {
	return s.SetStatus(ctx, id, string(StatusCancelled))
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.Store.Get(ctx, id)
}

// GetForUser hides orders owned by someone else behind NotFound.
func (s *Service) GetForUser(ctx context.Context, id, userID int64) (*Order, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, errOrderNotFound
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Order, error) {
	return s.Store.ListByUser(ctx, userID)
}

// ListAll returns every order for the back office with item lines enriched from
// the current catalog and the owning account, when there is one.
func (s *Service) ListAll(ctx context.Context) ([]AdminOrder, error) {
	list, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, o := range list {
		ids = append(ids, productIDs(o.Items)...)
	}
	products := map[int64]catalog.Product{}
	if len(ids) > 0 {
		if products, err = s.Products.FindProducts(ctx, ids); err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
	}

	contacts := map[int64]*Contact{}
	out := make([]AdminOrder, 0, len(list))
	for _, o := range list {
		ao := AdminOrder{Order: o, Items: make([]ItemView, 0, len(o.Items))}
		for _, it := range o.Items {
			v := ItemView{Item: it}
			if p, ok := products[int64(it.ProductID)]; ok {
				name := p.Name
				v.ProductName = &name
				if img := p.FirstImage(); img != "" {
					v.ProductImage = &img
				}
			}
			ao.Items = append(ao.Items, v)
		}
		if o.UserID != nil && s.Contacts != nil {
			c, seen := contacts[*o.UserID]
			if !seen {
				if got, err := s.Contacts.Contact(ctx, *o.UserID); err == nil {
					c = &got
				}
				contacts[*o.UserID] = c
			}
			ao.User = c
		}
		out = append(out, ao)
	}
	return out, nil
}

// Delete removes the order without touching stock.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.log().Info("order deleted", zap.Int64("order_id", id))
	return nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.Store.Stats(ctx)
}
