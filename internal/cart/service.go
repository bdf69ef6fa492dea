package cart

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/catalog"
)

const DefaultTTL = 72 * time.Hour

type Store interface {
	Load(ctx context.Context, userID int64) (*Cart, error)
	Save(ctx context.Context, userID int64, c Cart) error
	Delete(ctx context.Context, userID int64) error
}

type VariantSource interface {
	Variants(ctx context.Context, ids []int64) (map[int64]catalog.Variants, error)
}

type Service struct {
	Store    Store
	Variants VariantSource
	TTL      time.Duration
	Log      *zap.Logger
	Now      func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultTTL
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// Get returns the stored cart with each line's product options. A user without
// a cart gets an empty list and a nil expiry.
func (s *Service) Get(ctx context.Context, userID int64) (View, error) {
	c, err := s.Store.Load(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("load cart: %w", err)
	}
	if c == nil {
		return View{Items: []ItemView{}}, nil
	}
	return s.view(ctx, *c)
}

func (s *Service) view(ctx context.Context, c Cart) (View, error) {
	ids := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ProductID != 0 {
			ids = append(ids, int64(it.ProductID))
		}
	}
	variants := map[int64]catalog.Variants{}
	if len(ids) > 0 && s.Variants != nil {
		var err error
		if variants, err = s.Variants.Variants(ctx, ids); err != nil {
			return View{}, fmt.Errorf("load variants: %w", err)
		}
	}

	out := View{Items: make([]ItemView, 0, len(c.Items))}
	if !c.ExpiresAt.IsZero() {
		exp := c.ExpiresAt
		out.ExpiresAt = &exp
	}
	for _, it := range c.Items {
		v := variants[int64(it.ProductID)]
		iv := ItemView{Item: it, Colors: v.Colors, Sizes: v.Sizes}
		if iv.Colors == nil {
			iv.Colors = []catalog.Color{}
		}
		if iv.Sizes == nil {
			iv.Sizes = []catalog.Size{}
		}
		out.Items = append(out.Items, iv)
	}
	return out, nil
}

// Replace overwrites the whole cart. When items equal the stored list nothing is
// written and the expiry is left as it was; every real write moves it to now+TTL.
func (s *Service) Replace(ctx context.Context, userID int64, items []Item) (View, error) {
	if items == nil {
		return View{}, apperr.Validation("Invalid or missing items.")
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.UniqueID == "" {
			return View{}, apperr.Validation("Every cart item needs a uniqueId")
		}
		if _, dup := seen[it.UniqueID]; dup {
			return View{}, apperr.Validation(fmt.Sprintf("duplicate uniqueId %q", it.UniqueID))
		}
		seen[it.UniqueID] = struct{}{}
		if it.Quantity <= 0 {
			return View{}, apperr.Validation("Cart item quantity must be positive")
		}
	}

	stored, err := s.Store.Load(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("load cart: %w", err)
	}
	if stored != nil && sameItems(stored.Items, items) {
		return s.view(ctx, *stored)
	}

	c := Cart{Items: items, ExpiresAt: s.now().Add(s.ttl())}
	if err := s.Store.Save(ctx, userID, c); err != nil {
		return View{}, fmt.Errorf("save cart: %w", err)
	}
	if s.Log != nil {
		s.Log.Debug("cart replaced", zap.Int64("user_id", userID), zap.Int("items", len(items)))
	}
	return s.view(ctx, c)
}

// Clear removes the stored cart. Clearing a missing cart is not an error.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.Store.Delete(ctx, userID)
}
