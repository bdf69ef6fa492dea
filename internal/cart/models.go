package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/mars-shop.git/internal/catalog"
)

// Item is one cart line. The same product may appear on several lines with
// different variants; UniqueID tells them apart.
type Item struct {
	ProductID catalog.ID      `json:"productId"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Color     catalog.Multi   `json:"color,omitempty"`
	ColorName catalog.Multi   `json:"colorName,omitempty"`
	Size      string          `json:"size,omitempty"`
	UniqueID  string          `json:"uniqueId"`
}

func (it Item) Equal(o Item) bool {
	return it.ProductID == o.ProductID &&
		it.Quantity == o.Quantity &&
		it.Name == o.Name &&
		it.Price.Equal(o.Price) &&
		it.Image == o.Image &&
		it.Color.Equal(o.Color) &&
		it.ColorName.Equal(o.ColorName) &&
		it.Size == o.Size &&
		it.UniqueID == o.UniqueID
}

type Cart struct {
	Items     []Item    `json:"items"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sameItems(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// ItemView is a stored line plus the current option lists of its product.
type ItemView struct {
	Item
	Colors []catalog.Color `json:"colors"`
	Sizes  []catalog.Size  `json:"sizes"`
}

type View struct {
	Items     []ItemView `json:"items"`
	ExpiresAt *time.Time `json:"expiresAt"`
}
