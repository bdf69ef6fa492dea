package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/mars-shop.git/internal/catalog"
)

// UnknownProductName is stored when an item has no name and its product cannot be found.
const UnknownProductName = "Produit inconnu"

// Item is one order line. Items are fixed once the order is created.
type Item struct {
	ProductID catalog.ID      `json:"productId,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Color     catalog.Multi   `json:"color,omitempty"`
	ColorName catalog.Multi   `json:"colorName,omitempty"`
	Size      string          `json:"size,omitempty"`
}

func (it Item) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          *int64          `json:"userId,omitempty"`
	Status          Status          `json:"status"`
	Items           []Item          `json:"items"`
	Total           decimal.Decimal `json:"total"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerAddress string          `json:"customerAddress"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"createdAt"`
	IdempotencyKey  string          `json:"-"`
}

// ItemView is an item enriched with the current product name and image for the back office.
type ItemView struct {
	Item
	ProductName  *string `json:"productName"`
	ProductImage *string `json:"productImage"`
}

type AdminOrder struct {
	Order
	Items []ItemView `json:"items"`
	User  *Contact   `json:"user,omitempty"`
}

// Contact identifies the account that placed an order.
type Contact struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type Stats struct {
	TotalOrders  int64           `json:"totalOrders"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}
