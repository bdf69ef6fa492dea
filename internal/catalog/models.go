package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  int64           `json:"category"`
	Category    *Category       `json:"-"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
	Images      []string        `json:"images"`
	Colors      []Color         `json:"colors"`
	Sizes       []Size          `json:"sizes"`
	Views       int             `json:"views"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// FirstImage returns the main product image, or "".
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Size is a stock-bearing variant. Its counter is independent of Product.Stock.
type Size struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// Color is presentational only; it carries no stock.
type Color struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Value  Multi    `json:"value"`
	Images []string `json:"images"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Variants are the option lists a cart line needs to re-select color and size.
type Variants struct {
	Colors []Color
	Sizes  []Size
}
