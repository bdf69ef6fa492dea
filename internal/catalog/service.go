package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
)

// Store is the persistence the catalog service needs. *Repo implements it.
type Store interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	FindProducts(ctx context.Context, ids []int64) (map[int64]Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ToggleFeatured(ctx context.Context, id int64) (bool, error)
	IncrementViews(ctx context.Context, id int64) (int, error)

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

type Service struct {
	Store Store
}

type ProductInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    CategoryRef      `json:"category"`
	Stock       int              `json:"stock"`
	Featured    bool             `json:"featured"`
	Images      []string         `json:"images"`
	Image       string           `json:"image"`
	Colors      []Color          `json:"colors"`
	Sizes       []Size           `json:"sizes"`
}

// ProductPatch is a partial update; nil fields are left unchanged.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *CategoryRef     `json:"category"`
	Stock       *int             `json:"stock"`
	Featured    *bool            `json:"featured"`
	Images      []string         `json:"images"`
	Colors      []Color          `json:"colors"`
	Sizes       []Size           `json:"sizes"`
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.Store.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.Store.GetProduct(ctx, id)
}

// FindProducts is the lookup used by orders and carts; missing ids are simply absent.
func (s *Service) FindProducts(ctx context.Context, ids []int64) (map[int64]Product, error) {
	return s.Store.FindProducts(ctx, ids)
}

// Variants returns the color and size options of each existing product among ids.
func (s *Service) Variants(ctx context.Context, ids []int64) (map[int64]Variants, error) {
	ps, err := s.Store.FindProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Variants, len(ps))
	for id, p := range ps {
		out[id] = Variants{Colors: p.Colors, Sizes: p.Sizes}
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	images := in.Images
	if len(images) == 0 && in.Image != "" {
		images = []string{in.Image}
	}
	if strings.TrimSpace(in.Name) == "" || in.Price == nil || in.Description == "" || len(images) == 0 {
		return nil, apperr.Validation("Missing required product fields")
	}
	if in.Category == 0 {
		return nil, apperr.Validation("Missing or invalid category")
	}
	if _, err := s.Store.GetCategory(ctx, int64(in.Category)); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("Category not found")
		}
		return nil, err
	}

	p := &Product{
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  int64(in.Category),
		Price:       *in.Price,
		Stock:       in.Stock,
		Featured:    in.Featured,
		Images:      images,
		Colors:      in.Colors,
		Sizes:       in.Sizes,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.Store.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateProduct applies patch to the stored product. An unknown category is ignored.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*Product, error) {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.Images != nil {
		p.Images = patch.Images
	}
	if patch.Colors != nil {
		p.Colors = patch.Colors
	}
	if patch.Sizes != nil {
		p.Sizes = patch.Sizes
	}
	if patch.Category != nil && *patch.Category != 0 {
		c, err := s.Store.GetCategory(ctx, int64(*patch.Category))
		switch {
		case err == nil:
			p.CategoryID = c.ID
			p.Category = c
		case !apperr.Is(err, apperr.KindNotFound):
			return nil, err
		}
	}

	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.Store.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.Store.DeleteProduct(ctx, id)
}

func (s *Service) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	return s.Store.ToggleFeatured(ctx, id)
}

func (s *Service) IncrementViews(ctx context.Context, id int64) (int, error) {
	return s.Store.IncrementViews(ctx, id)
}

func validateProduct(p *Product) error {
	if p.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	if p.Stock < 0 {
		return apperr.Validation("stock must not be negative")
	}
	for _, sz := range p.Sizes {
		if sz.Stock < 0 {
			return apperr.Validation(fmt.Sprintf("stock of size %q must not be negative", sz.Name))
		}
	}
	return nil
}

type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.Store.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("Category name is required")
	}
	c := &Category{Name: strings.TrimSpace(*in.Name)}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if err := s.Store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*Category, error) {
	c, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.Validation("Category name is required")
		}
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if err := s.Store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.Store.DeleteCategory(ctx, id)
}
