package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `p.id, p.name, p.description, p.category_id, p.price, p.stock, p.featured,
	p.images, p.colors, p.sizes, p.views, p.created_at, p.updated_at`

var errProductNotFound = apperr.NotFound("Product not found")

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products p ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProduct loads a product together with its category.
func (r *Repo) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+`, c.id, c.name, COALESCE(c.description, ''), COALESCE(c.icon, '')
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`, id)

	var (
		p      Product
		c      Category
		images []byte
		colors []byte
		sizes  []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.Price, &p.Stock, &p.Featured,
		&images, &colors, &sizes, &p.Views, &p.CreatedAt, &p.UpdatedAt,
		&c.ID, &c.Name, &c.Description, &c.Icon)
	if postgres.IsNoRows(err) {
		return nil, errProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := decodeVariants(&p, images, colors, sizes); err != nil {
		return nil, err
	}
	p.Category = &c
	return &p, nil
}

// FindProducts returns the products that exist among ids, keyed by id.
func (r *Repo) FindProducts(ctx context.Context, ids []int64) (map[int64]Product, error) {
	out := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	images, colors, sizes, err := encodeVariants(p)
	if err != nil {
		return err
	}
	err = r.DB.QueryRow(ctx, `
		INSERT INTO products(name, description, category_id, price, stock, featured, images, colors, sizes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, views, created_at, updated_at`,
		p.Name, p.Description, p.CategoryID, p.Price, p.Stock, p.Featured, images, colors, sizes,
	).Scan(&p.ID, &p.Views, &p.CreatedAt, &p.UpdatedAt)
	if postgres.IsForeignKeyViolation(err) {
		return apperr.Validation("Category not found")
	}
	return err
}

// UpdateProduct writes every mutable column of p.
func (r *Repo) UpdateProduct(ctx context.Context, p *Product) error {
	images, colors, sizes, err := encodeVariants(p)
	if err != nil {
		return err
	}
	err = r.DB.QueryRow(ctx, `
		UPDATE products
		SET name=$2, description=$3, category_id=$4, price=$5, stock=$6, featured=$7,
		    images=$8, colors=$9, sizes=$10, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		p.ID, p.Name, p.Description, p.CategoryID, p.Price, p.Stock, p.Featured, images, colors, sizes,
	).Scan(&p.UpdatedAt)
	if postgres.IsNoRows(err) {
		return errProductNotFound
	}
	return err
}

func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errProductNotFound
	}
	return nil
}

func (r *Repo) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	var featured bool
	err := r.DB.QueryRow(ctx, `UPDATE products SET featured = NOT featured, updated_at = now()
		WHERE id=$1 RETURNING featured`, id).Scan(&featured)
	if postgres.IsNoRows(err) {
		return false, errProductNotFound
	}
	return featured, err
}

func (r *Repo) IncrementViews(ctx context.Context, id int64) (int, error) {
	var views int
	err := r.DB.QueryRow(ctx, `UPDATE products SET views = views + 1 WHERE id=$1 RETURNING views`, id).Scan(&views)
	if postgres.IsNoRows(err) {
		return 0, errProductNotFound
	}
	return views, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p      Product
		images []byte
		colors []byte
		sizes  []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.Price, &p.Stock, &p.Featured,
		&images, &colors, &sizes, &p.Views, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	return p, decodeVariants(&p, images, colors, sizes)
}

func decodeVariants(p *Product, images, colors, sizes []byte) error {
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return fmt.Errorf("decode images of product %d: %w", p.ID, err)
	}
	if err := json.Unmarshal(colors, &p.Colors); err != nil {
		return fmt.Errorf("decode colors of product %d: %w", p.ID, err)
	}
	if err := json.Unmarshal(sizes, &p.Sizes); err != nil {
		return fmt.Errorf("decode sizes of product %d: %w", p.ID, err)
	}
	normalize(p)
	return nil
}

func encodeVariants(p *Product) (images, colors, sizes []byte, err error) {
	normalize(p)
	if images, err = json.Marshal(p.Images); err != nil {
		return
	}
	if colors, err = json.Marshal(p.Colors); err != nil {
		return
	}
	sizes, err = json.Marshal(p.Sizes)
	return
}

// normalize keeps JSON arrays non-null on the wire and in the database.
func normalize(p *Product) {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Colors == nil {
		p.Colors = []Color{}
	}
	if p.Sizes == nil {
		p.Sizes = []Size{}
	}
}
