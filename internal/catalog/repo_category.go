package catalog

import (
	"context"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/postgres"
)

var (
	errCategoryNotFound = apperr.NotFound("Category not found")
	errCategoryExists   = apperr.Conflict("Category already exists")
)

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, COALESCE(description, ''), COALESCE(icon, '')
		FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `SELECT id, name, COALESCE(description, ''), COALESCE(icon, '')
		FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name, &c.Description, &c.Icon)
	if postgres.IsNoRows(err) {
		return nil, errCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) CreateCategory(ctx context.Context, c *Category) error {
	err := r.DB.QueryRow(ctx, `INSERT INTO categories(name, description, icon)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, '')) RETURNING id`,
		c.Name, c.Description, c.Icon).Scan(&c.ID)
	if postgres.IsUniqueViolation(err) {
		return errCategoryExists
	}
	return err
}

func (r *Repo) UpdateCategory(ctx context.Context, c *Category) error {
	ct, err := r.DB.Exec(ctx, `UPDATE categories SET name=$2, description=NULLIF($3, ''), icon=NULLIF($4, '')
		WHERE id=$1`, c.ID, c.Name, c.Description, c.Icon)
	if postgres.IsUniqueViolation(err) {
		return errCategoryExists
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errCategoryNotFound
	}
	return nil
}

func (r *Repo) DeleteCategory(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return apperr.Conflict("Category still has products")
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errCategoryNotFound
	}
	return nil
}
