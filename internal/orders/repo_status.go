package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/catalog"
	"github.com/ariefcatur/mars-shop.git/internal/postgres"
)

// UpdateStatus sets the order status and reconciles product stock in one transaction.
// The order row and every touched product row are locked (FOR UPDATE), so concurrent
// transitions on the same order or product serialize instead of losing updates.
// The status is written whatever the stock effect is: products or items that
// cannot be decoded are logged and left alone.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, next Status) (prev Status, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		current string
		raw     []byte
	)
	err = tx.QueryRow(ctx, `SELECT status, items FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&current, &raw)
	if postgres.IsNoRows(err) {
		return "", errOrderNotFound
	}
	if err != nil {
		return "", err
	}
	prev = Status(current)

	if dir := StockEffect(prev, next); dir != 0 {
		var items []Item
		if err := json.Unmarshal(raw, &items); err != nil {
			r.log().Warn("order items unreadable, stock left unchanged", zap.Int64("order_id", id), zap.Error(err))
		} else if err := r.reconcileStock(ctx, tx, items, dir); err != nil {
			return "", fmt.Errorf("reconcile stock for order %d: %w", id, err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, string(next)); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return prev, nil
}

// reconcileStock locks the products referenced by items in id order, applies the
// stock movement and writes back aggregate and per-size counters.
func (r *Repo) reconcileStock(ctx context.Context, tx pgx.Tx, items []Item, dir catalog.Direction) error {
	ids := productIDs(items)
	if len(ids) == 0 {
		return nil
	}

	rows, err := tx.Query(ctx, `SELECT id, stock, sizes FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return err
	}
	products := make(map[int64]*catalog.Product, len(ids))
	for rows.Next() {
		var (
			p     catalog.Product
			sizes []byte
		)
		if err := rows.Scan(&p.ID, &p.Stock, &sizes); err != nil {
			rows.Close()
			return err
		}
		if err := json.Unmarshal(sizes, &p.Sizes); err != nil {
			r.log().Warn("product sizes unreadable, stock left unchanged", zap.Int64("product_id", p.ID), zap.Error(err))
			continue
		}
		products[p.ID] = &p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, pid := range ApplyStock(items, dir, products) {
		p := products[pid]
		if p.Sizes == nil {
			p.Sizes = []catalog.Size{}
		}
		sizes, err := json.Marshal(p.Sizes)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE products SET stock=$2, sizes=$3, updated_at=now() WHERE id=$1`,
			p.ID, p.Stock, sizes); err != nil {
			return err
		}
	}
	return nil
}
