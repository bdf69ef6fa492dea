package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/postgres"
)

type Repo struct {
	DB  *pgxpool.Pool
	Log *zap.Logger
}

func (r *Repo) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

var errOrderNotFound = apperr.NotFound("Order not found")

const orderColumns = `id, user_id, status, items, total, COALESCE(customer_name, ''), COALESCE(customer_phone, ''),
	COALESCE(customer_address, ''), COALESCE(notes, ''), created_at, COALESCE(idempotency_key, '')`

// Create inserts the order in a single statement; items are stored as given.
// A second insert with the same idempotency key inserts nothing and loads the
// first order into o, even when both run concurrently.
func (r *Repo) Create(ctx context.Context, o *Order) (bool, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return false, fmt.Errorf("encode items: %w", err)
	}
	err = r.DB.QueryRow(ctx, `
		INSERT INTO orders(user_id, status, items, total, customer_name, customer_phone, customer_address, notes, created_at, idempotency_key)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, NULLIF($10, ''))
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`,
		o.UserID, string(o.Status), items, o.Total, o.CustomerName, o.CustomerPhone, o.CustomerAddress, o.Notes, o.CreatedAt,
		o.IdempotencyKey,
	).Scan(&o.ID)
	if err == nil {
		return false, nil
	}
	if !postgres.IsNoRows(err) || o.IdempotencyKey == "" {
		return false, err
	}

	existing, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key=$1`, o.IdempotencyKey))
	if err != nil {
		return false, fmt.Errorf("load order for idempotency key: %w", err)
	}
	*o = existing
	return true, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if postgres.IsNoRows(err) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) List(ctx context.Context) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
}

// Delete removes the order. Stock taken by a confirmed order is not given back.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errOrderNotFound
	}
	return nil
}

func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM orders`).Scan(&s.TotalOrders, &s.TotalRevenue)
	return s, err
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o      Order
		status string
		items  []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &items, &o.Total, &o.CustomerName, &o.CustomerPhone,
		&o.CustomerAddress, &o.Notes, &o.CreatedAt, &o.IdempotencyKey); err != nil {
		return o, err
	}
	o.Status = Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("decode items of order %d: %w", o.ID, err)
	}
	return o, nil
}
