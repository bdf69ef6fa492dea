package users

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/orders"
	"github.com/ariefcatur/mars-shop.git/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

var (
	errUserNotFound = apperr.NotFound("User not found")
	errEmailTaken   = apperr.Conflict("Email already used")
)

const userColumns = `id, email, name, COALESCE(phone, ''), COALESCE(address, ''), COALESCE(note, ''),
	roles, password_hash, created_at`

func (r *Repo) Create(ctx context.Context, u *User) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return err
	}
	err = r.DB.QueryRow(ctx, `
		INSERT INTO users(email, name, phone, address, note, roles, password_hash)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING id, created_at`,
		u.Email, u.Name, u.Phone, u.Address, u.Note, roles, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return errEmailTaken
	}
	return err
}

func (r *Repo) Get(ctx context.Context, id int64) (*User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetByEmail matches case-insensitively.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=$1`, strings.ToLower(email))
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, u *User) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE users SET email=$2, name=$3, phone=NULLIF($4, ''), address=NULLIF($5, ''), note=NULLIF($6, ''),
		       roles=$7, password_hash=$8
		WHERE id=$1`,
		u.ID, u.Email, u.Name, u.Phone, u.Address, u.Note, roles, u.PasswordHash)
	if postgres.IsUniqueViolation(err) {
		return errEmailTaken
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errUserNotFound
	}
	return nil
}

// Delete removes the account; its orders stay and lose their owner.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errUserNotFound
	}
	return nil
}

func (r *Repo) Contact(ctx context.Context, id int64) (orders.Contact, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return orders.Contact{}, err
	}
	return u.Contact(), nil
}

func (r *Repo) one(ctx context.Context, sql string, arg any) (*User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, sql, arg))
	if postgres.IsNoRows(err) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u     User
		roles []byte
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Address, &u.Note, &roles, &u.PasswordHash, &u.CreatedAt); err != nil {
		return u, err
	}
	if err := json.Unmarshal(roles, &u.Roles); err != nil {
		return u, fmt.Errorf("decode roles of user %d: %w", u.ID, err)
	}
	return u, nil
}
