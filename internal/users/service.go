package users

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/auth"
	"github.com/ariefcatur/mars-shop.git/internal/orders"
)

type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}

type TokenIssuer interface {
	Issue(p auth.Principal) (string, time.Time, error)
}

type Service struct {
	Store  Store
	Tokens TokenIssuer
	Log    *zap.Logger
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

var (
	errBadCredentials = apperr.Unauthorized("Invalid credentials.")
	validate          = validator.New()
)

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", apperr.Validation("Invalid email address")
	}
	return email, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("Missing required fields.")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password, s.Cost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Phone:        in.Phone,
		Address:      in.Address,
		Roles:        []string{auth.RoleUser},
		PasswordHash: hash,
	}
	if err := s.Store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.Store.GetByEmail(ctx, strings.TrimSpace(email))
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.CheckPassword(password) {
		return nil, errBadCredentials
	}
	tok, exp, err := s.Tokens.Issue(u.Principal())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.Store.List(ctx)
}

func (s *Service) Contact(ctx context.Context, id int64) (orders.Contact, error) {
	u, err := s.Store.Get(ctx, id)
	if err != nil {
		return orders.Contact{}, err
	}
	return u.Contact(), nil
}

// ProfilePatch is what a user may change on their own account.
type ProfilePatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

func (s *Service) UpdateMe(ctx context.Context, id int64, p ProfilePatch) (*User, error) {
	u, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		if u.Email, err = normalizeEmail(*p.Email); err != nil {
			return nil, err
		}
	}
	if p.Password != nil && *p.Password != "" {
		if u.PasswordHash, err = hashPassword(*p.Password, s.Cost); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if err := s.Store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AdminPatch is what the back office may change on any account.
type AdminPatch struct {
	Roles []string `json:"roles"`
	Name  *string  `json:"name"`
	Email *string  `json:"email"`
	Note  *string  `json:"note"`
}

func (s *Service) Update(ctx context.Context, id int64, p AdminPatch) (*User, error) {
	u, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Roles != nil {
		roles := slices.Clone(p.Roles)
		if !slices.Contains(roles, auth.RoleUser) {
			roles = append(roles, auth.RoleUser)
		}
		u.Roles = roles
	}
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		if u.Email, err = normalizeEmail(*p.Email); err != nil {
			return nil, err
		}
	}
	if p.Note != nil {
		u.Note = *p.Note
	}
	if err := s.Store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.Store.Delete(ctx, id)
}

// EnsureAdmin creates the bootstrap administrator, or grants the role to an
// existing account with that email. Empty credentials are a no-op.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := s.Store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if slices.Contains(u.Roles, auth.RoleAdmin) {
			return nil
		}
		u.Roles = append(u.Roles, auth.RoleAdmin)
		return s.Store.Update(ctx, u)
	case !apperr.Is(err, apperr.KindNotFound):
		return err
	}

	hash, err := hashPassword(password, s.Cost)
	if err != nil {
		return err
	}
	u = &User{Email: email, Name: "Admin", Roles: []string{auth.RoleAdmin, auth.RoleUser}, PasswordHash: hash}
	if err := s.Store.Create(ctx, u); err != nil {
		return err
	}
	if s.Log != nil {
		s.Log.Info("admin account created", zap.String("email", email))
	}
	return nil
}
