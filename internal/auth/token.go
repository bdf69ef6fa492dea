// Package auth issues and verifies bearer tokens and carries the caller in the request context.
package auth

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
)

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Email  string
	Roles  []string
}

// HasRole reports whether p holds role. Admins hold every user role too.
func (p Principal) HasRole(role string) bool {
	if slices.Contains(p.Roles, role) {
		return true
	}
	return role == RoleUser && slices.Contains(p.Roles, RoleAdmin)
}

type Claims struct {
	jwt.RegisteredClaims
	UserID int64    `json:"user_id"`
	Email  string   `json:"username"`
	Roles  []string `json:"roles"`
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration, issuer string) *Tokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue signs an HS256 token for p and returns it with its expiry.
func (t *Tokens) Issue(p Principal) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(p.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: p.UserID,
		Email:  p.Email,
		Roles:  p.Roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

var errInvalidToken = apperr.Unauthorized("Invalid JWT Token")

// Verify checks signature and lifetime and returns the caller the token was issued to.
func (t *Tokens) Verify(token string) (Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithIssuer(t.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, apperr.Unauthorized("Expired JWT Token")
		}
		return Principal{}, errInvalidToken
	}
	if !parsed.Valid || claims.UserID == 0 {
		return Principal{}, errInvalidToken
	}
	return Principal{UserID: claims.UserID, Email: claims.Email, Roles: claims.Roles}, nil
}
