package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/mars-shop.git/internal/auth"
	"github.com/ariefcatur/mars-shop.git/internal/orders"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Note         string    `json:"note"`
	Roles        []string  `json:"roles"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Email: u.Email, Roles: u.Roles}
}

func (u *User) Contact() orders.Contact {
	return orders.Contact{ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone, Address: u.Address}
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
