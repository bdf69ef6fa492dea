package orders

import (
	"fmt"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/catalog"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var known = map[Status]bool{
	StatusPending:    true,
	StatusConfirmed:  true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

func (s Status) Valid() bool { return known[s] }

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", apperr.Validation(fmt.Sprintf("unknown order status %q", s))
	}
	return st, nil
}

// StockEffect tells how product stock moves when an order goes from prev to next.
// Only crossing the confirmed boundary moves stock; it returns 0 otherwise.
func StockEffect(prev, next Status) catalog.Direction {
	switch {
	case prev != StatusConfirmed && next == StatusConfirmed:
		return catalog.Decrease
	case prev == StatusConfirmed && next != StatusConfirmed:
		return catalog.Increase
	default:
		return 0
	}
}
