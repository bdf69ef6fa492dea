package redisx

import "time"

const (
	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cart per user: cart:{user_id} -> JSON cart, expires with the cart
	KeyCart = "cart:%d"
)

var (
	TTLDedup = 48 * time.Hour
)
