package redisx

import "time"

const (
	// Ownership fast path: owned:{user_id}:{product_id} -> purchase is live
	KeyOwned = "owned:%s:%s"

	// Cache of settled payment status: payment_status:{reference} -> {"status": "...", ...}
	KeyPaymentStatus = "payment_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Delivery lock per purchase: lock:delivery:{purchase_id} -> holder token
	KeyDeliveryLock = "lock:delivery:%s"
)

var (
	TTLOwned       = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
