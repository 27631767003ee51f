package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Owners caches live ownership. Redis errors read as a miss; the store decides.
type Owners struct{ RDB redis.Cmdable }

func (o Owners) Owned(ctx context.Context, userID, productID string) bool {
	ok, err := Exists(ctx, o.RDB, fmt.Sprintf(KeyOwned, userID, productID))
	return err == nil && ok
}

func (o Owners) MarkOwned(ctx context.Context, userID, productID string) {
	if err := o.RDB.Set(ctx, fmt.Sprintf(KeyOwned, userID, productID), "1", TTLOwned).Err(); err != nil {
		log.Printf("[redis] mark owned user=%s product=%s: %v", userID, productID, err)
	}
}

// Forget drops the ownership key once a payment fails and the slot is free again.
func (o Owners) Forget(ctx context.Context, userID, productID string) {
	if err := o.RDB.Del(ctx, fmt.Sprintf(KeyOwned, userID, productID)).Err(); err != nil {
		log.Printf("[redis] forget owned user=%s product=%s: %v", userID, productID, err)
	}
}

// Dedup records processed event ids per consuming service.
type Dedup struct{ RDB redis.Cmdable }

func (d Dedup) Seen(ctx context.Context, service, eventID string) bool {
	ok, _ := Exists(ctx, d.RDB, fmt.Sprintf(KeyDedup, service, eventID))
	return ok
}

func (d Dedup) Mark(ctx context.Context, service, eventID string) {
	_ = d.RDB.Set(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Err()
}

// releaseScript deletes the lock only if the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locks is a SET NX lock with a holder token.
type Locks struct{ RDB redis.Cmdable }

func (l Locks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	k := fmt.Sprintf(KeyDeliveryLock, key)
	token := uuid.NewString()
	ok, err := l.RDB.SetNX(ctx, k, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		if err := releaseScript.Run(context.Background(), l.RDB, []string{k}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("[redis] release %s: %v", k, err)
		}
	}, true, nil
}

type PaymentStatus struct {
	Reference string    `json:"payment_reference"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache holds terminal payment states only; pending is never cached.
type StatusCache struct{ RDB redis.Cmdable }

func (c StatusCache) Get(ctx context.Context, ref string) (PaymentStatus, bool) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(KeyPaymentStatus, ref)).Result()
	if err != nil || s == "" {
		return PaymentStatus{}, false
	}
	var ps PaymentStatus
	if json.Unmarshal([]byte(s), &ps) != nil {
		return PaymentStatus{}, false
	}
	return ps, true
}

func (c StatusCache) Put(ctx context.Context, ps PaymentStatus) {
	b, _ := json.Marshal(ps)
	_ = c.RDB.Set(ctx, fmt.Sprintf(KeyPaymentStatus, ps.Reference), b, TTLStatusCache).Err()
}
