package cache

import (
	"fmt"
	"time"
)

const (
	// Checkout idempotency: idem:checkout:{buyer_id}:{key} -> "pending" | order_id
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Revoked access tokens: auth:revoked:{jti} -> "1"
	KeyRevokedToken = "auth:revoked:%s"
)

// IdemPending marks a checkout that holds the idempotency key but has not
// committed yet.
const IdemPending = "pending"

var (
	TTLIdempotency  = 24 * time.Hour
	TTLCheckoutLock = 30 * time.Second
)

func IdemCheckoutKey(buyerID, key string) string {
	return fmt.Sprintf(KeyIdemCheckout, buyerID, key)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(KeyRevokedToken, jti)
}
