package domain

import (
	"strconv"
	"time"
)

// SessionToken is a bearer token issued by a successful login.
type SessionToken struct {
	Value     uint64
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer valid at now.
func (t SessionToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Key is the hex form used by token stores.
func (t SessionToken) Key() string {
	return TokenKey(t.Value)
}

// TokenKey formats a raw token value as a store key.
func TokenKey(v uint64) string {
	return strconv.FormatUint(v, 16)
}
