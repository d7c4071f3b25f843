package storage

import "time"

// Envelope wraps a KV value with its absolute expiry for backends that
// have no native ttl support.
type Envelope struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"` // unix ms, 0 = never
}

// Seal builds an Envelope for value expiring ttl after now.
func Seal(value []byte, ttl time.Duration, now time.Time) *Envelope {
	env := &Envelope{Value: append([]byte(nil), value...)}
	if ttl > 0 {
		env.ExpiresAt = now.Add(ttl).UnixMilli()
	}
	return env
}

// Expired reports whether the envelope's ttl has elapsed at now.
func (e *Envelope) Expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixMilli() >= e.ExpiresAt
}
