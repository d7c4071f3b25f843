package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrKindMismatch     = errors.New("invalid session kind")
	ErrKeyMismatch      = errors.New("invalid session key")
	ErrExpired          = errors.New("session expired")
	ErrUnknownKind      = errors.New("unknown session kind")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Kind separates classes of session record so that a record issued for one
// purpose never validates as another.
type Kind string

const (
	KindSignin Kind = "signin"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSignin:
		return true
	}
	return false
}

// ParseKind accepts a kind name in any letter case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	if !k.Valid() {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownKind)
	}
	return k, nil
}

// Record is the server-side state of one session, stored under its ID.
type Record struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	UserID    string `json:"uid"`
	UserToken string `json:"user_token"`
	Key       string `json:"key"`
	ExpiresAt int64  `json:"expires_at"` // unix ms
}

func (r *Record) expired(now time.Time) bool {
	return r.ExpiresAt < now.UnixMilli()
}

// Token is returned to the client when a session is created. ID travels in
// the session cookie; Key is only ever sent in a request header.
type Token struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// Claims is what a successful validation yields.
type Claims struct {
	UserID    string `json:"uid"`
	UserToken string `json:"user_token"`
}

// AfterValidation selects what happens to a record once it validates.
type AfterValidation struct {
	remove bool
	extend time.Duration
}

// Delete consumes the record on successful validation.
func Delete() AfterValidation {
	return AfterValidation{remove: true}
}

// ExtendBy pushes the record's expiry to now+d on successful validation.
func ExtendBy(d time.Duration) AfterValidation {
	return AfterValidation{extend: d}
}

func (a AfterValidation) String() string {
	if a.remove {
		return "delete"
	}
	return "extend:" + a.extend.String()
}
