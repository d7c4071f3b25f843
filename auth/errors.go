package auth

import "errors"

var (
	// ErrNotAuthorized is the only authentication failure callers ever see.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInternal reports an infrastructure failure while authenticating.
	// It is not a security signal and is surfaced separately.
	ErrInternal = errors.New("internal authentication error")
)

// Internal causes. These are logged and never leave the resolver.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrAdminCheckFailed  = errors.New("not an admin")
	ErrInvalidAdminUID   = errors.New("invalid admin uid")
	ErrUserTokenMismatch = errors.New("user token mismatch")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidHash       = errors.New("invalid telegram login hash")
)
