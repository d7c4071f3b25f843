package auth

import "strings"

// Wire names of the credential headers. HeaderTokenID is also the name of
// the session cookie.
const (
	HeaderTokenID   = "X-OMI-TOKEN-ID"
	HeaderTokenKey  = "X-OMI-TOKEN-KEY"
	HeaderAdminCode = "X-OMI-ADMIN-CODE"
	HeaderAdminUID  = "X-OMI-ADMIN-UID"
)

// Headers lists every credential header a browser client may send.
var Headers = []string{HeaderTokenKey, HeaderTokenID, HeaderAdminCode, HeaderAdminUID}

// SigninCookie returns the Set-Cookie value carrying a new session id. The
// API lives on a different site from the frontend, so the cookie must be
// SameSite=None and partitioned.
func SigninCookie(tokenID string) string {
	return HeaderTokenID + "=" + tokenID + "; Path=/; HttpOnly; Secure; Partitioned; SameSite=None; Max-Age=2147483647"
}

// ClearSigninCookie returns the Set-Cookie value that removes the session cookie.
func ClearSigninCookie() string {
	return HeaderTokenID + "=; path=/; expires=Thu, 01 Jan 1970 00:00:00 GMT"
}

// CookieValue extracts the value of the cookie called name from a raw
// Cookie header. Pairs are split on ';' and trimmed; the name match is
// case-sensitive and the first match wins.
func CookieValue(header, name string) string {
	prefix := name + "="
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, prefix) {
			return part[len(prefix):]
		}
	}
	return ""
}
