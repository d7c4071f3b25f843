package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind is the authorization a route requires.
type Kind int

const (
	// KindNone routes read no credentials at all.
	KindNone Kind = iota
	// KindAdmin routes require the admin code header.
	KindAdmin
	// KindFull routes require a valid session whose user token matches the account.
	KindFull
	// KindNoAuthCookieSetter routes perform no checks but may set the session cookie.
	KindNoAuthCookieSetter
	// KindPartialAuthTokenOnly routes require a valid session but skip the
	// user token comparison, so sign-out works after a global revocation.
	KindPartialAuthTokenOnly
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAdmin:
		return "admin"
	case KindFull:
		return "full"
	case KindNoAuthCookieSetter:
		return "no_auth_cookie_setter"
	case KindPartialAuthTokenOnly:
		return "partial_auth_token_only"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Route identifies one API endpoint.
type Route int

const (
	RouteInfo Route = iota
	RouteAuthRegister
	RouteAuthSignin
	RouteAuthCheck
	RouteAuthSignout
	RouteAdminTelegramSetWebHook
	RouteAdminPopulateFakeUser
	RouteActionListDestinations
	RouteActionAdd
	RouteActionDelete
	RouteActionList
	RouteTelegramWebHook
	RouteOmiWebHook
)

// Routes lists every route in registration order.
var Routes = []Route{
	RouteInfo,
	RouteAuthRegister,
	RouteAuthSignin,
	RouteAuthCheck,
	RouteAuthSignout,
	RouteAdminTelegramSetWebHook,
	RouteAdminPopulateFakeUser,
	RouteActionListDestinations,
	RouteActionAdd,
	RouteActionDelete,
	RouteActionList,
	RouteTelegramWebHook,
	RouteOmiWebHook,
}

// AuthKind returns the authorization kind for r. Every route must be
// listed here explicitly; an unlisted route panics at router construction.
func (r Route) AuthKind() Kind {
	switch r {
	case RouteAuthCheck:
		return KindFull
	case RouteAuthRegister, RouteAuthSignin:
		return KindNoAuthCookieSetter
	case RouteAuthSignout:
		return KindPartialAuthTokenOnly
	case RouteActionListDestinations, RouteActionAdd, RouteActionDelete, RouteActionList:
		return KindFull
	case RouteAdminTelegramSetWebHook, RouteAdminPopulateFakeUser:
		return KindAdmin
	case RouteInfo, RouteTelegramWebHook, RouteOmiWebHook:
		return KindNone
	}
	panic(fmt.Sprintf("auth: route %d has no authorization kind", int(r)))
}

// Path returns the route path relative to the API root, without a leading slash.
func (r Route) Path() string {
	switch r {
	case RouteInfo:
		return "info"
	case RouteAuthRegister:
		return "auth/register"
	case RouteAuthSignin:
		return "auth/signin"
	case RouteAuthCheck:
		return "auth/check"
	case RouteAuthSignout:
		return "auth/signout"
	case RouteAdminTelegramSetWebHook:
		return "admin/tg/set-web-hook"
	case RouteAdminPopulateFakeUser:
		return "admin/populate-fake-user"
	case RouteActionListDestinations:
		return "action/list-destinations"
	case RouteActionAdd:
		return "action/add-action"
	case RouteActionDelete:
		return "action/delete-action"
	case RouteActionList:
		return "action/list-actions"
	case RouteTelegramWebHook:
		return "tg"
	case RouteOmiWebHook:
		return "omi"
	}
	panic(fmt.Sprintf("auth: route %d has no path", int(r)))
}

// Method returns the HTTP method the route is served on.
func (r Route) Method() string {
	if r == RouteInfo {
		return http.MethodGet
	}
	return http.MethodPost
}

func (r Route) String() string {
	return r.Path()
}

// Link joins domain, an optional root path and the route path into an
// absolute URL. For http://example.com/foo/bar, domain is
// http://example.com, rootPath is foo and the route maps to bar.
func (r Route) Link(domain, rootPath string) string {
	domain = strings.TrimRight(domain, "/")
	rootPath = strings.Trim(rootPath, "/")
	if rootPath == "" {
		return domain + "/" + r.Path()
	}
	return domain + "/" + rootPath + "/" + r.Path()
}

// ParseRoute maps a path relative to the API root back to its Route.
func ParseRoute(path string) (Route, bool) {
	path = strings.Trim(path, "/")
	for _, r := range Routes {
		if r.Path() == path {
			return r, true
		}
	}
	return 0, false
}
