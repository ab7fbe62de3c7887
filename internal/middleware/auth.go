// Package middleware provides the request-time authorization gate and the
// distributed rate limiter. The authorization middleware runs in front of
// every route: it resolves the caller's identity from the auth cookies
// (verifying the access token or transparently renewing via the refresh
// token) and enforces per-prefix role allow-lists.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cargoflow/cargoflow/internal/auth"
)

// Context keys under which the resolved identity is stored on the echo
// context for downstream handlers.
const (
	CtxUserID    = "user_id"    // uint64
	CtxUserRole  = "role"       // string
	CtxUserEmail = "email"      // string
	CtxCompanyID = "company_id" // uint64, zero when none
)

// Identity headers mirrored onto the forwarded request and the response.
const (
	HeaderUserID    = "x-user-id"
	HeaderUserRole  = "x-user-role"
	HeaderUserEmail = "x-user-email"
	HeaderCompanyID = "x-company-id"
)

// RouteRule maps a path prefix to the set of roles allowed under it.
type RouteRule struct {
	Prefix string
	Roles  []string
}

// Policy is the authorization table handed to the middleware. It is plain
// data so the decision logic stays free of scattered conditionals and can
// be unit tested with any table.
//
// Public prefixes are forwarded without looking at cookies (login, register
// and the auth API). Static prefixes cover assets and probes. Rules are
// ordered; the first matching prefix wins and paths matching no rule are
// open to any authenticated principal.
type Policy struct {
	Public []string
	Static []string
	Rules  []RouteRule
}

// DefaultPolicy returns the standing route table of the application.
func DefaultPolicy() Policy {
	return Policy{
		Public: []string{"/login", "/register", "/api/auth"},
		Static: []string{"/assets", "/favicon.ico", "/healthz", "/unauthorized"},
		Rules: []RouteRule{
			{Prefix: "/api/platform", Roles: []string{"OWNER"}},
			{Prefix: "/api/company", Roles: []string{"OWNER", "COMPANY_ADMIN"}},
			{Prefix: "/api/warehouse", Roles: []string{"OWNER", "COMPANY_ADMIN", "WAREHOUSE_AGENT"}},
			{Prefix: "/api/driver", Roles: []string{"DRIVER"}},
			{Prefix: "/platform", Roles: []string{"OWNER"}},
			{Prefix: "/company", Roles: []string{"OWNER", "COMPANY_ADMIN"}},
			{Prefix: "/warehouse", Roles: []string{"OWNER", "COMPANY_ADMIN", "WAREHOUSE_AGENT"}},
			{Prefix: "/driver", Roles: []string{"DRIVER"}},
		},
	}
}

// SessionRefresher is the slice of the session manager the middleware
// needs; narrowing it keeps the middleware testable without a database.
type SessionRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

// Authorize returns the gate middleware. For each request it decides one of
// five outcomes: forward, redirect to /login, 401, 403, or redirect to
// /unauthorized. API paths (under /api) get JSON statuses; page paths get
// redirects. When the access token is missing or fails verification but a
// refresh token is present, a rotation is attempted and, on success, the
// rotated cookies are set on the outgoing response before forwarding.
func Authorize(codec *auth.Codec, sessions SessionRefresher, pol Policy, secureCookies bool) echo.MiddlewareFunc {
	// Rule role slices become sets once, at registration.
	allowed := make([]map[string]bool, len(pol.Rules))
	for i, rule := range pol.Rules {
		set := make(map[string]bool, len(rule.Roles))
		for _, role := range rule.Roles {
			set[role] = true
		}
		allowed[i] = set
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			if hasAnyPrefix(path, pol.Public) || hasAnyPrefix(path, pol.Static) {
				return next(c)
			}

			accessToken := auth.ReadAccessToken(c)
			refreshToken := auth.ReadRefreshToken(c)
			if accessToken == "" && refreshToken == "" {
				return unauthenticated(c, path)
			}

			var payload *auth.Payload
			if accessToken != "" {
				if p, err := codec.Verify(accessToken, auth.KindAccess); err == nil {
					payload = &p
				}
				// Verification failures fall through to the renewal path;
				// the client never learns why the token was rejected.
			}
			if payload == nil {
				if refreshToken == "" {
					return unauthenticated(c, path)
				}
				pair, err := sessions.Refresh(c.Request().Context(), refreshToken)
				if err != nil {
					auth.ClearAuthCookies(c, secureCookies)
					return unauthenticated(c, path)
				}
				auth.SetAuthCookies(c, pair, secureCookies)
				// The pair was issued by our own codec a moment ago, so an
				// unverified decode is safe here.
				payload = codec.DecodeUnsafe(pair.AccessToken)
				if payload == nil {
					auth.ClearAuthCookies(c, secureCookies)
					return unauthenticated(c, path)
				}
			}

			for i, rule := range pol.Rules {
				if strings.HasPrefix(path, rule.Prefix) {
					if !allowed[i][payload.Role] {
						return forbidden(c, path)
					}
					break
				}
			}

			injectIdentity(c, payload)
			return next(c)
		}
	}
}

// unauthenticated answers a request with no usable identity: JSON 401 for
// API paths, redirect to the login page otherwise.
func unauthenticated(c echo.Context, path string) error {
	if isAPIPath(path) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.Redirect(http.StatusFound, "/login")
}

// forbidden answers an authenticated request whose role is not in the
// prefix allow-list.
func forbidden(c echo.Context, path string) error {
	if isAPIPath(path) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.Redirect(http.StatusFound, "/unauthorized")
}

func isAPIPath(path string) bool { return strings.HasPrefix(path, "/api") }

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// injectIdentity exposes the resolved principal to downstream handlers via
// the echo context and mirrors it onto request and response headers.
func injectIdentity(c echo.Context, p *auth.Payload) {
	c.Set(CtxUserID, p.PrincipalID)
	c.Set(CtxUserRole, p.Role)
	c.Set(CtxUserEmail, p.Email)
	c.Set(CtxCompanyID, p.CompanyID)

	id := strconv.FormatUint(p.PrincipalID, 10)
	for _, h := range []http.Header{c.Request().Header, c.Response().Header()} {
		h.Set(HeaderUserID, id)
		h.Set(HeaderUserRole, p.Role)
		h.Set(HeaderUserEmail, p.Email)
		if p.CompanyID != 0 {
			h.Set(HeaderCompanyID, strconv.FormatUint(p.CompanyID, 10))
		}
	}
}
