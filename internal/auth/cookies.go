package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Cookie names. The session cookie is readable by client script and exists
// only as a cheap presence hint; the authorization decision never trusts
// it, only the two HttpOnly token cookies it shadows.
const (
	AccessCookie  = "token"
	RefreshCookie = "refreshToken"
	SessionCookie = "session"
)

// SessionActive is the opaque value carried by the session cookie.
const SessionActive = "active"

// SetAuthCookies writes the three auth cookies onto the response: the
// access token (15 min, HttpOnly), the refresh token (7 days, HttpOnly) and
// the client-visible session flag (15 min). All are path=/ and
// SameSite=Lax; secure should be true outside local development.
func SetAuthCookies(c echo.Context, pair TokenPair, secure bool) {
	c.SetCookie(authCookie(AccessCookie, pair.AccessToken, int(AccessTTL.Seconds()), true, secure))
	c.SetCookie(authCookie(RefreshCookie, pair.RefreshToken, int(RefreshTTL.Seconds()), true, secure))
	c.SetCookie(authCookie(SessionCookie, SessionActive, int(AccessTTL.Seconds()), false, secure))
}

// ClearAuthCookies expires all three auth cookies so the client cannot keep
// presenting a dead token pair.
func ClearAuthCookies(c echo.Context, secure bool) {
	c.SetCookie(authCookie(AccessCookie, "", -1, true, secure))
	c.SetCookie(authCookie(RefreshCookie, "", -1, true, secure))
	c.SetCookie(authCookie(SessionCookie, "", -1, false, secure))
}

// ReadAccessToken returns the access token cookie value, or "" when absent.
func ReadAccessToken(c echo.Context) string {
	return readCookie(c, AccessCookie)
}

// ReadRefreshToken returns the refresh token cookie value, or "" when absent.
func ReadRefreshToken(c echo.Context) string {
	return readCookie(c, RefreshCookie)
}

func readCookie(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}

func authCookie(name, value string, maxAge int, httpOnly, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
