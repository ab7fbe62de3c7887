// Package auth implements the session core: the dual-secret token codec,
// the session manager that orchestrates refresh token rotation, and the
// cookie transport used by the HTTP layer.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the two token families. Each kind is signed with
// its own secret so compromising one signing key does not allow forging
// tokens of the other kind.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Token lifetimes. Access tokens authorize a short request window; refresh
// tokens bound the overall session length.
const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidSignature is returned when a token's signature does not
	// verify against the secret for the expected kind, or the token is
	// otherwise malformed.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenExpired is returned when the embedded expiry has passed.
	// A token whose expiry equals the current instant is already expired.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongKind is returned when a token verifies but its embedded kind
	// tag does not match the expected one, e.g. a refresh token presented
	// where an access token is required.
	ErrWrongKind = errors.New("wrong token kind")
)

// Payload is the identity carried by a signed token.
type Payload struct {
	PrincipalID uint64
	Email       string
	Role        string
	CompanyID   uint64 // zero when the principal has no company
	Kind        TokenKind
	ExpiresAt   time.Time
}

// Codec issues and verifies signed expiring tokens. Access and refresh
// tokens use distinct HS256 secrets.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewCodec builds a Codec from the two signing secrets. Both secrets are
// required configuration; config.Load refuses to start without them.
func NewCodec(accessSecret, refreshSecret string) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}
}

func (c *Codec) secretFor(kind TokenKind) []byte {
	if kind == KindRefresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

func ttlFor(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return RefreshTTL
	}
	return AccessTTL
}

// Issue signs a token of the given kind for a principal. companyID zero
// means the principal carries no company reference and the claim is omitted.
// It returns the serialized token and its expiry.
func (c *Codec) Issue(kind TokenKind, principalID uint64, email, role string, companyID uint64) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttlFor(kind))
	claims := jwt.MapClaims{
		"sub":   principalID,
		"email": email,
		"role":  role,
		"kind":  string(kind),
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	if companyID != 0 {
		claims["company_id"] = companyID
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secretFor(kind))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature and expiry against the secret for the expected
// kind and confirms the embedded kind tag matches. Failures map to one of
// ErrInvalidSignature, ErrTokenExpired or ErrWrongKind; callers must not
// leak which one to clients.
func (c *Codec) Verify(token string, expected TokenKind) (Payload, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return c.secretFor(expected), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Payload{}, ErrTokenExpired
		}
		return Payload{}, ErrInvalidSignature
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Payload{}, ErrInvalidSignature
	}
	p := payloadFromClaims(claims)
	if p.Kind != expected {
		return Payload{}, ErrWrongKind
	}
	// A missing exp claim or an expiry equal to the current instant both
	// count as expired.
	if !time.Now().UTC().Before(p.ExpiresAt) {
		return Payload{}, ErrTokenExpired
	}
	return p, nil
}

// DecodeUnsafe parses a token without verifying its signature. It exists
// only to read back a payload from a token this codec just issued; it must
// never feed a trust decision on attacker-supplied input. Returns nil when
// the token cannot be parsed at all.
func (c *Codec) DecodeUnsafe(token string) *Payload {
	tok, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	p := payloadFromClaims(claims)
	return &p
}

// payloadFromClaims converts MapClaims to a Payload. Numeric claims decode
// as float64 from JSON and are narrowed to uint64 here.
func payloadFromClaims(claims jwt.MapClaims) Payload {
	var p Payload
	if v, ok := claims["sub"].(float64); ok {
		p.PrincipalID = uint64(v)
	}
	if v, ok := claims["email"].(string); ok {
		p.Email = v
	}
	if v, ok := claims["role"].(string); ok {
		p.Role = v
	}
	if v, ok := claims["company_id"].(float64); ok {
		p.CompanyID = uint64(v)
	}
	if v, ok := claims["kind"].(string); ok {
		p.Kind = TokenKind(v)
	}
	if v, ok := claims["exp"].(float64); ok {
		p.ExpiresAt = time.Unix(int64(v), 0).UTC()
	}
	return p
}
