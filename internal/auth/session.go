package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/cargoflow/cargoflow/internal/model"
)

// ErrSessionExpired is the single failure outcome of a renewal. Signature
// mismatch, wrong kind, true expiry, an unknown token value and a lost
// rotation race all collapse into it: every one of them means the caller
// must re-authenticate, and distinguishing them would only help an attacker.
var ErrSessionExpired = errors.New("session expired")

// TokenPair is the result of creating or renewing a session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore persists refresh token records. Implemented by
// repository.TokenRepo; declared here so the manager can be unit tested
// against mocks.
type TokenStore interface {
	Store(ctx context.Context, rec model.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (model.RefreshToken, error)
	// Rotate atomically deletes the record identified by oldHash and
	// inserts rec. It must fail without inserting when oldHash matches no
	// row, so that of two concurrent renewals at most one succeeds.
	Rotate(ctx context.Context, oldHash string, rec model.RefreshToken) error
	DeleteByHash(ctx context.Context, hash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TenantStore resolves tenant principals. Implemented by repository.UserRepo.
type TenantStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// OwnerStore resolves platform principals. Implemented by repository.OwnerRepo.
type OwnerStore interface {
	GetOwnerByID(ctx context.Context, id uint64) (model.PlatformOwner, error)
}

// SessionManager binds token issuance to the persistent refresh token store.
// One manager serves both principal kinds; the record's owner kind keeps
// them apart.
type SessionManager struct {
	codec  *Codec
	tokens TokenStore
	users  TenantStore
	owners OwnerStore
}

func NewSessionManager(codec *Codec, tokens TokenStore, users TenantStore, owners OwnerStore) *SessionManager {
	return &SessionManager{codec: codec, tokens: tokens, users: users, owners: owners}
}

// HashTokenValue returns the SHA-256 hex digest of a token value. Records
// are keyed by this digest so a leaked table cannot be replayed directly;
// since the digest is derived from the value, lookup by value still works.
func HashTokenValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Create issues an access+refresh pair for a principal and persists the
// refresh record. A role of OWNER selects the platform owner kind; any
// other role selects the tenant kind.
func (m *SessionManager) Create(ctx context.Context, principalID uint64, email, role string, companyID uint64) (TokenPair, error) {
	access, _, err := m.codec.Issue(KindAccess, principalID, email, role, companyID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, exp, err := m.codec.Issue(KindRefresh, principalID, email, role, companyID)
	if err != nil {
		return TokenPair{}, err
	}
	rec := model.RefreshToken{
		TokenHash: HashTokenValue(refresh),
		OwnerKind: ownerKindFor(role),
		OwnerID:   principalID,
		ExpiresAt: exp,
	}
	if err := m.tokens.Store(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a fresh pair, rotating the stored
// record. The old token value is invalid afterwards. All failure paths
// return ErrSessionExpired.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if _, err := m.codec.Verify(refreshToken, KindRefresh); err != nil {
		return TokenPair{}, ErrSessionExpired
	}

	hash := HashTokenValue(refreshToken)
	rec, err := m.tokens.FindByHash(ctx, hash)
	if err != nil {
		return TokenPair{}, ErrSessionExpired
	}
	if !time.Now().UTC().Before(rec.ExpiresAt) {
		// Stale row: the signed expiry and the stored expiry can disagree
		// when the row was written by an older deployment. Sweep it.
		_ = m.tokens.DeleteByHash(ctx, hash)
		return TokenPair{}, ErrSessionExpired
	}

	id, email, role, companyID, err := m.resolveOwner(ctx, rec)
	if err != nil {
		return TokenPair{}, ErrSessionExpired
	}

	access, _, err := m.codec.Issue(KindAccess, id, email, role, companyID)
	if err != nil {
		return TokenPair{}, err
	}
	newRefresh, exp, err := m.codec.Issue(KindRefresh, id, email, role, companyID)
	if err != nil {
		return TokenPair{}, err
	}
	newRec := model.RefreshToken{
		TokenHash: HashTokenValue(newRefresh),
		OwnerKind: rec.OwnerKind,
		OwnerID:   rec.OwnerID,
		ExpiresAt: exp,
	}
	// The delete+insert pair is transactional in the store. When another
	// request rotated the same token first, the delete matches no row and
	// the renewal fails closed instead of fabricating a second session.
	if err := m.tokens.Rotate(ctx, hash, newRec); err != nil {
		return TokenPair{}, ErrSessionExpired
	}
	return TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Destroy removes the record matching the given token value. An empty or
// unknown value is a no-op: logout must always succeed from the caller's
// perspective.
func (m *SessionManager) Destroy(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return m.tokens.DeleteByHash(ctx, HashTokenValue(refreshToken))
}

// CleanupExpired deletes all records whose expiry has passed and returns
// how many were removed. Intended to run on a schedule, not per request.
func (m *SessionManager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.tokens.DeleteExpired(ctx, time.Now().UTC())
}

// resolveOwner loads the principal a record points at and flattens it to
// the fields a token payload needs. Inactive tenant accounts do not renew.
func (m *SessionManager) resolveOwner(ctx context.Context, rec model.RefreshToken) (id uint64, email, role string, companyID uint64, err error) {
	switch rec.OwnerKind {
	case model.OwnerKindTenant:
		u, uerr := m.users.GetByID(ctx, rec.OwnerID)
		if uerr != nil {
			return 0, "", "", 0, uerr
		}
		if !u.IsActive {
			return 0, "", "", 0, ErrSessionExpired
		}
		return u.ID, u.Email, u.Role, u.CompanyRef(), nil
	case model.OwnerKindPlatform:
		o, oerr := m.owners.GetOwnerByID(ctx, rec.OwnerID)
		if oerr != nil {
			return 0, "", "", 0, oerr
		}
		return o.ID, o.Email, model.RoleOwner, 0, nil
	}
	return 0, "", "", 0, ErrSessionExpired
}

func ownerKindFor(role string) string {
	if role == model.RoleOwner {
		return model.OwnerKindPlatform
	}
	return model.OwnerKindTenant
}
