package model

import "time"

// Owner kinds for refresh token records. The kind discriminates which
// principal table OwnerID points into, so a record can never reference both
// a tenant user and a platform owner at once.
const (
	OwnerKindTenant   = "TENANT"
	OwnerKindPlatform = "PLATFORM"
)

// RefreshToken models a row in the `refresh_tokens` table. The plain token
// value is never stored; only its SHA-256 hex digest, which doubles as the
// lookup key since it is derived deterministically from the value. A record
// is replaced wholesale on every successful renewal (single-use tokens) and
// removed on logout or by the periodic expiry sweep.
//
// Fields:
//  ID        – primary key identifier.
//  TokenHash – SHA-256 hex digest of the token value (unique).
//  OwnerKind – TENANT or PLATFORM; selects the table OwnerID refers to.
//  OwnerID   – id of the owning principal in the table named by OwnerKind.
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	TokenHash string    // refresh_tokens.token_hash
	OwnerKind string    // refresh_tokens.owner_kind
	OwnerID   uint64    // refresh_tokens.owner_id
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
