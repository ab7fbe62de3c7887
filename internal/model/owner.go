package model

import "time"

// PlatformOwner represents a platform principal as stored in the
// `platform_owners` table. Owners administrate the whole platform and are
// kept in a table disjoint from tenant users; their primary keys never
// overlap a users.id in meaning. The OWNER role is implied by the table and
// never stored as a column.
type PlatformOwner struct {
	ID           uint64    // platform_owners.id
	Email        string    // platform_owners.email
	PasswordHash string    // platform_owners.password_hash
	Name         string    // platform_owners.name (display name)
	CreatedAt    time.Time // platform_owners.created_at
	UpdatedAt    time.Time // platform_owners.updated_at
}
