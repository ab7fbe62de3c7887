package model

import "time"

// Company represents a tenant organisation as stored in the `companies`
// table. A company groups users, warehouses and deliveries; it is created
// and administered through the platform surface.
type Company struct {
	ID        uint64    // companies.id
	Name      string    // companies.name
	Email     string    // companies.email
	Address   string    // companies.address
	Phone     string    // companies.phone
	IsActive  bool      // companies.is_active
	CreatedAt time.Time // companies.created_at
	UpdatedAt time.Time // companies.updated_at
}
