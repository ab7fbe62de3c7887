package model

import (
	"database/sql"
	"time"
)

// Tenant roles as stored in users.role. The platform owner role is not
// listed here because it is never persisted: any principal loaded from the
// platform_owners table is implicitly an OWNER.
const (
	RoleOwner          = "OWNER"
	RoleCompanyAdmin   = "COMPANY_ADMIN"
	RoleWarehouseAgent = "WAREHOUSE_AGENT"
	RoleDriver         = "DRIVER"
)

// TenantRoles lists the roles a registered tenant user may hold.
var TenantRoles = []string{RoleCompanyAdmin, RoleWarehouseAgent, RoleDriver}

// IsTenantRole reports whether role is a valid persisted tenant role.
func IsTenantRole(role string) bool {
	for _, r := range TenantRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a tenant principal as stored in the `users` table. Each
// user belongs to at most one company; WAREHOUSE_AGENT and DRIVER accounts
// always carry a company reference while a COMPANY_ADMIN may be created
// before their company exists.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (lowercased before storage).
//  PasswordHash – bcrypt hashed password.
//  Role         – one of COMPANY_ADMIN, WAREHOUSE_AGENT or DRIVER.
//  CompanyID    – company the user belongs to (null when none).
//  FirstName    – given name shown in the UI.
//  LastName     – family name shown in the UI.
//  Phone        – optional contact number.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64        // users.id
	Email        string        // users.email
	PasswordHash string        // users.password_hash
	Role         string        // users.role
	CompanyID    sql.NullInt64 // users.company_id (nullable)
	FirstName    string        // users.first_name
	LastName     string        // users.last_name
	Phone        string        // users.phone
	IsActive     bool          // users.is_active
	CreatedAt    time.Time     // users.created_at
	UpdatedAt    time.Time     // users.updated_at
}

// CompanyRef returns the user's company id, or zero when the user is not
// attached to a company.
func (u User) CompanyRef() uint64 {
	if u.CompanyID.Valid {
		return uint64(u.CompanyID.Int64)
	}
	return 0
}
