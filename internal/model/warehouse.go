package model

import "time"

// Warehouse represents a storage site belonging to a company, stored in the
// `warehouses` table. Deliveries are prepared at a warehouse before being
// dispatched to a driver.
type Warehouse struct {
	ID         uint64    // warehouses.id
	CompanyID  uint64    // warehouses.company_id
	Name       string    // warehouses.name
	Address    string    // warehouses.address
	City       string    // warehouses.city
	PostalCode string    // warehouses.postal_code
	CreatedAt  time.Time // warehouses.created_at
	UpdatedAt  time.Time // warehouses.updated_at
}
