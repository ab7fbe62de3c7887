package model

import (
	"database/sql"
	"time"
)

// Delivery lifecycle statuses. A delivery is created by a company admin,
// prepared at a warehouse, dispatched to a driver and finally delivered.
const (
	DeliveryCreated    = "CREATED"
	DeliveryPrepared   = "PREPARED"
	DeliveryDispatched = "DISPATCHED"
	DeliveryDelivered  = "DELIVERED"
)

// Delivery represents a shipment as stored in the `deliveries` table.
//
// Fields:
//  ID          – primary key identifier.
//  Reference   – human-friendly tracking reference, unique per company.
//  CompanyID   – owning company.
//  WarehouseID – warehouse the delivery ships from.
//  DriverID    – assigned driver (null until dispatch).
//  Address     – destination address.
//  Status      – one of the lifecycle statuses above.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Delivery struct {
	ID          uint64        // deliveries.id
	Reference   string        // deliveries.reference
	CompanyID   uint64        // deliveries.company_id
	WarehouseID uint64        // deliveries.warehouse_id
	DriverID    sql.NullInt64 // deliveries.driver_id (nullable)
	Address     string        // deliveries.address
	Status      string        // deliveries.status
	CreatedAt   time.Time     // deliveries.created_at
	UpdatedAt   time.Time     // deliveries.updated_at
}
