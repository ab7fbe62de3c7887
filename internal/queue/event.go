// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into an audit trail.
package queue

// LoginEvent is published on every successful authentication so downstream
// consumers can build an audit trail without querying the primary database.
type LoginEvent struct {
	PrincipalID uint64 `json:"principal_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CompanyID   uint64 `json:"company_id,omitempty"`
	LoginAt     string `json:"login_at"`
}

// DeliveryDispatchedEvent is published when a delivery is handed to a
// driver. It carries enough context for notifications and analytics.
type DeliveryDispatchedEvent struct {
	DeliveryID   uint64 `json:"delivery_id"`
	Reference    string `json:"reference"`
	CompanyID    uint64 `json:"company_id"`
	DriverID     uint64 `json:"driver_id"`
	Address      string `json:"address"`
	DispatchedAt string `json:"dispatched_at"`
}
