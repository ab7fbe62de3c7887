package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cargoflow/cargoflow/internal/model"
)

// DeliveryRepo encapsulates queries over the 'deliveries' table.
type DeliveryRepo struct{ DB *sql.DB }

func NewDeliveryRepo(db *sql.DB) *DeliveryRepo { return &DeliveryRepo{DB: db} }

const deliveryColumns = "id,reference,company_id,warehouse_id,driver_id,address,status,created_at,updated_at"

// Create inserts a delivery in CREATED state and populates its ID.
func (r *DeliveryRepo) Create(ctx context.Context, d *model.Delivery) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO deliveries (reference, company_id, warehouse_id, address, status) VALUES (?,?,?,?,?)",
		d.Reference, d.CompanyID, d.WarehouseID, d.Address, model.DeliveryCreated)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	d.Status = model.DeliveryCreated
	return nil
}

// GetByID fetches a delivery by id.
func (r *DeliveryRepo) GetByID(ctx context.Context, id uint64) (model.Delivery, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+deliveryColumns+" FROM deliveries WHERE id=? LIMIT 1", id))
}

// ListByCompany returns a company's deliveries, newest first.
func (r *DeliveryRepo) ListByCompany(ctx context.Context, companyID uint64) ([]model.Delivery, error) {
	return r.list(ctx,
		"SELECT "+deliveryColumns+" FROM deliveries WHERE company_id=? ORDER BY created_at DESC", companyID)
}

// ListByStatus returns a company's deliveries in a given status, oldest
// first so warehouse agents work the backlog in order.
func (r *DeliveryRepo) ListByStatus(ctx context.Context, companyID uint64, status string) ([]model.Delivery, error) {
	return r.list(ctx,
		"SELECT "+deliveryColumns+" FROM deliveries WHERE company_id=? AND status=? ORDER BY created_at", companyID, status)
}

// ListByDriver returns the deliveries assigned to a driver, newest first.
func (r *DeliveryRepo) ListByDriver(ctx context.Context, driverID uint64) ([]model.Delivery, error) {
	return r.list(ctx,
		"SELECT "+deliveryColumns+" FROM deliveries WHERE driver_id=? ORDER BY created_at DESC", driverID)
}

// UpdateStatus moves a delivery to a new status.
func (r *DeliveryRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE deliveries SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignDriver attaches a driver and moves the delivery to DISPATCHED.
func (r *DeliveryRepo) AssignDriver(ctx context.Context, id, driverID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE deliveries SET driver_id=?, status=? WHERE id=?", driverID, model.DeliveryDispatched, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByCompany returns how many deliveries a company has.
func (r *DeliveryRepo) CountByCompany(ctx context.Context, companyID uint64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deliveries WHERE company_id=?", companyID).Scan(&n)
	return n, err
}

// Count returns the total number of deliveries on the platform.
func (r *DeliveryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM deliveries").Scan(&n)
	return n, err
}

func (r *DeliveryRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Delivery, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Delivery
	for rows.Next() {
		var d model.Delivery
		if err := rows.Scan(&d.ID, &d.Reference, &d.CompanyID, &d.WarehouseID, &d.DriverID, &d.Address, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DeliveryRepo) scanOne(row *sql.Row) (model.Delivery, error) {
	var d model.Delivery
	err := row.Scan(&d.ID, &d.Reference, &d.CompanyID, &d.WarehouseID, &d.DriverID, &d.Address, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Delivery{}, ErrNotFound
	}
	return d, err
}
