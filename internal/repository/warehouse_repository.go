package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cargoflow/cargoflow/internal/model"
)

// WarehouseRepo encapsulates queries over the 'warehouses' table.
type WarehouseRepo struct{ DB *sql.DB }

func NewWarehouseRepo(db *sql.DB) *WarehouseRepo { return &WarehouseRepo{DB: db} }

const warehouseColumns = "id,company_id,name,address,city,postal_code,created_at,updated_at"

// Create inserts a warehouse and populates its ID.
func (r *WarehouseRepo) Create(ctx context.Context, w *model.Warehouse) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO warehouses (company_id, name, address, city, postal_code) VALUES (?,?,?,?,?)",
		w.CompanyID, w.Name, w.Address, w.City, w.PostalCode)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	return nil
}

// GetByID fetches a warehouse by id.
func (r *WarehouseRepo) GetByID(ctx context.Context, id uint64) (model.Warehouse, error) {
	var w model.Warehouse
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+warehouseColumns+" FROM warehouses WHERE id=? LIMIT 1", id).
		Scan(&w.ID, &w.CompanyID, &w.Name, &w.Address, &w.City, &w.PostalCode, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Warehouse{}, ErrNotFound
	}
	return w, err
}

// ListByCompany returns a company's warehouses ordered by name.
func (r *WarehouseRepo) ListByCompany(ctx context.Context, companyID uint64) ([]model.Warehouse, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+warehouseColumns+" FROM warehouses WHERE company_id=? ORDER BY name", companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Warehouse
	for rows.Next() {
		var w model.Warehouse
		if err := rows.Scan(&w.ID, &w.CompanyID, &w.Name, &w.Address, &w.City, &w.PostalCode, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
