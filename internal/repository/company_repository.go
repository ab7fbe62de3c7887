package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cargoflow/cargoflow/internal/model"
)

// CompanyRepo encapsulates queries over the 'companies' table.
type CompanyRepo struct{ DB *sql.DB }

func NewCompanyRepo(db *sql.DB) *CompanyRepo { return &CompanyRepo{DB: db} }

const companyColumns = "id,name,email,address,phone,is_active,created_at,updated_at"

// Create inserts a company and populates its ID.
func (r *CompanyRepo) Create(ctx context.Context, c *model.Company) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO companies (name, email, address, phone) VALUES (?,?,?,?)",
		c.Name, c.Email, c.Address, c.Phone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.IsActive = true
	return nil
}

// GetByID fetches a company by id.
func (r *CompanyRepo) GetByID(ctx context.Context, id uint64) (model.Company, error) {
	var c model.Company
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+companyColumns+" FROM companies WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Company{}, ErrNotFound
	}
	return c, err
}

// List returns all companies ordered by name.
func (r *CompanyRepo) List(ctx context.Context) ([]model.Company, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+companyColumns+" FROM companies ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the total number of companies.
func (r *CompanyRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM companies").Scan(&n)
	return n, err
}
