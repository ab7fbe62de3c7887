package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/cargoflow/cargoflow/internal/model"
)

// OwnerRepo persists platform principals ('platform_owners' table). Owners
// are seeded out of band; public registration only creates tenant users.
type OwnerRepo struct{ DB *sql.DB }

func NewOwnerRepo(db *sql.DB) *OwnerRepo { return &OwnerRepo{DB: db} }

const ownerColumns = "id,email,password_hash,name,created_at,updated_at"

// GetOwnerByEmail fetches a platform owner by normalized email.
func (r *OwnerRepo) GetOwnerByEmail(ctx context.Context, email string) (model.PlatformOwner, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+ownerColumns+" FROM platform_owners WHERE email=? LIMIT 1", email))
}

// GetOwnerByID fetches a platform owner by id.
func (r *OwnerRepo) GetOwnerByID(ctx context.Context, id uint64) (model.PlatformOwner, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+ownerColumns+" FROM platform_owners WHERE id=? LIMIT 1", id))
}

func (r *OwnerRepo) scanOne(row *sql.Row) (model.PlatformOwner, error) {
	var o model.PlatformOwner
	err := row.Scan(&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlatformOwner{}, ErrNotFound
	}
	return o, err
}
