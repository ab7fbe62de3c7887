package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cargoflow/cargoflow/internal/model"
)

// TokenRepo persists refresh token records. Rows are keyed by the SHA-256
// digest of the token value; the owner_kind column discriminates which
// principal table owner_id points into.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token record.
func (r *TokenRepo) Store(ctx context.Context, rec model.RefreshToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (token_hash, owner_kind, owner_id, expires_at) VALUES (?,?,?,?)",
		rec.TokenHash, rec.OwnerKind, rec.OwnerID, rec.ExpiresAt)
	return err
}

// FindByHash returns the record matching a token hash.
func (r *TokenRepo) FindByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	var rec model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, token_hash, owner_kind, owner_id, expires_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		hash).Scan(&rec.ID, &rec.TokenHash, &rec.OwnerKind, &rec.OwnerID, &rec.ExpiresAt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrTokenNotFound
	}
	return rec, err
}

// Rotate replaces the record identified by oldHash with rec inside one
// transaction. The delete must affect exactly one row or the whole rotation
// rolls back with ErrTokenNotFound; of two concurrent rotations of the same
// token only the first can commit, the second finds no row to delete. This
// keeps the invariant that a logical session never has zero or two live
// refresh records.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash string, rec model.RefreshToken) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrTokenNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (token_hash, owner_kind, owner_id, expires_at) VALUES (?,?,?,?)",
		rec.TokenHash, rec.OwnerKind, rec.OwnerID, rec.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteByHash removes the record matching a token hash. Deleting an absent
// record is not an error; logout relies on that.
func (r *TokenRepo) DeleteByHash(ctx context.Context, hash string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", hash)
	return err
}

// DeleteExpired removes every record whose expiry is at or before now and
// returns the number of deleted rows. Called by the periodic sweep.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at<=?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
