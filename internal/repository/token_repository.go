package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// TokenRepo stores SHA-256 hashes of refresh and password reset tokens.
type TokenRepo struct {
	db *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, userID, tokenHash, exp.UTC()); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// ValidateRefresh returns the owner of a live refresh token. Revoked,
// expired and unknown tokens all yield ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	const q = `SELECT user_id FROM refresh_tokens
		WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()
		LIMIT 1`
	var userID uint64
	if err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(&userID); err != nil {
		return 0, notFound(err)
	}
	return userID, nil
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, "token_hash = ?", tokenHash)
}

// RevokeAllForUser ends every session of the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return r.revoke(ctx, "user_id = ?", userID)
}

func (r *TokenRepo) revoke(ctx context.Context, where string, arg any) error {
	q := "UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE revoked_at IS NULL AND " + where
	if _, err := r.db.ExecContext(ctx, q, arg); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// ReplaceReset keeps at most one reset token per user; a new request
// supersedes the previous link.
func (r *TokenRepo) ReplaceReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	const q = `INSERT INTO password_reset_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE token_hash = VALUES(token_hash),
			expires_at = VALUES(expires_at), created_at = UTC_TIMESTAMP()`
	if _, err := r.db.ExecContext(ctx, q, userID, tokenHash, exp.UTC()); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// GetResetByHash does not filter on expiry; the auth service checks it.
func (r *TokenRepo) GetResetByHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_reset_tokens WHERE token_hash = ? LIMIT 1`
	var t model.PasswordResetToken
	err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// DeleteExpiredResets purges stale reset tokens and reports how many
// were removed.
func (r *TokenRepo) DeleteExpiredResets(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= UTC_TIMESTAMP()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired reset tokens: %w", err)
	}
	return res.RowsAffected()
}
