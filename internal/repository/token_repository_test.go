package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepo_ReplaceReset(t *testing.T) {
	db, m := newSQLMock(t)
	exp := time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("MMT", 6*3600+1800))

	// user_id is unique, so a second request overwrites the first row
	m.ExpectExec(`INSERT INTO password_reset_tokens \(user_id, token_hash, expires_at\) VALUES \(\?, \?, \?\) ` +
		`ON DUPLICATE KEY UPDATE token_hash = VALUES\(token_hash\), expires_at = VALUES\(expires_at\)`).
		WithArgs(uint64(7), "abc123", exp.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewTokenRepo(db).ReplaceReset(context.Background(), 7, "abc123", exp))
}

func TestTokenRepo_ReplaceReset_Error(t *testing.T) {
	db, m := newSQLMock(t)
	m.ExpectExec(regexp.QuoteMeta("INSERT INTO password_reset_tokens")).
		WillReturnError(errors.New("connection reset"))

	err := NewTokenRepo(db).ReplaceReset(context.Background(), 7, "abc123", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store reset token")
}

func TestTokenRepo_GetResetByHash_Missing(t *testing.T) {
	db, m := newSQLMock(t)
	m.ExpectQuery(regexp.QuoteMeta("FROM password_reset_tokens WHERE token_hash = ?")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at"}))

	_, err := NewTokenRepo(db).GetResetByHash(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_ResetPassword(t *testing.T) {
	const (
		deleteToken = "DELETE FROM password_reset_tokens WHERE id=? AND user_id=?"
		setHash     = "UPDATE users SET password_hash=? WHERE id=?"
		revoke      = "UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL"
	)

	t.Run("token consumed with the password change", func(t *testing.T) {
		db, m := newSQLMock(t)
		m.ExpectBegin()
		m.ExpectExec(regexp.QuoteMeta(deleteToken)).
			WithArgs(uint64(11), uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(regexp.QuoteMeta(setHash)).
			WithArgs("$2a$10$hash", uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(regexp.QuoteMeta(revoke)).
			WithArgs(uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 3))
		m.ExpectCommit()

		require.NoError(t, NewUserRepo(db).ResetPassword(context.Background(), 7, 11, "$2a$10$hash"))
	})

	t.Run("token already used", func(t *testing.T) {
		db, m := newSQLMock(t)
		m.ExpectBegin()
		m.ExpectExec(regexp.QuoteMeta(deleteToken)).
			WithArgs(uint64(11), uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		m.ExpectRollback()

		err := NewUserRepo(db).ResetPassword(context.Background(), 7, 11, "$2a$10$hash")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("password update fails", func(t *testing.T) {
		db, m := newSQLMock(t)
		m.ExpectBegin()
		m.ExpectExec(regexp.QuoteMeta(deleteToken)).WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(regexp.QuoteMeta(setHash)).WillReturnError(errors.New("lock wait timeout"))
		m.ExpectRollback()

		err := NewUserRepo(db).ResetPassword(context.Background(), 7, 11, "$2a$10$hash")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "update password")
	})
}
