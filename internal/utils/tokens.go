package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken is an opaque long-lived token. Only HashToken(Raw) is
// stored.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// ResetToken is a single-use password reset token. Raw goes into the
// emailed link, Hash into the database.
type ResetToken struct {
	Raw  string
	Hash string
	Exp  time.Time
}

// NewRefreshToken returns 48 random bytes, hex encoded.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: raw, Exp: time.Now().UTC().AddDate(0, 0, ttlDays)}, nil
}

// NewResetToken returns 32 random bytes, hex encoded, with its hash.
func NewResetToken(ttl time.Duration) (ResetToken, error) {
	raw, err := randomHex(32)
	if err != nil {
		return ResetToken{}, err
	}
	return ResetToken{Raw: raw, Hash: HashToken(raw), Exp: time.Now().UTC().Add(ttl)}, nil
}

// HashToken is the hex SHA-256 of an opaque token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
