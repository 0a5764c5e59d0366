package database

import (
	"encoding/base64"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// ErrInvalidPageToken is returned when a pagination token cannot be decoded.
var ErrInvalidPageToken = errors.New("database: invalid page token")

const (
	// DefaultPageSize is used when a caller asks for a non-positive limit.
	DefaultPageSize = 50

	// MaxPageSize caps the number of rows a single page may return.
	MaxPageSize = 500
)

// EncodePageToken turns the last key of a page into an opaque token.
// An empty key yields an empty token, meaning "no further pages".
func EncodePageToken(lastKey string) string {
	if lastKey == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(lastKey))
}

// DecodePageToken returns the key a page should resume after.
// The empty token decodes to the empty key (start from the beginning).
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidPageToken
	}
	return string(raw), nil
}

// PageLimit clamps a requested page size into [1, MaxPageSize].
func PageLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}

// IsUniqueConstraintError reports whether err is a SQLite unique or primary
// key violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
