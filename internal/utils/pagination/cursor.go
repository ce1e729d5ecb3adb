package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidToken is returned for tokens this package did not produce.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the opaque pagination state we encode/decode.
// CreatedNanos + ID establish a stable newest-first cursor. Nanoseconds keep
// the stored timestamp exact whatever precision the column holds, so the
// equality half of the keyset predicate matches the last row.
type Cursor struct {
	ID           uint64 `json:"id"`
	CreatedNanos int64  `json:"created_ns,omitempty"`
}

// At builds the cursor for a row created at t.
func At(id uint64, t time.Time) Cursor {
	return Cursor{ID: id, CreatedNanos: t.UnixNano()}
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool { return c.ID == 0 && c.CreatedNanos == 0 }

// CreatedAt is the cursor's timestamp in UTC.
func (c Cursor) CreatedAt() time.Time { return time.Unix(0, c.CreatedNanos).UTC() }

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}

// ClampLimit keeps a requested page size inside [1, max], using def for zero.
func ClampLimit(limit, def, max int) int {
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	}
	return limit
}
