// Package schema defines the entities persisted by the SwissQR service.
package schema

import "github.com/google/uuid"

// Entity is implemented by every record kept in a record store.
// The identifier of an entity never changes after creation.
type Entity[K ~string] interface {
	Identity() K
}

// UserID identifies a User.
type UserID string

// TokenID identifies a Token. It doubles as the bearer credential.
type TokenID string

// NewUserID mints a fresh random UserID.
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// ParseUserID wraps externally supplied text. The text is not validated.
func ParseUserID(s string) UserID {
	return UserID(s)
}

func (id UserID) String() string { return string(id) }

// NewTokenID mints a fresh random TokenID.
func NewTokenID() TokenID {
	return TokenID(uuid.NewString())
}

// ParseTokenID wraps externally supplied text, e.g. a bearer string.
// Tokens may be handed arbitrary strings, so the format is never checked.
func ParseTokenID(s string) TokenID {
	return TokenID(s)
}

func (id TokenID) String() string { return string(id) }
