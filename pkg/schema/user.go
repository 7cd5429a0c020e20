package schema

import (
	"hash/crc32"
	"strconv"
)

// User is an account that can own API tokens.
// Email uniqueness is the caller's responsibility, the store does not enforce it.
type User struct {
	ID          UserID `json:"id"`
	Email       string `json:"email"`
	Password    string `json:"-"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	Confirmed   bool   `json:"confirmed"`
	Created     int64  `json:"created"`
}

// Identity implements Entity.
func (u User) Identity() UserID { return u.ID }

// Nonce is the checksum a confirmation request must present.
// It is derived from the email address and the creation timestamp only,
// so it can be recomputed at any time.
func (u User) Nonce() int64 {
	crc := crc32.NewIEEE()
	crc.Write([]byte(u.Email))
	crc.Write([]byte(strconv.FormatInt(u.Created, 10)))
	return int64(crc.Sum32())
}
