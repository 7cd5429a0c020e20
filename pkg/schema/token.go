package schema

// Token is a bearer credential. Its permission set is fixed at creation and
// it may only ever move from active to inactive.
type Token struct {
	ID          TokenID       `json:"id"`
	UserID      UserID        `json:"userId"`
	Active      bool          `json:"active"`
	Created     int64         `json:"created"`
	Permissions PermissionSet `json:"permissions"`
}

// Identity implements Entity.
func (t Token) Identity() TokenID { return t.ID }

// Invalidated returns a copy of t that is no longer active.
func (t Token) Invalidated() Token {
	t.Active = false
	return t
}
