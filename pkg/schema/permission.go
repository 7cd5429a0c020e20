package schema

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

// Permission is a capability tag required by a route and granted to a Token.
// The numeric values are persisted and must not be reordered.
type Permission int

const (
	// PermissionCreate allows generating QR bills.
	PermissionCreate Permission = iota
	// PermissionScan allows scanning QR bills.
	PermissionScan
	// PermissionAdmin allows administrative duties such as listing users.
	PermissionAdmin

	permissionCount
)

var permissionNames = [...]string{
	PermissionCreate: "QR_CREATE",
	PermissionScan:   "QR_SCAN",
	PermissionAdmin:  "ADMIN",
}

// AllPermissions lists every known permission in ordinal order.
func AllPermissions() []Permission {
	return []Permission{PermissionCreate, PermissionScan, PermissionAdmin}
}

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	return p >= 0 && p < permissionCount
}

// Public reports whether p may be granted without elevated trust.
func (p Permission) Public() bool {
	return p == PermissionCreate || p == PermissionScan
}

func (p Permission) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Permission(%d)", int(p))
	}
	return permissionNames[p]
}

// ParsePermission resolves a permission by name, case-insensitively.
func ParsePermission(s string) (Permission, error) {
	for i, name := range permissionNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Permission(i), nil
		}
	}
	return 0, fmt.Errorf("unknown permission %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Permission) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown permission ordinal %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Permission) UnmarshalText(text []byte) error {
	parsed, err := ParsePermission(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PermissionSet is an immutable set of permissions.
type PermissionSet uint32

// NewPermissionSet builds a set from the given permissions. Unknown values are ignored.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		if p.Valid() {
			s |= 1 << uint(p)
		}
	}
	return s
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	return p.Valid() && s&(1<<uint(p)) != 0
}

// HasAll reports whether s is a superset of required.
func (s PermissionSet) HasAll(required PermissionSet) bool {
	return s&required == required
}

// Empty reports whether the set holds no permission.
func (s PermissionSet) Empty() bool { return s == 0 }

// Len returns the number of permissions in the set.
func (s PermissionSet) Len() int { return bits.OnesCount32(uint32(s)) }

// Slice returns the members in ordinal order.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, s.Len())
	for _, p := range AllPermissions() {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s PermissionSet) String() string {
	names := make([]string, 0, s.Len())
	for _, p := range s.Slice() {
		names = append(names, p.String())
	}
	return strings.Join(names, ",")
}

// MarshalJSON renders the set as a list of permission names.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON accepts a list of permission names.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var perms []Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	*s = NewPermissionSet(perms...)
	return nil
}
