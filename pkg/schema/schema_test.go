package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermission_Ordinals(t *testing.T) {
	assert.Equal(t, 0, int(PermissionCreate))
	assert.Equal(t, 1, int(PermissionScan))
	assert.Equal(t, 2, int(PermissionAdmin))
	assert.False(t, Permission(3).Valid())
	assert.False(t, Permission(-1).Valid())
	assert.Equal(t, "Permission(7)", Permission(7).String())
}

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in      string
		want    Permission
		wantErr bool
	}{
		{in: "QR_CREATE", want: PermissionCreate},
		{in: "qr_scan", want: PermissionScan},
		{in: " Admin ", want: PermissionAdmin},
		{in: "ROOT", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePermission(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPermission_Public(t *testing.T) {
	assert.True(t, PermissionCreate.Public())
	assert.True(t, PermissionScan.Public())
	assert.False(t, PermissionAdmin.Public())
}

func TestPermissionSet(t *testing.T) {
	s := NewPermissionSet(PermissionAdmin, PermissionCreate, PermissionCreate, Permission(9))

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(PermissionCreate))
	assert.False(t, s.Has(PermissionScan))
	assert.True(t, s.Has(PermissionAdmin))
	assert.False(t, s.Has(Permission(9)))
	assert.Equal(t, []Permission{PermissionCreate, PermissionAdmin}, s.Slice())
	assert.Equal(t, "QR_CREATE,ADMIN", s.String())

	assert.True(t, s.HasAll(NewPermissionSet(PermissionAdmin)))
	assert.True(t, s.HasAll(NewPermissionSet()))
	assert.False(t, s.HasAll(NewPermissionSet(PermissionAdmin, PermissionScan)))

	assert.True(t, NewPermissionSet().Empty())
	assert.False(t, s.Empty())
}

func TestPermissionSet_JSON(t *testing.T) {
	s := NewPermissionSet(PermissionScan, PermissionCreate)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["QR_CREATE","QR_SCAN"]`, string(data))

	var back PermissionSet
	require.NoError(t, json.Unmarshal([]byte(`["admin","QR_SCAN"]`), &back))
	assert.Equal(t, NewPermissionSet(PermissionAdmin, PermissionScan), back)

	assert.Error(t, json.Unmarshal([]byte(`["NOPE"]`), &back))
}

func TestToken_JSON(t *testing.T) {
	tok := Token{
		ID:          "t-1",
		UserID:      "u-1",
		Active:      true,
		Created:     1700000000000,
		Permissions: NewPermissionSet(PermissionAdmin),
	}

	data, err := json.Marshal(tok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t-1","userId":"u-1","active":true,"created":1700000000000,"permissions":["ADMIN"]}`, string(data))
}

func TestToken_Invalidated(t *testing.T) {
	tok := Token{ID: "t-1", Active: true}
	inv := tok.Invalidated()

	assert.False(t, inv.Active)
	assert.True(t, tok.Active, "receiver must not change")
	assert.Equal(t, tok.ID, inv.Identity())
}

func TestUser_PasswordNotSerialized(t *testing.T) {
	u := User{ID: "u-1", Email: "a@example.ch", Password: "hash"}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")
	assert.NotContains(t, string(data), "password")
}

func TestUser_Nonce(t *testing.T) {
	u := User{Email: "a@example.ch", Created: 1700000000000}

	n := u.Nonce()
	assert.Positive(t, n)
	assert.Equal(t, n, u.Nonce(), "nonce must be stable")

	u.Active = false
	u.Description = "changed"
	assert.Equal(t, n, u.Nonce(), "nonce only depends on email and creation time")

	other := u
	other.Created++
	assert.NotEqual(t, n, other.Nonce())

	other = u
	other.Email = "b@example.ch"
	assert.NotEqual(t, n, other.Nonce())
}

func TestIDs(t *testing.T) {
	uid := NewUserID()
	_, err := uuid.Parse(uid.String())
	assert.NoError(t, err)
	assert.NotEqual(t, uid, NewUserID())

	tid := NewTokenID()
	_, err = uuid.Parse(tid.String())
	assert.NoError(t, err)

	assert.Equal(t, TokenID("any string at all"), ParseTokenID("any string at all"))
	assert.Equal(t, UserID("u"), ParseUserID("u"))
}
