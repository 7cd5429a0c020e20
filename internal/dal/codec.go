package dal

import (
	"fmt"

	"github.com/celerix-dev/swissqr/internal/engine"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// UserCodec is the binary form of a schema.User.
type UserCodec struct{}

func (UserCodec) Encode(out *engine.DataOutput, u schema.User) error {
	for _, s := range []string{string(u.ID), u.Email, u.Password, u.Description} {
		if err := out.WriteUTF(s); err != nil {
			return err
		}
	}
	out.WriteBool(u.Active)
	out.WriteBool(u.Confirmed)
	out.PackLong(u.Created)
	return nil
}

func (UserCodec) Decode(in *engine.DataInput) (schema.User, error) {
	var (
		u   schema.User
		err error
		id  string
	)
	if id, err = in.ReadUTF(); err != nil {
		return u, err
	}
	u.ID = schema.ParseUserID(id)
	if u.Email, err = in.ReadUTF(); err != nil {
		return u, err
	}
	if u.Password, err = in.ReadUTF(); err != nil {
		return u, err
	}
	if u.Description, err = in.ReadUTF(); err != nil {
		return u, err
	}
	if u.Active, err = in.ReadBool(); err != nil {
		return u, err
	}
	if u.Confirmed, err = in.ReadBool(); err != nil {
		return u, err
	}
	if u.Created, err = in.UnpackLong(); err != nil {
		return u, err
	}
	return u, nil
}

// TokenCodec is the binary form of a schema.Token. Permissions are written
// as a count followed by their ordinals.
type TokenCodec struct{}

func (TokenCodec) Encode(out *engine.DataOutput, t schema.Token) error {
	if err := out.WriteUTF(string(t.ID)); err != nil {
		return err
	}
	if err := out.WriteUTF(string(t.UserID)); err != nil {
		return err
	}
	out.WriteBool(t.Active)
	out.PackLong(t.Created)

	perms := t.Permissions.Slice()
	out.PackInt(len(perms))
	for _, p := range perms {
		out.PackInt(int(p))
	}
	return nil
}

func (TokenCodec) Decode(in *engine.DataInput) (schema.Token, error) {
	var (
		t   schema.Token
		err error
		s   string
	)
	if s, err = in.ReadUTF(); err != nil {
		return t, err
	}
	t.ID = schema.ParseTokenID(s)
	if s, err = in.ReadUTF(); err != nil {
		return t, err
	}
	t.UserID = schema.ParseUserID(s)
	if t.Active, err = in.ReadBool(); err != nil {
		return t, err
	}
	if t.Created, err = in.UnpackLong(); err != nil {
		return t, err
	}

	count, err := in.UnpackInt()
	if err != nil {
		return t, err
	}
	if count < 0 || count > in.Remaining() {
		return t, fmt.Errorf("%w: permission count %d", engine.ErrCorrupt, count)
	}
	perms := make([]schema.Permission, 0, count)
	for range count {
		ordinal, err := in.UnpackInt()
		if err != nil {
			return t, err
		}
		p := schema.Permission(ordinal)
		if !p.Valid() {
			return t, fmt.Errorf("%w: permission ordinal %d", engine.ErrCorrupt, ordinal)
		}
		perms = append(perms, p)
	}
	t.Permissions = schema.NewPermissionSet(perms...)
	return t, nil
}

// AccessCodec is the binary form of a schema.Access.
type AccessCodec struct{}

func (AccessCodec) Encode(out *engine.DataOutput, a schema.Access) error {
	for _, s := range []string{string(a.TokenID), a.IP, a.Path, a.Method} {
		if err := out.WriteUTF(s); err != nil {
			return err
		}
	}
	out.PackInt(a.Status)
	out.PackLong(a.Timestamp)
	return nil
}

func (AccessCodec) Decode(in *engine.DataInput) (schema.Access, error) {
	var (
		a   schema.Access
		err error
		s   string
	)
	if s, err = in.ReadUTF(); err != nil {
		return a, err
	}
	a.TokenID = schema.ParseTokenID(s)
	if a.IP, err = in.ReadUTF(); err != nil {
		return a, err
	}
	if a.Path, err = in.ReadUTF(); err != nil {
		return a, err
	}
	if a.Method, err = in.ReadUTF(); err != nil {
		return a, err
	}
	if a.Status, err = in.UnpackInt(); err != nil {
		return a, err
	}
	if a.Timestamp, err = in.UnpackLong(); err != nil {
		return a, err
	}
	return a, nil
}
