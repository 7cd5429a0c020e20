package engine

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"
)

// DataOutput accumulates the binary form of a value.
//
// Strings use a big-endian uint16 byte length followed by UTF-8 bytes.
// Packed numbers are written most significant 7-bit group first; the final
// group carries the high bit.
type DataOutput struct {
	buf []byte
}

// Bytes returns the encoded bytes.
func (o *DataOutput) Bytes() []byte { return o.buf }

// WriteUTF writes a length-prefixed string.
func (o *DataOutput) WriteUTF(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}
	o.buf = binary.BigEndian.AppendUint16(o.buf, uint16(len(s)))
	o.buf = append(o.buf, s...)
	return nil
}

// WriteBool writes a single byte, 1 for true.
func (o *DataOutput) WriteBool(b bool) {
	if b {
		o.buf = append(o.buf, 1)
		return
	}
	o.buf = append(o.buf, 0)
}

// PackLong writes v as an unsigned 64-bit packed number.
func (o *DataOutput) PackLong(v int64) {
	u := uint64(v)
	shift := 63 - bits.LeadingZeros64(u)
	shift -= shift % 7
	for shift > 0 {
		o.buf = append(o.buf, byte((u>>uint(shift))&0x7F))
		shift -= 7
	}
	o.buf = append(o.buf, byte(u&0x7F)|0x80)
}

// PackInt writes v as an unsigned 32-bit packed number.
func (o *DataOutput) PackInt(v int) {
	u := uint32(v)
	shift := 31 - bits.LeadingZeros32(u)
	shift -= shift % 7
	for shift > 0 {
		o.buf = append(o.buf, byte((u>>uint(shift))&0x7F))
		shift -= 7
	}
	o.buf = append(o.buf, byte(u&0x7F)|0x80)
}

// DataInput reads values written by DataOutput.
type DataInput struct {
	buf []byte
	pos int
}

// NewDataInput wraps b for reading.
func NewDataInput(b []byte) *DataInput {
	return &DataInput{buf: b}
}

// Remaining returns the number of unread bytes.
func (in *DataInput) Remaining() int { return len(in.buf) - in.pos }

func (in *DataInput) readByte() (byte, error) {
	if in.pos >= len(in.buf) {
		return 0, fmt.Errorf("%w: %w", ErrCorrupt, io.ErrUnexpectedEOF)
	}
	b := in.buf[in.pos]
	in.pos++
	return b, nil
}

// ReadUTF reads a length-prefixed string.
func (in *DataInput) ReadUTF() (string, error) {
	if in.Remaining() < 2 {
		return "", fmt.Errorf("%w: %w", ErrCorrupt, io.ErrUnexpectedEOF)
	}
	n := int(binary.BigEndian.Uint16(in.buf[in.pos:]))
	in.pos += 2
	if in.Remaining() < n {
		return "", fmt.Errorf("%w: string of %d bytes truncated", ErrCorrupt, n)
	}
	s := string(in.buf[in.pos : in.pos+n])
	in.pos += n
	return s, nil
}

// ReadBool reads a single byte boolean.
func (in *DataInput) ReadBool() (bool, error) {
	b, err := in.readByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// UnpackLong reads a number written by PackLong.
func (in *DataInput) UnpackLong() (int64, error) {
	var ret uint64
	for i := 0; i < 10; i++ {
		b, err := in.readByte()
		if err != nil {
			return 0, err
		}
		ret = ret<<7 | uint64(b&0x7F)
		if b&0x80 != 0 {
			return int64(ret), nil
		}
	}
	return 0, fmt.Errorf("%w: packed long too long", ErrCorrupt)
}

// UnpackInt reads a number written by PackInt.
func (in *DataInput) UnpackInt() (int, error) {
	var ret uint32
	for i := 0; i < 5; i++ {
		b, err := in.readByte()
		if err != nil {
			return 0, err
		}
		ret = ret<<7 | uint32(b&0x7F)
		if b&0x80 != 0 {
			return int(int32(ret)), nil
		}
	}
	return 0, fmt.Errorf("%w: packed int too long", ErrCorrupt)
}
