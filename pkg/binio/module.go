// Package binio reads and writes the legacy toolkit binary layout: fields are
// laid out back to back with no framing, integers and floats are little
// endian, and strings are single-byte characters terminated by a zero byte.
//
// The widths are fixed by the format. An "integer" is 2 bytes and a "long" is
// 4 bytes, hence Int16 and Int32 rather than int and int64.
//
// Once a read goes wrong every later field is garbage, so nothing here
// substitutes a default value: the first failure is returned and the caller is
// expected to abandon the whole record.
package binio

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned for any failure while reading a field,
	// including running out of input before a string terminator.
	ErrCorrupt = errors.New("corrupt asset")
	// ErrClosed is returned by every operation on a closed Reader or Writer.
	ErrClosed = errors.New("binio: stream closed")
)

func corrupt(field string, err error) error {
	return fmt.Errorf("%w: reading %s: %w", ErrCorrupt, field, err)
}

func failedWrite(field string, err error) error {
	return fmt.Errorf("binio: writing %s: %w", field, err)
}

// assign only touches target when the read succeeds.
func assign[T any](target *T, read func() (T, error)) error {
	value, err := read()
	if err != nil {
		return err
	}
	*target = value
	return nil
}

// Get reads each piece in order. Pieces must be pointers to one of the
// supported field types.
func (r *Reader) Get(pieces ...interface{}) error {
	for _, piece := range pieces {
		var err error
		switch v := piece.(type) {
		case *string:
			err = assign(v, r.ReadString)
		case *int16:
			err = assign(v, r.ReadInt16)
		case *int32:
			err = assign(v, r.ReadInt32)
		case *float64:
			err = assign(v, r.ReadFloat64)
		case *byte:
			err = assign(v, r.ReadByte)
		default:
			return fmt.Errorf("binio: cannot read into %T", piece)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// Put writes each piece in order.
func (w *Writer) Put(pieces ...interface{}) error {
	for _, piece := range pieces {
		var err error
		switch v := piece.(type) {
		case string:
			err = w.WriteString(v)
		case int16:
			err = w.WriteInt16(v)
		case int32:
			err = w.WriteInt32(v)
		case float64:
			err = w.WriteFloat64(v)
		case byte:
			err = w.WriteByte(v)
		default:
			return fmt.Errorf("binio: cannot write %T", piece)
		}

		if err != nil {
			return err
		}
	}

	return nil
}
