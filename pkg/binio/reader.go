package binio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"strings"
)

// Reader decodes fields from a single source. It buffers reads, so the
// source must not be read from elsewhere while the Reader is in use.
type Reader struct {
	source io.Reader
	buffer *bufio.Reader
	closed bool
}

func NewReader(source io.Reader) *Reader {
	return &Reader{
		source: source,
		buffer: bufio.NewReader(source),
	}
}

func (r *Reader) read(field string, out []byte) error {
	if r.closed {
		return ErrClosed
	}

	_, err := io.ReadFull(r.buffer, out)
	if err != nil {
		return corrupt(field, err)
	}

	return nil
}

// ReadString reads characters up to and including a zero byte. The zero byte
// is not part of the result.
func (r *Reader) ReadString() (string, error) {
	if r.closed {
		return "", ErrClosed
	}

	var value strings.Builder
	for {
		b, err := r.buffer.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", corrupt("string", err)
		}

		if b == 0 {
			return value.String(), nil
		}

		value.WriteRune(ToUnicode(b))
	}
}

func (r *Reader) ReadInt16() (int16, error) {
	var data [2]byte
	if err := r.read("int16", data[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(data[:])), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	var data [4]byte
	if err := r.read("int32", data[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(data[:])), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	var data [8]byte
	if err := r.read("float64", data[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data[:])), nil
}

func (r *Reader) ReadByte() (byte, error) {
	var data [1]byte
	if err := r.read("byte", data[:]); err != nil {
		return 0, err
	}
	return data[0], nil
}

// Close releases the source if it is an io.Closer. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
