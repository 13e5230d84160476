package binio

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer encodes fields to a single sink. Every field is handed to the sink
// in one Write call so that failures surface on the field that caused them.
type Writer struct {
	sink   io.Writer
	closed bool
}

func NewWriter(sink io.Writer) *Writer {
	return &Writer{sink: sink}
}

func (w *Writer) write(field string, data []byte) error {
	if w.closed {
		return ErrClosed
	}

	_, err := w.sink.Write(data)
	if err != nil {
		return failedWrite(field, err)
	}

	return nil
}

// WriteString writes one byte per character followed by a zero terminator.
func (w *Writer) WriteString(value string) error {
	data := make([]byte, 0, len(value)+1)
	for _, char := range value {
		data = append(data, FromUnicode(char))
	}
	data = append(data, 0)
	return w.write("string", data)
}

func (w *Writer) WriteInt16(value int16) error {
	var data [2]byte
	binary.LittleEndian.PutUint16(data[:], uint16(value))
	return w.write("int16", data[:])
}

func (w *Writer) WriteInt32(value int32) error {
	var data [4]byte
	binary.LittleEndian.PutUint32(data[:], uint32(value))
	return w.write("int32", data[:])
}

func (w *Writer) WriteFloat64(value float64) error {
	var data [8]byte
	binary.LittleEndian.PutUint64(data[:], math.Float64bits(value))
	return w.write("float64", data[:])
}

func (w *Writer) WriteByte(value byte) error {
	return w.write("byte", []byte{value})
}

// Close releases the sink if it is an io.Closer. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if closer, ok := w.sink.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
