package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// wireReader reads big-endian primitives and u16 length-prefixed UTF-8
// strings. The first error sticks; later reads return zero values.
type wireReader struct {
	r   io.Reader
	err error
}

func newWireReader(b []byte) *wireReader {
	return &wireReader{r: bytes.NewReader(b)}
}

func (r *wireReader) read(buf []byte, what string) bool {
	if r.err != nil {
		return false
	}
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.err = fmt.Errorf("%w: reading %s", ErrTruncated, what)
		} else {
			r.err = fmt.Errorf("store: failed to read %s: %w", what, err)
		}
		return false
	}
	return true
}

func (r *wireReader) int32(what string) int32 {
	var buf [4]byte
	if !r.read(buf[:], what) {
		return 0
	}
	return int32(binary.BigEndian.Uint32(buf[:]))
}

func (r *wireReader) int64(what string) int64 {
	var buf [8]byte
	if !r.read(buf[:], what) {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf[:]))
}

func (r *wireReader) string(what string) string {
	var lenBuf [2]byte
	if !r.read(lenBuf[:], what+" length") {
		return ""
	}
	buf := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	if !r.read(buf, what) {
		return ""
	}
	if !utf8.Valid(buf) {
		r.err = fmt.Errorf("%w: %s is not valid UTF-8", ErrMalformed, what)
		return ""
	}
	return string(buf)
}

// remaining reports unread bytes when the source is a bytes.Reader.
func (r *wireReader) remaining() int {
	if br, ok := r.r.(*bytes.Reader); ok {
		return br.Len()
	}
	return 0
}

// wireWriter is the encoding counterpart of wireReader.
type wireWriter struct {
	buf bytes.Buffer
	err error
}

func (w *wireWriter) int32(v int32) {
	if w.err != nil {
		return
	}
	w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(v)))
}

func (w *wireWriter) int64(v int64) {
	if w.err != nil {
		return
	}
	w.buf.Write(binary.BigEndian.AppendUint64(nil, uint64(v)))
}

func (w *wireWriter) string(s string) {
	if w.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		w.err = fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
		return
	}
	w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(len(s))))
	w.buf.WriteString(s)
}

// Bytes returns the encoded data.
func (w *wireWriter) Bytes() []byte {
	return w.buf.Bytes()
}
