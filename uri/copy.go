package uri

import (
	"strconv"
	"strings"

	"github.com/ghettovoice/gocups/internal/grammar"
)

// boundedWriter appends to a fixed-size buffer keeping the last byte for the NUL terminator.
// All writes to caller buffers in this package go through it or through decodeCopy.
type boundedWriter struct {
	buf []byte
	n   int
	end int
}

func newBoundedWriter(buf []byte) *boundedWriter {
	return &boundedWriter{buf: buf, end: len(buf) - 1}
}

// terminate writes the NUL terminator at the current position.
func (w *boundedWriter) terminate() {
	if w.n <= w.end {
		w.buf[w.n] = 0
	}
}

// reset empties the buffer.
func (w *boundedWriter) reset() {
	w.n = 0
	if len(w.buf) > 0 {
		w.buf[0] = 0
	}
}

func (w *boundedWriter) writeByte(c byte) bool {
	if w.n >= w.end {
		return false
	}
	w.buf[w.n] = c
	w.n++
	return true
}

func (w *boundedWriter) writeString(s string) bool {
	if w.n+len(s) > w.end {
		return false
	}
	w.n += copy(w.buf[w.n:], s)
	return true
}

func (w *boundedWriter) writeInt(v int) bool {
	var tmp [20]byte
	b := strconv.AppendInt(tmp[:0], int64(v), 10)
	if w.n+len(b) > w.end {
		return false
	}
	w.n += copy(w.buf[w.n:], b)
	return true
}

// encodeCopy copies src until the term byte (if non-zero) or the end of src.
// With encode set, '%', controls, space, non-ASCII bytes and bytes from reserved
// are written as "%XX". It returns the rest of src starting at the terminator and
// false if src does not fit into the buffer.
func (w *boundedWriter) encodeCopy(src, reserved string, term byte, encode bool) (string, bool) {
	for i := 0; i < len(src); i++ {
		c := src[i]
		if term != 0 && c == term {
			w.terminate()
			return src[i:], true
		}

		if encode && grammar.NeedsEscape(c, reserved) {
			if w.n+2 >= w.end {
				w.terminate()
				return src[i:], false
			}
			w.buf[w.n] = '%'
			w.buf[w.n+1] = grammar.UpperHex[c>>4]
			w.buf[w.n+2] = grammar.UpperHex[c&15]
			w.n += 3
			continue
		}

		if !w.writeByte(c) {
			w.terminate()
			return src[i:], false
		}
	}
	w.terminate()
	return "", true
}

// decodeCopy copies src into dst until any byte from term or the end of src.
// With decode set, "%XX" escapes are decoded and a malformed escape fails.
// Raw bytes outside of the visible US-ASCII range always fail.
// Output that does not fit into dst is dropped while the rest of src is still validated.
// It returns the number of bytes written, the rest of src starting at the terminator
// and false on failure, in which case dst is emptied.
func decodeCopy(dst []byte, src, term string, decode bool) (int, string, bool) {
	end := len(dst) - 1
	n := 0
	i := 0
	for ; i < len(src) && strings.IndexByte(term, src[i]) < 0; i++ {
		c := src[i]
		switch {
		case c == '%' && decode:
			if i+2 >= len(src) || !grammar.IsHex(src[i+1]) || !grammar.IsHex(src[i+2]) {
				clearBuf(dst)
				return 0, "", false
			}
			c = grammar.Unhex(src[i+1])<<4 | grammar.Unhex(src[i+2])
			i += 2
		case !grammar.IsPrintable(c):
			clearBuf(dst)
			return 0, "", false
		}

		if n < end {
			dst[n] = c
			n++
		}
	}
	if n <= end {
		dst[n] = 0
	}
	return n, src[i:], true
}

func clearBuf(b []byte) {
	if len(b) > 0 {
		b[0] = 0
	}
}
