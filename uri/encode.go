package uri

import "braces.dev/errtrace"

// EncodeURI percent-encodes src into dst and returns the number of bytes written.
// Percent signs, controls, space and non-ASCII bytes are escaped.
// The result is NUL-terminated; a src that does not fit fails with [StatusOverflow]
// and leaves dst empty.
func EncodeURI(dst []byte, src string) (int, error) {
	if len(dst) < 1 {
		return 0, errtrace.Wrap(StatusBadArguments)
	}
	w := newBoundedWriter(dst)
	if _, ok := w.encodeCopy(src, "", 0, true); !ok {
		w.reset()
		return 0, errtrace.Wrap(StatusOverflow)
	}
	return w.n, nil
}

// DecodeURI decodes all percent escapes of src into dst and returns the number of bytes written.
// The result is NUL-terminated and silently truncated to the buffer.
// A malformed escape or a byte outside of the visible US-ASCII range fails with [StatusBadURI]
// and leaves dst empty.
func DecodeURI(dst []byte, src string) (int, error) {
	if len(dst) < 1 {
		return 0, errtrace.Wrap(StatusBadArguments)
	}
	n, _, ok := decodeCopy(dst, src, "", true)
	if !ok {
		return 0, errtrace.Wrap(StatusBadURI)
	}
	return n, nil
}
