package uri

import (
	"braces.dev/errtrace"
)

const (
	base64Std = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	base64URL = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

// Encode64 writes the padded Base64 encoding of src into dst and returns its length.
// With url set the Base64url alphabet is used.
// The output always keeps one byte for the NUL terminator and is silently truncated.
func Encode64(dst, src []byte, url bool) (int, error) {
	if len(dst) < 1 {
		return 0, errtrace.Wrap(StatusBadArguments)
	}

	alpha := base64Std
	if url {
		alpha = base64URL
	}

	end := len(dst) - 1
	n := 0
	put := func(c byte) {
		if n < end {
			dst[n] = c
			n++
		}
	}
	for len(src) > 0 {
		switch len(src) {
		case 1:
			put(alpha[src[0]>>2])
			put(alpha[src[0]<<4&63])
			put('=')
			put('=')
			src = src[1:]
		case 2:
			put(alpha[src[0]>>2])
			put(alpha[(src[0]<<4|src[1]>>4)&63])
			put(alpha[src[1]<<2&63])
			put('=')
			src = src[2:]
		default:
			put(alpha[src[0]>>2])
			put(alpha[(src[0]<<4|src[1]>>4)&63])
			put(alpha[(src[1]<<2|src[2]>>6)&63])
			put(alpha[src[2]&63])
			src = src[3:]
		}
	}
	dst[n] = 0
	return n, nil
}

// Decode64 decodes Base64 or Base64url data from src into dst and returns the decoded length
// together with the rest of src after the data and its padding.
// Whitespace is skipped; decoding stops at the padding or at the first byte outside of both alphabets.
// The output always keeps one byte for the NUL terminator and is silently truncated.
func Decode64(dst []byte, src string) (int, string, error) {
	if len(dst) < 1 {
		return 0, src, errtrace.Wrap(StatusBadArguments)
	}

	end := len(dst) - 1
	n, pos := 0, 0
	i := 0
loop:
	for ; i < len(src); i++ {
		var v byte
		switch c := src[i]; {
		case 'A' <= c && c <= 'Z':
			v = c - 'A'
		case 'a' <= c && c <= 'z':
			v = c - 'a' + 26
		case '0' <= c && c <= '9':
			v = c - '0' + 52
		case c == '+' || c == '-':
			v = 62
		case c == '/' || c == '_':
			v = 63
		case isSpace(c):
			continue
		default:
			break loop
		}

		switch pos {
		case 0:
			if n < end {
				dst[n] = v << 2
			}
		case 1:
			if n < end {
				dst[n] |= v >> 4 & 3
				n++
			}
			if n < end {
				dst[n] = v << 4
			}
		case 2:
			if n < end {
				dst[n] |= v >> 2 & 15
				n++
			}
			if n < end {
				dst[n] = v << 6
			}
		case 3:
			if n < end {
				dst[n] |= v
				n++
			}
		}
		pos = (pos + 1) % 4
	}
	dst[n] = 0

	for i < len(src) && src[i] == '=' {
		i++
	}
	return n, src[i:], nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
