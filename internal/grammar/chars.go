// Package grammar provides byte classes and escape helpers used by the URI codec.
package grammar

import "strings"

// UpperHex is the alphabet used for percent-encoded octets.
const UpperHex = "0123456789ABCDEF"

type charClass uint8

const (
	classHex charClass = 1 << iota
	classScheme
	classRegName
	classIPv6
)

var charClasses [256]charClass

func init() {
	for i := range 256 {
		c := byte(i)
		var cls charClass
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
			cls |= classScheme | classRegName
		}
		if '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' {
			cls |= classHex | classIPv6
		}
		if strings.IndexByte("+-.", c) >= 0 {
			cls |= classScheme
		}
		// unreserved, pct-encoded, sub-delims and backslash for SMB domains
		if strings.IndexByte("-._~%!$&'()*+,;=\\", c) >= 0 {
			cls |= classRegName
		}
		if c == ':' || c == '.' {
			cls |= classIPv6
		}
		charClasses[i] = cls
	}
}

// IsHex reports whether c is a hexadecimal digit.
func IsHex(c byte) bool { return charClasses[c]&classHex != 0 }

// IsSchemeChar reports whether c may appear in a URI scheme.
func IsSchemeChar(c byte) bool { return charClasses[c]&classScheme != 0 }

// IsRegNameChar reports whether c may appear in an unbracketed host:
// RFC 3986 reg-name characters, pct-encoded octets and a backslash.
func IsRegNameChar(c byte) bool { return charClasses[c]&classRegName != 0 }

// IsIPv6Char reports whether c may appear in a bracketed IP literal before the zone.
func IsIPv6Char(c byte) bool { return charClasses[c]&classIPv6 != 0 }

// IsPrintable reports whether c is a visible US-ASCII character (0x21-0x7E).
func IsPrintable(c byte) bool { return c > ' ' && c < 0x7f }

// NeedsEscape reports whether c must be percent-encoded when copied with encoding enabled.
// A percent sign, controls, space, non-ASCII octets and members of reserved are escaped.
func NeedsEscape(c byte, reserved string) bool {
	return c == '%' || c <= ' ' || c >= 0x80 || strings.IndexByte(reserved, c) >= 0
}

// Unhex returns the value of the hexadecimal digit c.
func Unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
