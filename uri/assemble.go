package uri

//go:generate errtrace -w .

import (
	"fmt"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/gocups/internal/grammar"
)

// MaxURILen is the size of the buffers used by the allocating helpers, terminator included.
const MaxURILen = 1024

// maxFormattedResource limits the resource produced by [AssembleFormat], terminator included.
const maxFormattedResource = 1024

const (
	usernameReserved = "/?#[]@"
	hostnameReserved = "\"#/:<>?@[\\]^`{|}"
)

// Assemble writes a URI built from the given components into buf and returns its length.
// The URI is followed by a NUL byte, so buf must have room for one more byte than the URI.
//
// Components selected by coding are percent-encoded. An empty username is omitted,
// an empty host omits the whole authority, port 0 omits the port and an empty resource
// is written as "/". Raw IPv6 addresses are enclosed in brackets; a zone identifier is
// encoded as "%25" with [CodingRFC6874] and as "+" with the "v1." prefix otherwise.
//
// Assemble fails with [StatusBadArguments] if buf is empty, scheme is empty or port is
// negative and with [StatusOverflow] if the URI does not fit into buf.
// On failure buf holds an empty string.
func Assemble(buf []byte, coding Coding, scheme, username, host string, port int, resource string) (int, error) {
	if len(buf) < 1 || scheme == "" || port < 0 {
		clearBuf(buf)
		return 0, errtrace.Wrap(StatusBadArguments)
	}

	w := newBoundedWriter(buf)
	if !assemble(w, coding, scheme, username, host, port, resource) {
		w.reset()
		return 0, errtrace.Wrap(StatusOverflow)
	}
	w.terminate()
	return w.n, nil
}

func assemble(w *boundedWriter, coding Coding, scheme, username, host string, port int, resource string) bool {
	if _, ok := w.encodeCopy(scheme, "", 0, false); !ok {
		return false
	}

	switch scheme {
	case "geo", "mailto", "tel":
		if !w.writeByte(':') {
			return false
		}
	default:
		if !w.writeString("://") {
			return false
		}
	}

	if host != "" {
		if username != "" {
			if _, ok := w.encodeCopy(username, usernameReserved, 0, coding.has(CodingUsername)); !ok {
				return false
			}
			if !w.writeByte('@') {
				return false
			}
		}

		if isRawIPv6(host) {
			if !writeIPv6(w, host, coding) {
				return false
			}
		} else if _, ok := w.encodeCopy(host, hostnameReserved, 0, coding.has(CodingHostname)); !ok {
			return false
		}

		if port > 0 && (!w.writeByte(':') || !w.writeInt(port)) {
			return false
		}
	}

	if resource == "" {
		return w.writeByte('/')
	}

	query, ok := w.encodeCopy(resource, "", '?', coding.has(CodingResource))
	if !ok {
		return false
	}
	if query != "" {
		if _, ok := w.encodeCopy(query, "", 0, coding.has(CodingQuery)); !ok {
			return false
		}
	}
	return true
}

// isRawIPv6 reports whether host looks like an IPv6 address without brackets.
// DNS-SD service names may contain colons, so names with "._tcp" never match.
func isRawIPv6(host string) bool {
	if strings.IndexByte(host, ':') < 0 || strings.Contains(host, "._tcp") {
		return false
	}
	for i := range len(host) {
		if c := host[i]; c != ':' && !grammar.IsHex(c) {
			return c == '%'
		}
	}
	return true
}

func writeIPv6(w *boundedWriter, host string, coding Coding) bool {
	rfc6874 := coding.has(CodingRFC6874)
	if strings.IndexByte(host, '%') >= 0 && !rfc6874 {
		// link-local address in the IPvFuture form understood by older clients
		if !w.writeString("[v1.") {
			return false
		}
	} else if !w.writeByte('[') {
		return false
	}

	for i := range len(host) {
		c := host[i]
		switch {
		case c != '%':
			if !w.writeByte(c) {
				return false
			}
		case rfc6874:
			if !w.writeString("%25") {
				return false
			}
		default:
			if !w.writeByte('+') {
				return false
			}
		}
	}
	return w.writeByte(']')
}

// AssembleFormat is like [Assemble] but builds the resource with [fmt.Sprintf].
// The formatted resource is limited to 1023 bytes; a longer one fails with [StatusOverflow].
// An empty format fails with [StatusBadArguments].
func AssembleFormat(
	buf []byte,
	coding Coding,
	scheme, username, host string,
	port int,
	format string,
	args ...any,
) (int, error) {
	if len(buf) < 1 || scheme == "" || port < 0 || format == "" {
		clearBuf(buf)
		return 0, errtrace.Wrap(StatusBadArguments)
	}

	resource := fmt.Sprintf(format, args...)
	if len(resource) >= maxFormattedResource {
		clearBuf(buf)
		return 0, errtrace.Wrap(StatusOverflow)
	}
	return errtrace.Wrap2(Assemble(buf, coding, scheme, username, host, port, resource))
}

// Components holds the parts of a URI.
type Components struct {
	Scheme   string
	Username string
	Host     string
	Port     int
	Resource string
}

// AssembleString is like [Assemble] but returns the URI as a string.
// The URI is limited to [MaxURILen]-1 bytes.
func AssembleString(coding Coding, c Components) (string, error) {
	var buf [MaxURILen]byte
	n, err := Assemble(buf[:], coding, c.Scheme, c.Username, c.Host, c.Port, c.Resource)
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	return string(buf[:n]), nil
}
