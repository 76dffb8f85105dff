package uri

import (
	"bytes"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/gocups/internal/grammar"
)

// Buffer sizes used by [SeparateString], terminator included.
const (
	MaxSchemeLen   = 32
	MaxUsernameLen = 256
	MaxHostLen     = 256
	MaxResourceLen = MaxURILen
)

// Buffers are destination buffers for [Separate].
// Every component is written as a NUL-terminated string truncated to the buffer length.
type Buffers struct {
	Scheme   []byte
	Username []byte
	Host     []byte
	Port     int
	Resource []byte
}

func (b *Buffers) clear() {
	clearBuf(b.Scheme)
	clearBuf(b.Username)
	clearBuf(b.Host)
	clearBuf(b.Resource)
	b.Port = 0
}

// Components returns copies of the NUL-terminated buffer contents.
func (b *Buffers) Components() Components {
	return Components{
		Scheme:   cstring(b.Scheme),
		Username: cstring(b.Username),
		Host:     cstring(b.Host),
		Port:     b.Port,
		Resource: cstring(b.Resource),
	}
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Separate splits uri into components written to out.
// Components selected by coding are percent-decoded.
//
// A missing scheme is replaced by "ipp" for URIs starting with "//" and by "file"
// for URIs starting with "/", and the returned status is [StatusMissingScheme].
// A missing port is replaced by the default port of the scheme.
// A missing resource is replaced by "/" and the returned status is [StatusMissingResource].
// These soft statuses come with a nil error and all outputs set.
// When several apply, the first one found is returned.
//
// Hard failures are returned both as the status and as the error.
// The output buffer of the failed component is emptied.
func Separate(coding Coding, uri string, out *Buffers) (Status, error) {
	if out == nil {
		return StatusBadArguments, errtrace.Wrap(StatusBadArguments)
	}
	out.clear()
	if len(out.Scheme) == 0 || len(out.Username) == 0 || len(out.Host) == 0 || len(out.Resource) == 0 {
		return StatusBadArguments, errtrace.Wrap(StatusBadArguments)
	}
	if uri == "" {
		return StatusBadURI, errtrace.Wrap(StatusBadURI)
	}

	status := StatusOK

	var scheme []byte
	switch {
	case strings.HasPrefix(uri, "//"):
		// some IPP clients send authority-only request URIs
		scheme = out.Scheme[:copyString(out.Scheme, "ipp")]
		status = StatusMissingScheme
	case uri[0] == '/':
		scheme = out.Scheme[:copyString(out.Scheme, "file")]
		status = StatusMissingScheme
	default:
		var ok bool
		if scheme, uri, ok = separateScheme(out.Scheme, uri); !ok {
			clearBuf(out.Scheme)
			return StatusBadScheme, errtrace.Wrap(StatusBadScheme)
		}
	}

	switch string(scheme) {
	case "http":
		out.Port = 80
	case "https":
		out.Port = 443
	case "ipp", "ipps":
		out.Port = 631
	case "socket":
		out.Port = 9100
	case "file", "mailto", "tel":
	default:
		if bytes.EqualFold(scheme, []byte("lpd")) {
			out.Port = 515
		} else {
			status = StatusUnknownScheme
		}
	}

	if rest, ok := strings.CutPrefix(uri, "//"); ok {
		var st Status
		if uri, st = separateAuthority(coding, rest, string(scheme) == "file", out); st.Failed() {
			return st, errtrace.Wrap(st)
		}
	}

	if st, ok := separateResource(coding, uri, out.Resource); !ok {
		clearBuf(out.Resource)
		return StatusBadResource, errtrace.Wrap(StatusBadResource)
	} else if st != StatusOK && status == StatusOK {
		status = st
	}
	return status, nil
}

func separateScheme(dst []byte, uri string) ([]byte, string, bool) {
	end := len(dst) - 1
	n, i := 0, 0
	for ; i < len(uri) && uri[i] != ':' && n < end && grammar.IsSchemeChar(uri[i]); i++ {
		dst[n] = uri[i]
		n++
	}
	dst[n] = 0

	if i == len(uri) || uri[i] != ':' || n == 0 || dst[0] == '.' {
		return nil, uri, false
	}
	return dst[:n], uri[i+1:], true
}

// separateAuthority parses "[userinfo@]host[:port]" and returns the rest of uri.
func separateAuthority(coding Coding, uri string, file bool, out *Buffers) (string, Status) {
	if i := strings.IndexAny(uri, "@/"); i >= 0 && uri[i] == '@' {
		_, rest, ok := decodeCopy(out.Username, uri, "@", coding.has(CodingUsername))
		if !ok {
			clearBuf(out.Username)
			return "", StatusBadUsername
		}
		uri = rest[1:]
	}

	var (
		hostLen int
		ok      bool
	)
	if rest, lit := strings.CutPrefix(uri, "["); lit {
		hostLen, uri, ok = separateIPLiteral(coding, rest, out.Host)
	} else {
		hostLen, uri, ok = separateRegName(coding, uri, out.Host)
	}
	if !ok {
		clearBuf(out.Host)
		return "", StatusBadHostname
	}

	if host := out.Host[:hostLen]; file && len(host) > 0 && string(host) != "localhost" {
		clearBuf(out.Host)
		return "", StatusBadHostname
	}

	if rest, ok := strings.CutPrefix(uri, ":"); ok {
		port, rest, ok := parsePort(rest)
		if !ok {
			out.Port = 0
			return "", StatusBadPort
		}
		out.Port = port
		uri = rest
	}
	return uri, StatusOK
}

func separateIPLiteral(coding Coding, uri string, host []byte) (int, string, bool) {
	if rest, ok := strings.CutPrefix(uri, "v"); ok {
		// IPvFuture "v<hex>." prefix
		i := 0
		for i < len(rest) && grammar.IsHex(rest[i]) {
			i++
		}
		if i == len(rest) || rest[i] != '.' {
			return 0, "", false
		}
		uri = rest[i+1:]
	}

	n, rest, ok := decodeCopy(host, uri, "]", coding.has(CodingHostname))
	if !ok || rest == "" {
		return 0, "", false
	}

	for i := range min(n, len(host)) {
		c := host[i]
		if c == '+' {
			host[i] = '%'
			break
		}
		if c == '%' {
			break
		}
		if !grammar.IsIPv6Char(c) {
			return 0, "", false
		}
	}
	return n, rest[1:], true
}

func separateRegName(coding Coding, uri string, host []byte) (int, string, bool) {
	for i := 0; i < len(uri) && strings.IndexByte(":?/", uri[i]) < 0; i++ {
		if !grammar.IsRegNameChar(uri[i]) {
			return 0, "", false
		}
	}
	n, rest, ok := decodeCopy(host, uri, ":?/", coding.has(CodingHostname))
	return n, rest, ok
}

// parsePort parses a port number that must be followed by "/" or the end of s.
func parsePort(s string) (int, string, bool) {
	if s == "" || !isDigit(s[0]) {
		return 0, "", false
	}
	port, i := 0, 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		if port <= 65535 {
			port = port*10 + int(s[i]-'0')
		}
	}
	if port <= 0 || port > 65535 {
		return 0, "", false
	}
	if s = s[i:]; s != "" && s[0] != '/' {
		return 0, "", false
	}
	return port, s, true
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// separateResource decodes the path and the query into dst.
func separateResource(coding Coding, uri string, dst []byte) (Status, bool) {
	if uri == "" || uri[0] == '?' {
		if len(dst) > 1 {
			dst[0] = '/'
		}
		_, _, ok := decodeCopy(dst[min(1, len(dst)):], uri, "", coding.has(CodingQuery))
		if !ok {
			return StatusOK, false
		}
		if len(dst) == 1 {
			dst[0] = 0
		}
		return StatusMissingResource, true
	}

	n, rest, ok := decodeCopy(dst, uri, "?", coding.has(CodingResource))
	if !ok {
		return StatusOK, false
	}
	if rest != "" {
		if _, _, ok = decodeCopy(dst[n:], rest, "", coding.has(CodingQuery)); !ok {
			return StatusOK, false
		}
	}
	return StatusOK, true
}

// copyString copies s truncated to the buffer and terminates it.
func copyString(dst []byte, s string) int {
	n := copy(dst[:len(dst)-1], s)
	dst[n] = 0
	return n
}

// SeparateString is like [Separate] but allocates the buffers
// and returns the components as strings.
func SeparateString(coding Coding, uri string) (Components, Status, error) {
	var (
		scheme   [MaxSchemeLen]byte
		username [MaxUsernameLen]byte
		host     [MaxHostLen]byte
		resource [MaxResourceLen]byte
	)
	out := Buffers{
		Scheme:   scheme[:],
		Username: username[:],
		Host:     host[:],
		Resource: resource[:],
	}
	st, err := Separate(coding, uri, &out)
	if err != nil {
		return Components{}, st, errtrace.Wrap(err)
	}
	return out.Components(), st, nil
}
