package dnssd

import (
	"strings"

	"github.com/ghettovoice/gocups/internal/util"
)

// DefaultDomain is the multicast DNS domain.
const DefaultDomain = "local."

// SeparateFullName splits a service instance full name "<instance>.<service>.<proto>.<domain>"
// into the unescaped instance name, the registration type and the domain.
// The instance name may contain "\DDD" decimal escapes and "\c" escapes of single characters.
func SeparateFullName(fullname string) (name, regtype, domain string, ok bool) {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)

	i := 0
	for ; i < len(fullname) && fullname[i] != '.'; i++ {
		c := fullname[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}

		switch {
		case i+3 < len(fullname) && isDigit(fullname[i+1]) && isDigit(fullname[i+2]) && isDigit(fullname[i+3]):
			v := int(fullname[i+1]-'0')*100 + int(fullname[i+2]-'0')*10 + int(fullname[i+3]-'0')
			if v > 255 {
				return "", "", "", false
			}
			sb.WriteByte(byte(v))
			i += 3
		case i+1 < len(fullname):
			sb.WriteByte(fullname[i+1])
			i++
		default:
			return "", "", "", false
		}
	}
	if i == len(fullname) || sb.Len() == 0 {
		return "", "", "", false
	}
	name = sb.String()

	// service and protocol labels
	rest := fullname[i+1:]
	svc, rest, ok1 := strings.Cut(rest, ".")
	proto, rest, ok2 := strings.Cut(rest, ".")
	if !ok1 || !ok2 || svc == "" || proto == "" || rest == "" {
		return "", "", "", false
	}
	return name, svc + "." + proto, rest, true
}

// AssembleFullName builds a service instance full name escaping dots, backslashes
// and control characters of the instance name. An empty domain means [DefaultDomain].
func AssembleFullName(name, regtype, domain string) string {
	if domain == "" {
		domain = DefaultDomain
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)

	for i := range len(name) {
		switch c := name[i]; {
		case c == '.' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < ' ' || c == 0x7f:
			sb.WriteByte('\\')
			sb.WriteByte('0' + c/100)
			sb.WriteByte('0' + c/10%10)
			sb.WriteByte('0' + c%10)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('.')
	sb.WriteString(regtype)
	sb.WriteByte('.')
	sb.WriteString(domain)
	return sb.String()
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
