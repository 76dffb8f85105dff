package dnssd

//go:generate go tool mockgen -destination=../internal/testutil/dnssdmock/mock_dnssd.go -package=dnssdmock . Discoverer,Context,HostResolver

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ghettovoice/gocups/internal/errorutil"
	"github.com/ghettovoice/gocups/stringpool"
)

// Interface selects the network interfaces a query is sent on.
type Interface int

const (
	// InterfaceAny sends queries on any interface.
	InterfaceAny Interface = 0
	// InterfaceLocal restricts queries to the local host, as used by IPP over USB.
	InterfaceLocal Interface = -1
)

func (i Interface) String() string {
	switch i {
	case InterfaceAny:
		return "any"
	case InterfaceLocal:
		return "local"
	default:
		return "if" + strconv.Itoa(int(i))
	}
}

// Flags describe a resolve result.
type Flags uint

const (
	// FlagMore is set when more results of the same response follow.
	FlagMore Flags = 1 << iota
)

// Result is a resolved service instance.
type Result struct {
	Flags    Flags
	IfIndex  Interface
	FullName string
	Host     string
	Port     uint16
	// TXT is valid only for the duration of the callback.
	TXT TXT
}

// LogValue implements [slog.LogValuer].
func (r Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("fullname", r.FullName),
		slog.String("host", r.Host),
		slog.Int("port", int(r.Port)),
		slog.Int("txt", len(r.TXT)),
	)
}

// ResolveFunc receives resolve results. It is called on the discoverer goroutines.
type ResolveFunc func(r Result)

// Context is a discovery session. Resolves started on it are stopped by Close.
type Context interface {
	// ResolveInstance starts resolving the service instance and returns immediately.
	// cb is called for every resolved record until ctx is done or the context is closed.
	ResolveInstance(ctx context.Context, iface Interface, name, regtype, domain string, cb ResolveFunc) error
	// Close stops all resolves and waits until no callback is running.
	Close() error
}

// Discoverer creates discovery sessions.
type Discoverer interface {
	NewContext() (Context, error)
}

// HostResolver is implemented by discoverers able to map a ".local" host name
// to a fully qualified domain name.
type HostResolver interface {
	LookupFQDN(ctx context.Context, host string) (string, error)
}

// ErrClosed is returned when a resolve is started on a closed context.
const ErrClosed errorutil.Error = "dnssd: context closed"

// ErrNoNameServer is returned when no DNS server is configured for unicast queries.
const ErrNoNameServer errorutil.Error = "dnssd: no name server configured"

// TXTRecord is a single TXT key/value pair.
type TXTRecord struct {
	Key   *stringpool.Handle
	Value string
}

// TXT holds the key/value pairs of a TXT resource record.
type TXT []TXTRecord

// ParseTXT parses "key=value" strings of a TXT record.
// A string without "=" is a key with an empty value, empty strings and empty keys are skipped.
// Keys are interned in the default string pool, call [TXT.Release] when the record is no longer used.
func ParseTXT(strs []string) TXT {
	txt := make(TXT, 0, len(strs))
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k == "" {
			continue
		}
		txt = append(txt, TXTRecord{Key: stringpool.Intern(k), Value: v})
	}
	return txt
}

// Get returns the value of key. Keys are compared case-insensitively.
func (t TXT) Get(key string) (string, bool) {
	for _, r := range t {
		if strings.EqualFold(r.Key.String(), key) {
			return r.Value, true
		}
	}
	return "", false
}

// Release returns the keys to the string pool.
func (t TXT) Release() {
	for i := range t {
		stringpool.Release(t[i].Key)
		t[i].Key = nil
	}
}
