package dnssd

//go:generate errtrace -w .

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/miekg/dns"

	"github.com/ghettovoice/gocups/internal/errorutil"
	"github.com/ghettovoice/gocups/internal/log"
	"github.com/ghettovoice/gocups/internal/util"
)

// DefaultMulticastAddr is the IPv4 multicast DNS group.
const DefaultMulticastAddr = "224.0.0.251:5353"

// ClientOptions configure a [Client].
type ClientOptions struct {
	// NameServer is the DNS server used for wide-area domains (e.g., "8.8.8.8:53").
	// If empty, the first server from /etc/resolv.conf is used.
	NameServer string
	// MulticastAddr is the address multicast DNS queries are sent to.
	// If empty, [DefaultMulticastAddr] is used.
	MulticastAddr string
	// Timeout limits a single query. If zero, defaults to 5 seconds.
	Timeout time.Duration
	// RetryInterval is the delay between unanswered resolve attempts. If zero, defaults to 1 second.
	RetryInterval time.Duration
	// Log is the client logger. If nil, [log.Default] is used.
	Log *slog.Logger
}

func (o *ClientOptions) nameServer() string {
	if o == nil {
		return ""
	}
	return o.NameServer
}

func (o *ClientOptions) multicastAddr() string {
	if o == nil || o.MulticastAddr == "" {
		return DefaultMulticastAddr
	}
	return o.MulticastAddr
}

func (o *ClientOptions) timeout() time.Duration {
	if o == nil || o.Timeout <= 0 {
		return 5 * time.Second
	}
	return o.Timeout
}

func (o *ClientOptions) retryInterval() time.Duration {
	if o == nil || o.RetryInterval <= 0 {
		return time.Second
	}
	return o.RetryInterval
}

func (o *ClientOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// Client resolves service instances with one-shot multicast DNS queries in the "local." domain
// and with unicast DNS queries in other domains.
type Client struct {
	nameServer    string
	multicastAddr string
	timeout       time.Duration
	retryInterval time.Duration
	log           *slog.Logger
}

// NewClient creates a new client. opts may be nil.
func NewClient(opts *ClientOptions) *Client {
	return &Client{
		nameServer:    opts.nameServer(),
		multicastAddr: opts.multicastAddr(),
		timeout:       opts.timeout(),
		retryInterval: opts.retryInterval(),
		log:           opts.log(),
	}
}

// NewContext implements [Discoverer].
func (c *Client) NewContext() (Context, error) {
	ctx, cancel := context.WithCancel(context.Background())
	return &clientContext{c: c, ctx: ctx, cancel: cancel}, nil
}

type clientContext struct {
	c      *Client
	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func (cc *clientContext) ResolveInstance(
	ctx context.Context,
	iface Interface,
	name, regtype, domain string,
	cb ResolveFunc,
) error {
	if cb == nil {
		return errtrace.Wrap(errorutil.NewInvalidArgumentError("nil resolve callback"))
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.closed {
		return errtrace.Wrap(ErrClosed)
	}

	rctx, cancel := context.WithCancel(cc.ctx)
	stop := context.AfterFunc(ctx, cancel)
	cc.wg.Go(func() {
		defer cancel()
		defer stop()
		cc.c.resolveLoop(rctx, iface, AssembleFullName(name, regtype, domain), cb)
	})
	return nil
}

func (cc *clientContext) Close() error {
	cc.mu.Lock()
	if cc.closed {
		cc.mu.Unlock()
		return nil
	}
	cc.closed = true
	cc.mu.Unlock()

	cc.cancel()
	cc.wg.Wait()
	return nil
}

// resolveLoop repeats the resolve until at least one result is delivered or ctx is done.
func (c *Client) resolveLoop(ctx context.Context, iface Interface, fullname string, cb ResolveFunc) {
	for {
		n, err := c.resolve(ctx, iface, fullname, cb)
		if n > 0 || ctx.Err() != nil {
			return
		}
		if err != nil && !errorutil.IsTimeoutErr(err) {
			c.log.LogAttrs(ctx, slog.LevelDebug, "service instance resolve failed",
				slog.String("fullname", fullname),
				slog.Any("error", err),
			)
		}

		tmr := time.NewTimer(c.retryInterval)
		select {
		case <-ctx.Done():
			tmr.Stop()
			return
		case <-tmr.C:
		}
	}
}

func (c *Client) resolve(ctx context.Context, iface Interface, fullname string, cb ResolveFunc) (int, error) {
	qname := dns.Fqdn(fullname)

	resp, err := c.query(ctx, qname, dns.TypeSRV)
	if err != nil {
		return 0, errtrace.Wrap(err)
	}

	var srvs []*dns.SRV
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			srvs = append(srvs, srv)
		}
	}
	if len(srvs) == 0 {
		return 0, nil
	}

	// owner names of received records are in presentation format
	owner := srvs[0].Hdr.Name
	strs := txtStrings(resp.Extra, owner)
	if strs == nil {
		if txtResp, err := c.query(ctx, qname, dns.TypeTXT); err == nil {
			strs = txtStrings(txtResp.Answer, owner)
		} else {
			c.log.LogAttrs(ctx, slog.LevelDebug, "TXT query failed",
				slog.String("fullname", fullname),
				slog.Any("error", err),
			)
		}
	}

	for i, srv := range srvs {
		if ctx.Err() != nil {
			return i, nil
		}

		var flags Flags
		if i < len(srvs)-1 {
			flags |= FlagMore
		}
		res := Result{
			Flags:    flags,
			IfIndex:  iface,
			FullName: fullname,
			Host:     srv.Target,
			Port:     srv.Port,
			TXT:      ParseTXT(strs),
		}

		c.log.LogAttrs(ctx, slog.LevelDebug, "service instance resolved", slog.Any("result", res))

		cb(res)
		res.TXT.Release()
	}
	return len(srvs), nil
}

func txtStrings(rrs []dns.RR, owner string) []string {
	var strs []string
	for _, rr := range rrs {
		if txt, ok := rr.(*dns.TXT); ok && strings.EqualFold(txt.Hdr.Name, owner) {
			strs = append(strs, txt.Txt...)
		}
	}
	return strs
}

func isLocal(qname string) bool {
	return util.HasSuffixFold(dns.Fqdn(qname), ".local.")
}

func (c *Client) query(ctx context.Context, qname string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(qname, qtype)

	if isLocal(qname) {
		return errtrace.Wrap2(c.exchangeMulticast(ctx, m))
	}
	m.RecursionDesired = true
	return errtrace.Wrap2(c.exchangeUnicast(ctx, m))
}

// exchangeMulticast sends a one-shot multicast DNS query from an ephemeral port
// and returns the first response with the query ID. Responders answer such queries
// with unicast responses to the source port.
func (c *Client) exchangeMulticast(ctx context.Context, m *dns.Msg) (*dns.Msg, error) {
	addr, err := net.ResolveUDPAddr("udp4", c.multicastAddr)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, errtrace.Wrap(err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	out, err := m.Pack()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if _, err := conn.WriteTo(out, addr); err != nil {
		return nil, errtrace.Wrap(err)
	}

	c.log.LogAttrs(ctx, slog.LevelDebug, "multicast query sent",
		slog.Any("conn", conn),
		slog.Any("query", m),
	)

	buf := make([]byte, dns.MaxMsgSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errtrace.Wrap(ctx.Err())
			}
			return nil, errtrace.Wrap(err)
		}

		resp := new(dns.Msg)
		if err := resp.Unpack(buf[:n]); err != nil || !resp.Response || resp.Id != m.Id {
			continue
		}

		c.log.LogAttrs(ctx, slog.LevelDebug, "multicast response received",
			slog.Any("from", from),
			slog.Any("response", resp),
		)
		return resp, nil
	}
}

func (c *Client) exchangeUnicast(ctx context.Context, m *dns.Msg) (*dns.Msg, error) {
	ns, err := c.nameserver()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	client := &dns.Client{Timeout: c.timeout}
	resp, _, err := client.ExchangeContext(ctx, m, ns)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	c.log.LogAttrs(ctx, slog.LevelDebug, "unicast response received",
		slog.String("server", ns),
		slog.Any("response", resp),
	)

	if resp.Rcode != dns.RcodeSuccess {
		return nil, errtrace.Wrap(&net.DNSError{
			Err:        dns.RcodeToString[resp.Rcode],
			Name:       m.Question[0].Name,
			Server:     ns,
			IsNotFound: resp.Rcode == dns.RcodeNameError,
		})
	}
	return resp, nil
}

func (c *Client) nameserver() (string, error) {
	if c.nameServer != "" {
		if _, _, err := net.SplitHostPort(c.nameServer); err != nil {
			return net.JoinHostPort(c.nameServer, "53"), nil //nolint:nilerr
		}
		return c.nameServer, nil
	}

	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", errtrace.Wrap(errors.Join(ErrNoNameServer, err))
	}
	if len(conf.Servers) == 0 {
		return "", errtrace.Wrap(ErrNoNameServer)
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}

// LookupFQDN implements [HostResolver]. It resolves the addresses of host and returns
// the first name of their reverse lookups that is not in the "local" domain.
// The returned name has no trailing dot.
func (c *Client) LookupFQDN(ctx context.Context, host string) (string, error) {
	qname := dns.Fqdn(host)

	var ips []net.IP
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := c.query(ctx, qname, qtype)
		if err != nil {
			if ctx.Err() != nil {
				return "", errtrace.Wrap(ctx.Err())
			}
			continue
		}
		for _, rr := range resp.Answer {
			switch rr := rr.(type) {
			case *dns.A:
				ips = append(ips, rr.A)
			case *dns.AAAA:
				ips = append(ips, rr.AAAA)
			}
		}
	}

	for _, ip := range ips {
		rev, err := dns.ReverseAddr(ip.String())
		if err != nil {
			continue
		}

		m := new(dns.Msg)
		m.SetQuestion(rev, dns.TypePTR)
		m.RecursionDesired = true
		resp, err := c.exchangeUnicast(ctx, m)
		if err != nil {
			c.log.LogAttrs(ctx, slog.LevelDebug, "reverse lookup failed",
				slog.String("host", host),
				slog.String("addr", ip.String()),
				slog.Any("error", err),
			)
			continue
		}
		for _, rr := range resp.Answer {
			if ptr, ok := rr.(*dns.PTR); ok && !isLocal(ptr.Ptr) {
				return strings.TrimSuffix(ptr.Ptr, "."), nil
			}
		}
	}

	return "", errtrace.Wrap(&net.DNSError{
		Err:        "no fully qualified name found",
		Name:       host,
		IsNotFound: true,
	})
}
