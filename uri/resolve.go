package uri

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/eapache/queue"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/gocups/dnssd"
	"github.com/ghettovoice/gocups/internal/errorutil"
	"github.com/ghettovoice/gocups/internal/log"
	"github.com/ghettovoice/gocups/internal/util"
)

const (
	// ErrNotFound is returned when a service instance is not resolved in time.
	ErrNotFound errorutil.Error = "uri: service instance not found"
	// ErrCanceled is returned when a resolve is canceled by the caller.
	ErrCanceled errorutil.Error = "uri: resolve canceled"
	// ErrBadServiceName is returned for hosts that are not valid service instance names.
	ErrBadServiceName errorutil.Error = "uri: bad service instance name"
)

// Default resolver timings.
const (
	DefaultResolveTimeout = 90 * time.Second
	DefaultPollInterval   = 250 * time.Millisecond
	DefaultDomainDelay    = 2 * time.Second
)

// Clock is the time source of a [Resolver].
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

func (sysClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// ResolverOptions configure a [Resolver].
type ResolverOptions struct {
	// Discoverer resolves service instances.
	// If nil, a [dnssd.Client] with default options is used.
	Discoverer dnssd.Discoverer
	// Clock is the time source. If nil, the system clock is used.
	Clock Clock
	// Log is the resolver logger. If nil, logging is disabled.
	Log *slog.Logger
	// Timeout limits a resolve. If zero, [DefaultResolveTimeout] is used.
	Timeout time.Duration
	// PollInterval is the delay between checks for results. If zero, [DefaultPollInterval] is used.
	PollInterval time.Duration
	// DomainDelay is the delay before the resolve in a domain other than "local." starts.
	// If zero, [DefaultDomainDelay] is used.
	DomainDelay time.Duration
}

func (o *ResolverOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Noop
	}
	return o.Log
}

func (o *ResolverOptions) discoverer(logger *slog.Logger) dnssd.Discoverer {
	if o == nil || o.Discoverer == nil {
		return dnssd.NewClient(&dnssd.ClientOptions{Log: logger})
	}
	return o.Discoverer
}

func (o *ResolverOptions) clock() Clock {
	if o == nil || o.Clock == nil {
		return sysClock{}
	}
	return o.Clock
}

func (o *ResolverOptions) timeout() time.Duration {
	if o == nil || o.Timeout <= 0 {
		return DefaultResolveTimeout
	}
	return o.Timeout
}

func (o *ResolverOptions) pollInterval() time.Duration {
	if o == nil || o.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return o.PollInterval
}

func (o *ResolverOptions) domainDelay() time.Duration {
	if o == nil || o.DomainDelay <= 0 {
		return DefaultDomainDelay
	}
	return o.DomainDelay
}

// ResolveOptions control a single resolve.
type ResolveOptions struct {
	// FQDN requests a fully qualified host name instead of a ".local" one.
	FQDN bool
	// FaxOut requests the FaxOut service of IPP printers instead of the print service.
	FaxOut bool
	// Continue is called on every poll; returning false cancels the resolve.
	Continue func() bool
}

func (o *ResolveOptions) fqdn() bool { return o != nil && o.FQDN }

func (o *ResolveOptions) faxOut() bool { return o != nil && o.FaxOut }

func (o *ResolveOptions) cont() bool { return o == nil || o.Continue == nil || o.Continue() }

// Resolver resolves DNS-SD service instance URIs such as
// "ipp://Printer._ipp._tcp.local./" into URIs with a host name and a port.
type Resolver struct {
	disc        dnssd.Discoverer
	clock       Clock
	log         *slog.Logger
	timeout     time.Duration
	poll        time.Duration
	domainDelay time.Duration
}

// NewResolver creates a new resolver. opts may be nil.
func NewResolver(opts *ResolverOptions) *Resolver {
	logger := opts.log()
	return &Resolver{
		disc:        opts.discoverer(logger),
		clock:       opts.clock(),
		log:         logger,
		timeout:     opts.timeout(),
		poll:        opts.pollInterval(),
		domainDelay: opts.domainDelay(),
	}
}

var defResolver = sync.OnceValue(func() *Resolver { return NewResolver(nil) })

// DefaultResolver returns the resolver used by [Resolve].
func DefaultResolver() *Resolver { return defResolver() }

// Resolve resolves rawURI with the default resolver.
func Resolve(ctx context.Context, rawURI string, opts *ResolveOptions) (string, error) {
	return errtrace.Wrap2(defResolver().Resolve(ctx, rawURI, opts))
}

// Resolve is like [Resolver.ResolveTo] but returns the URI as a string.
// The URI is limited to [MaxURILen]-1 bytes.
func (r *Resolver) Resolve(ctx context.Context, rawURI string, opts *ResolveOptions) (string, error) {
	var buf [MaxURILen]byte
	n, err := r.ResolveTo(ctx, buf[:], rawURI, opts)
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	return string(buf[:n]), nil
}

// ResolveTo writes the resolved URI into buf and returns its length.
//
// URIs whose host is not a service instance name are copied unchanged, truncated to buf.
// A "?uuid=" parameter of the resource selects the instance with the matching UUID TXT key
// and is removed from the result. The instance is resolved in the "local." domain first
// and, after a delay, also in its own domain. The resolve ends with [ErrNotFound] when
// no instance is found in time and with [ErrCanceled] when ctx is done or
// [ResolveOptions.Continue] returns false.
func (r *Resolver) ResolveTo(ctx context.Context, buf []byte, rawURI string, opts *ResolveOptions) (int, error) {
	if len(buf) < 1 {
		return 0, errtrace.Wrap(StatusBadArguments)
	}
	clearBuf(buf)

	var (
		scheme   [MaxSchemeLen]byte
		username [MaxUsernameLen]byte
		host     [MaxURILen]byte
		resource [MaxResourceLen]byte
	)
	out := Buffers{
		Scheme:   scheme[:],
		Username: username[:],
		Host:     host[:],
		Resource: resource[:],
	}
	if _, err := Separate(CodingAll, rawURI, &out); err != nil {
		return 0, errtrace.Wrap(err)
	}
	c := out.Components()

	if !strings.Contains(c.Host, "._tcp") {
		return copyString(buf, rawURI), nil
	}

	name, regtype, domain, ok := dnssd.SeparateFullName(c.Host)
	if !ok {
		return 0, errtrace.Wrap(errorutil.NewWrapperError(ErrBadServiceName, "%q", c.Host))
	}

	job := &resolveJob{
		Resolver: r,
		opts:     opts,
		buf:      buf,
		name:     name,
		regtype:  regtype,
		domain:   domain,
		resource: c.Resource,
		iface:    dnssd.InterfaceAny,
		results:  queue.New(),
	}
	if i := strings.Index(job.resource, "?uuid="); i >= 0 {
		job.filterUUID = true
		job.uuid = job.resource[i+len("?uuid="):]
		job.resource = job.resource[:i]
		if j := strings.IndexByte(job.uuid, '&'); j >= 0 {
			job.uuid = job.uuid[:j]
		}
	}
	if c.Scheme == "ippusb" {
		job.iface = dnssd.InterfaceLocal
	}
	return errtrace.Wrap2(job.run(ctx))
}

type resolveState string

const (
	stateResolvingLocal  resolveState = "resolving_local"
	stateResolvingDomain resolveState = "resolving_domain"
	stateResolved        resolveState = "resolved"
	stateExpired         resolveState = "expired"
	stateCanceled        resolveState = "canceled"
)

const (
	evtDomainDelay = "domain_delay"
	evtResolved    = "resolved"
	evtExpired     = "expired"
	evtCanceled    = "canceled"
)

// candidate is a resolve result with the TXT values needed to build the URI.
type candidate struct {
	fullName string
	host     string
	port     int

	uuid, rp, rfo                          string
	hasUUID, hasRP, hasRFO, hasPrinterType bool
}

func (c *candidate) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("fullname", c.fullName),
		slog.String("host", c.host),
		slog.Int("port", c.port),
	)
}

type resolveJob struct {
	*Resolver

	opts     *ResolveOptions
	buf      []byte
	name     string
	regtype  string
	domain   string
	resource string
	uuid     string
	iface    dnssd.Interface

	filterUUID bool

	fsm     *stateless.StateMachine
	dctx    dnssd.Context
	rctx    context.Context //nolint:containedctx
	mu      sync.Mutex
	results *queue.Queue
}

func (j *resolveJob) initFSM() {
	j.fsm = stateless.NewStateMachine(stateResolvingLocal)

	j.fsm.Configure(stateResolvingLocal).
		Permit(evtDomainDelay, stateResolvingDomain).
		Permit(evtResolved, stateResolved).
		Permit(evtExpired, stateExpired).
		Permit(evtCanceled, stateCanceled)

	j.fsm.Configure(stateResolvingDomain).
		OnEntry(j.actResolveDomain).
		Permit(evtResolved, stateResolved).
		Permit(evtExpired, stateExpired).
		Permit(evtCanceled, stateCanceled)

	j.fsm.Configure(stateResolved).OnEntry(j.actDone)
	j.fsm.Configure(stateExpired).OnEntry(j.actDone)
	j.fsm.Configure(stateCanceled).OnEntry(j.actDone)
}

func (j *resolveJob) state() resolveState {
	return j.fsm.MustState().(resolveState) //nolint:forcetypeassert
}

func (j *resolveJob) run(ctx context.Context) (int, error) {
	j.initFSM()

	dctx, err := j.disc.NewContext()
	if err != nil {
		return 0, errtrace.Wrap(err)
	}
	defer dctx.Close()

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	j.dctx, j.rctx = dctx, rctx

	j.log.LogAttrs(ctx, slog.LevelDebug, "resolving service instance",
		slog.String("name", j.name),
		slog.String("regtype", j.regtype),
		slog.String("domain", j.domain),
		slog.String("interface", j.iface.String()),
		slog.Any("options", log.FmtValue(j.opts, false)),
		slog.Any("deadline", log.CalcValue(func() any { return j.clock.Now().Add(j.timeout) })),
	)

	if err := dctx.ResolveInstance(rctx, j.iface, j.name, j.regtype, dnssd.DefaultDomain, j.onResult); err != nil {
		return 0, errtrace.Wrap(err)
	}

	start := j.clock.Now()
	domainAt := start.Add(j.domainDelay)
	endAt := start.Add(j.timeout)
	for {
		if n, ok := j.drain(ctx); ok {
			return n, errtrace.Wrap(j.finish(ctx, evtResolved, nil))
		}

		if err := ctx.Err(); err != nil {
			return 0, errtrace.Wrap(j.finish(ctx, evtCanceled, errorutil.NewWrapperError(ErrCanceled, err)))
		}
		if !j.opts.cont() {
			return 0, errtrace.Wrap(j.finish(ctx, evtCanceled, ErrCanceled))
		}

		now := j.clock.Now()
		if !now.Before(endAt) {
			return 0, errtrace.Wrap(j.finish(ctx, evtExpired, ErrNotFound))
		}
		if j.state() == stateResolvingLocal && !now.Before(domainAt) && !util.EqFold(j.domain, dnssd.DefaultDomain) {
			if err := j.fire(ctx, evtDomainDelay); err != nil {
				return 0, errtrace.Wrap(err)
			}
		}

		select {
		case <-ctx.Done():
		case <-j.clock.After(j.poll):
		}
	}
}

func (j *resolveJob) fire(ctx context.Context, evt string) error {
	return errtrace.Wrap(j.fsm.FireCtx(context.WithoutCancel(ctx), evt))
}

// finish moves the job to its final state and returns err.
func (j *resolveJob) finish(ctx context.Context, evt string, err error) error {
	if ferr := j.fire(ctx, evt); ferr != nil {
		return errtrace.Wrap(ferr)
	}
	return errtrace.Wrap(err)
}

func (j *resolveJob) actResolveDomain(ctx context.Context, _ ...any) error {
	j.log.LogAttrs(ctx, slog.LevelDebug, "resolving service instance in domain",
		slog.String("name", j.name),
		slog.String("domain", j.domain),
	)
	return errtrace.Wrap(j.dctx.ResolveInstance(j.rctx, j.iface, j.name, j.regtype, j.domain, j.onResult))
}

func (j *resolveJob) actDone(ctx context.Context, _ ...any) error {
	j.log.LogAttrs(ctx, slog.LevelDebug, "service instance resolve finished",
		slog.String("name", j.name),
		slog.String("state", string(j.state())),
	)
	return nil
}

// onResult copies the needed TXT values, the TXT record is released after the callback returns.
func (j *resolveJob) onResult(r dnssd.Result) {
	c := &candidate{
		fullName: r.FullName,
		host:     r.Host,
		port:     int(r.Port),
	}
	c.uuid, c.hasUUID = r.TXT.Get("UUID")
	c.rp, c.hasRP = r.TXT.Get("rp")
	c.rfo, c.hasRFO = r.TXT.Get("rfo")
	_, c.hasPrinterType = r.TXT.Get("printer-type")

	j.mu.Lock()
	j.results.Add(c)
	j.mu.Unlock()
}

func (j *resolveJob) next() *candidate {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.results.Length() == 0 {
		return nil
	}
	return j.results.Remove().(*candidate) //nolint:forcetypeassert
}

// drain builds the URI from the first acceptable queued result.
func (j *resolveJob) drain(ctx context.Context) (int, bool) {
	for c := j.next(); c != nil; c = j.next() {
		if j.filterUUID && c.hasUUID && !util.EqFold(c.uuid, j.uuid) {
			j.log.LogAttrs(ctx, slog.LevelDebug, "service instance UUID mismatch",
				slog.Any("result", c),
				slog.String("uuid", c.uuid),
				slog.String("want_uuid", j.uuid),
			)
			continue
		}

		n, err := j.assemble(ctx, c)
		if err != nil {
			j.log.LogAttrs(ctx, slog.LevelWarn, "failed to assemble resolved URI",
				slog.Any("result", c),
				slog.Any("error", err),
			)
			continue
		}

		j.log.LogAttrs(ctx, slog.LevelDebug, "service instance resolved",
			slog.Any("result", c),
			slog.Any("uri", log.StringValue(j.buf[:n])),
		)
		return n, true
	}
	return 0, false
}

// ServiceScheme returns the URI scheme of a service instance full name.
func ServiceScheme(fullname string) string {
	switch {
	case strings.Contains(fullname, "._ipps") || strings.Contains(fullname, "._ipp-tls"):
		return "ipps"
	case strings.Contains(fullname, "._ipp") || strings.Contains(fullname, "._fax-ipp"):
		return "ipp"
	case strings.Contains(fullname, "._http."):
		return "http"
	case strings.Contains(fullname, "._https."):
		return "https"
	case strings.Contains(fullname, "._printer."):
		return "lpd"
	case strings.Contains(fullname, "._pdl-datastream."):
		return "socket"
	default:
		return "riousbprint"
	}
}

func (j *resolveJob) assemble(ctx context.Context, c *candidate) (int, error) {
	scheme := ServiceScheme(c.fullName)
	ipp := scheme == "ipp" || scheme == "ipps"

	resource, ok := c.rp, c.hasRP
	if j.opts.faxOut() && ipp && !c.hasPrinterType {
		resource, ok = c.rfo, c.hasRFO
		if !ok {
			resource = "ipp/faxout"
		}
	}
	resource = strings.TrimPrefix(resource, "/")

	host := c.host
	if j.opts.fqdn() && len(host) > len(".local.") && util.HasSuffixFold(host, ".local.") {
		host = j.lookupFQDN(ctx, host)
	}

	format := "/%s"
	if ipp && j.resource == "/cups" {
		format = "/%s?snmp=false"
	}
	return errtrace.Wrap2(AssembleFormat(j.buf, CodingAll, scheme, "", host, c.port, format, resource))
}

func (j *resolveJob) lookupFQDN(ctx context.Context, host string) string {
	hr, ok := j.disc.(dnssd.HostResolver)
	if !ok {
		return host
	}
	fqdn, err := hr.LookupFQDN(ctx, host)
	if err != nil || fqdn == "" || util.HasSuffixFold(strings.TrimSuffix(fqdn, "."), ".local") {
		j.log.LogAttrs(ctx, slog.LevelDebug, "FQDN lookup failed",
			slog.String("host", host),
			slog.Any("error", err),
		)
		return host
	}
	return fqdn
}
