package uri_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/mock/gomock"

	"github.com/ghettovoice/gocups/dnssd"
	"github.com/ghettovoice/gocups/internal/testutil/dnssdmock"
	"github.com/ghettovoice/gocups/uri"
)

// fakeClock advances on every wait, so a resolve never sleeps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) elapsed(since time.Time) time.Duration {
	return c.Now().Sub(since)
}

type resolveCall struct {
	iface  dnssd.Interface
	domain string
	res    dnssd.Result
	txt    []string
}

// setupDiscoverer expects a single discovery session with the given resolves.
// Every resolve answers synchronously with its result unless the result has no host.
func setupDiscoverer(tb testing.TB, name, regtype string, calls ...resolveCall) *dnssdmock.MockDiscoverer {
	tb.Helper()

	ctrl := gomock.NewController(tb)
	disc := dnssdmock.NewMockDiscoverer(ctrl)
	dctx := dnssdmock.NewMockContext(ctrl)

	disc.EXPECT().NewContext().Return(dctx, nil).Times(1)
	for _, call := range calls {
		dctx.EXPECT().
			ResolveInstance(gomock.Any(), call.iface, name, regtype, call.domain, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ dnssd.Interface, _, _, _ string, cb dnssd.ResolveFunc) error {
				if call.res.Host == "" {
					return nil
				}
				res := call.res
				res.TXT = dnssd.ParseTXT(call.txt)
				defer res.TXT.Release()
				cb(res)
				return nil
			}).
			Times(1)
	}
	dctx.EXPECT().Close().Return(nil).Times(1)
	return disc
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		opts    *uri.ResolveOptions
		rname   string
		regtype string
		call    resolveCall
		want    string
	}{
		{
			name:    "ipp print",
			in:      "ipp://Office%20Printer._ipp._tcp.local./",
			rname:   "Office Printer",
			regtype: "_ipp._tcp",
			call:    resolveCall{
				iface:  dnssd.InterfaceAny,
				domain: "local.",
				res:    dnssd.Result{FullName: "Office Printer._ipp._tcp.local.", Host: "office.local.", Port: 631},
				txt:    []string{"rp=ipp/print", "UUID=1234"},
			},
			want: "ipp://office.local.:631/ipp/print",
		},
		{
			name:    "cups resource",
			in:      "ipps://Office._ipps._tcp.local./cups",
			rname:   "Office",
			regtype: "_ipps._tcp",
			call:    resolveCall{
				iface:  dnssd.InterfaceAny,
				domain: "local.",
				res:    dnssd.Result{FullName: "Office._ipps._tcp.local.", Host: "office.local.", Port: 443},
				txt:    []string{"rp=/printers/office"},
			},
			want: "ipps://office.local.:443/printers/office?snmp=false",
		},
		{
			name:    "matching uuid",
			in:      "ipp://Office._ipp._tcp.local./cups?uuid=ABCD&x=1",
			rname:   "Office",
			regtype: "_ipp._tcp",
			call:    resolveCall{
				iface:  dnssd.InterfaceAny,
				domain: "local.",
				res:    dnssd.Result{FullName: "Office._ipp._tcp.local.", Host: "office.local.", Port: 631},
				txt:    []string{"rp=ipp/print", "uuid=abcd"},
			},
			want: "ipp://office.local.:631/ipp/print?snmp=false",
		},
		{
			name:    "faxout default",
			in:      "ipp://Fax._ipp._tcp.local./",
			opts:    &uri.ResolveOptions{FaxOut: true},
			rname:   "Fax",
			regtype: "_ipp._tcp",
			call:    resolveCall{
				iface:  dnssd.InterfaceAny,
				domain: "local.",
				res:    dnssd.Result{FullName: "Fax._ipp._tcp.local.", Host: "fax.local.", Port: 631},
				txt:    []string{"rp=ipp/print"},
			},
			want: "ipp://fax.local.:631/ipp/faxout",
		},
		{
			name:    "faxout printer",
			in:      "ipp://Fax._ipp._tcp.local./",
			opts:    &uri.ResolveOptions{FaxOut: true},
			rname:   "Fax",
			regtype: "_ipp._tcp",
			call:    resolveCall{
				iface:  dnssd.InterfaceAny,
				domain: "local.",
				res:    dnssd.Result{FullName: "Fax._ipp._tcp.local.", Host: "fax.local.", Port: 631},
				txt:    []string{"rp=ipp/print", "printer-type=0x801046"},
			},
			want: "ipp://fax.local.:631/ipp/print",
		},
		{
			name:    "ippusb",
			in:      "ippusb://USB%20Printer._ipp._tcp.local./",
			rname:   "USB Printer",
			regtype: "_ipp._tcp",
			call:    resolveCall{
				iface:  dnssd.InterfaceLocal,
				domain: "local.",
				res:    dnssd.Result{FullName: "USB Printer._ipp._tcp.local.", Host: "localhost", Port: 60000},
				txt:    []string{"rp=ipp/print"},
			},
			want: "ipp://localhost:60000/ipp/print",
		},
		{
			name:    "socket",
			in:      "socket://Raw._pdl-datastream._tcp.local./",
			rname:   "Raw",
			regtype: "_pdl-datastream._tcp",
			call:    resolveCall{
				iface:  dnssd.InterfaceAny,
				domain: "local.",
				res:    dnssd.Result{FullName: "Raw._pdl-datastream._tcp.local.", Host: "raw.local.", Port: 9100},
			},
			want: "socket://raw.local.:9100/",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			disc := setupDiscoverer(t, c.rname, c.regtype, c.call)
			r := uri.NewResolver(&uri.ResolverOptions{Discoverer: disc, Clock: newFakeClock(), Log: testLogger()})

			got, err := r.Resolve(t.Context(), c.in, c.opts)
			if err != nil {
				t.Fatalf("r.Resolve(ctx, %q) error = %v, want nil", c.in, err)
			}
			if got != c.want {
				t.Errorf("r.Resolve(ctx, %q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestResolver_Resolve_PassThrough(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	r := uri.NewResolver(&uri.ResolverOptions{Discoverer: dnssdmock.NewMockDiscoverer(ctrl), Log: testLogger()})

	in := "ipp://printer.example.com:631/ipp/print"
	got, err := r.Resolve(t.Context(), in, nil)
	if err != nil {
		t.Fatalf("r.Resolve(ctx, %q) error = %v, want nil", in, err)
	}
	if got != in {
		t.Errorf("r.Resolve(ctx, %q) = %q, want %q", in, got, in)
	}

	buf := make([]byte, 8)
	n, err := r.ResolveTo(t.Context(), buf, in, nil)
	if err != nil {
		t.Fatalf("r.ResolveTo(ctx, buf[8], %q) error = %v, want nil", in, err)
	}
	if got, want := string(buf[:n]), "ipp://p"; got != want {
		t.Errorf("r.ResolveTo(ctx, buf[8], %q) = %q, want %q", in, got, want)
	}
}

func TestResolver_Resolve_Errors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	r := uri.NewResolver(&uri.ResolverOptions{Discoverer: dnssdmock.NewMockDiscoverer(ctrl), Log: testLogger()})

	cases := []struct {
		in   string
		want error
	}{
		{"", uri.StatusBadURI},
		{"ipp://host:0/", uri.StatusBadPort},
		{"ipp://._tcp/", uri.ErrBadServiceName},
	}

	for _, c := range cases {
		_, err := r.Resolve(t.Context(), c.in, nil)
		if diff := cmp.Diff(err, c.want, cmpopts.EquateErrors()); diff != "" {
			t.Errorf("r.Resolve(ctx, %q) error = %v, want %v\ndiff (-got +want):\n%v", c.in, err, c.want, diff)
		}
	}
}

func TestResolver_Resolve_Timeout(t *testing.T) {
	t.Parallel()

	// the instance is found only with a different UUID, so the resolve runs until the deadline
	disc := setupDiscoverer(t, "Office", "_ipp._tcp",
		resolveCall{
			iface:  dnssd.InterfaceAny,
			domain: "local.",
			res:    dnssd.Result{FullName: "Office._ipp._tcp.example.com.", Host: "office.local.", Port: 631},
			txt:    []string{"UUID=other"},
		},
		resolveCall{iface: dnssd.InterfaceAny, domain: "example.com."},
	)
	clock := newFakeClock()
	start := clock.Now()
	r := uri.NewResolver(&uri.ResolverOptions{Discoverer: disc, Clock: clock, Log: testLogger()})

	_, err := r.Resolve(t.Context(), "ipp://Office._ipp._tcp.example.com./?uuid=1234", nil)
	if !errors.Is(err, uri.ErrNotFound) {
		t.Fatalf("r.Resolve() error = %v, want %v", err, uri.ErrNotFound)
	}
	if got, want := clock.elapsed(start), uri.DefaultResolveTimeout; got != want {
		t.Errorf("resolve took %v, want %v", got, want)
	}
}

func TestResolver_Resolve_EmptyUUID(t *testing.T) {
	t.Parallel()

	// an empty uuid parameter still rejects instances announcing another UUID
	disc := setupDiscoverer(t, "Office", "_ipp._tcp", resolveCall{
		iface:  dnssd.InterfaceAny,
		domain: "local.",
		res:    dnssd.Result{FullName: "Office._ipp._tcp.local.", Host: "office.local.", Port: 631},
		txt:    []string{"rp=ipp/print", "UUID=1234"},
	})
	r := uri.NewResolver(&uri.ResolverOptions{Discoverer: disc, Clock: newFakeClock(), Log: testLogger()})

	_, err := r.Resolve(t.Context(), "ipp://Office._ipp._tcp.local./?uuid=", nil)
	if diff := cmp.Diff(err, error(uri.ErrNotFound), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("r.Resolve() error = %v, want %v\ndiff (-got +want):\n%v", err, uri.ErrNotFound, diff)
	}
}

func TestResolver_Resolve_Continue(t *testing.T) {
	t.Parallel()

	disc := setupDiscoverer(t, "Office", "_ipp._tcp", resolveCall{iface: dnssd.InterfaceAny, domain: "local."})
	clock := newFakeClock()
	start := clock.Now()
	r := uri.NewResolver(&uri.ResolverOptions{Discoverer: disc, Clock: clock, Log: testLogger()})

	polls := 0
	opts := &uri.ResolveOptions{
		Continue: func() bool {
			polls++
			return polls < 4
		},
	}
	_, err := r.Resolve(t.Context(), "ipp://Office._ipp._tcp.local./", opts)
	if !errors.Is(err, uri.ErrCanceled) {
		t.Fatalf("r.Resolve() error = %v, want %v", err, uri.ErrCanceled)
	}
	if got, want := clock.elapsed(start), 3*uri.DefaultPollInterval; got != want {
		t.Errorf("resolve took %v, want %v", got, want)
	}
}

func TestResolver_Resolve_ContextCanceled(t *testing.T) {
	t.Parallel()

	disc := setupDiscoverer(t, "Office", "_ipp._tcp", resolveCall{iface: dnssd.InterfaceAny, domain: "local."})
	r := uri.NewResolver(&uri.ResolverOptions{Discoverer: disc, Clock: newFakeClock(), Log: testLogger()})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := r.Resolve(ctx, "ipp://Office._ipp._tcp.local./", nil)
	if !errors.Is(err, uri.ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("r.Resolve() error = %v, want %v and %v", err, uri.ErrCanceled, context.Canceled)
	}
}

type hostResolvingDiscoverer struct {
	*dnssdmock.MockDiscoverer
	*dnssdmock.MockHostResolver
}

func TestResolver_Resolve_FQDN(t *testing.T) {
	t.Parallel()

	disc := setupDiscoverer(t, "Office", "_ipp._tcp", resolveCall{
		iface:  dnssd.InterfaceAny,
		domain: "local.",
		res:    dnssd.Result{FullName: "Office._ipp._tcp.local.", Host: "office.local.", Port: 631},
		txt:    []string{"rp=ipp/print"},
	})
	hr := dnssdmock.NewMockHostResolver(gomock.NewController(t))
	hr.EXPECT().LookupFQDN(gomock.Any(), "office.local.").Return("office.example.com", nil).Times(1)

	r := uri.NewResolver(&uri.ResolverOptions{
		Discoverer: hostResolvingDiscoverer{disc, hr},
		Clock:      newFakeClock(),
		Log:        testLogger(),
	})

	got, err := r.Resolve(t.Context(), "ipp://Office._ipp._tcp.local./", &uri.ResolveOptions{FQDN: true})
	if err != nil {
		t.Fatalf("r.Resolve() error = %v, want nil", err)
	}
	if want := "ipp://office.example.com:631/ipp/print"; got != want {
		t.Errorf("r.Resolve() = %q, want %q", got, want)
	}
}

func TestServiceScheme(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"P._ipps._tcp.local.", "ipps"},
		{"P._ipp-tls._tcp.local.", "ipps"},
		{"P._ipp._tcp.local.", "ipp"},
		{"P._fax-ipp._tcp.local.", "ipp"},
		{"P._http._tcp.local.", "http"},
		{"P._https._tcp.local.", "https"},
		{"P._printer._tcp.local.", "lpd"},
		{"P._pdl-datastream._tcp.local.", "socket"},
		{"P._riousbprint._tcp.local.", "riousbprint"},
	}

	for _, c := range cases {
		if got := uri.ServiceScheme(c.in); got != c.want {
			t.Errorf("uri.ServiceScheme(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
