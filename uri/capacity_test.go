package uri_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ghettovoice/gocups/dnssd"
	"github.com/ghettovoice/gocups/uri"
)

const guard = 0xAA

// guardedBuf returns a buffer of size bytes followed by guard bytes outside of its capacity.
func guardedBuf(size int) (buf, mem []byte) {
	mem = bytes.Repeat([]byte{guard}, size+8)
	return mem[:size:size], mem
}

func checkGuard(tb testing.TB, name string, size int, mem []byte) {
	tb.Helper()

	if tail := mem[size:]; !bytes.Equal(tail, bytes.Repeat([]byte{guard}, len(tail))) {
		tb.Fatalf("%s(buf[%d]) wrote past the buffer end: %q", name, size, tail)
	}
}

func checkTerminated(tb testing.TB, name string, size int, buf []byte) {
	tb.Helper()

	if size > 0 && bytes.IndexByte(buf, 0) < 0 {
		tb.Errorf("%s(buf[%d]) = %q, want NUL-terminated or empty output", name, size, buf)
	}
}

func TestSeparate_Capacity(t *testing.T) {
	t.Parallel()

	const in = "ipp://us%20er@printer.local:8631/ipp/print?x=%41"
	want := uri.Components{"ipp", "us er", "printer.local", 8631, "/ipp/print?x=A"}

	cases := []struct {
		name string
		max  int
		buf  func(out *uri.Buffers) *[]byte
		got  func(c uri.Components) string
		full string
	}{
		{"scheme", len(want.Scheme) + 1, func(o *uri.Buffers) *[]byte { return &o.Scheme }, func(c uri.Components) string { return c.Scheme }, want.Scheme},
		{"username", len(want.Username) + 1, func(o *uri.Buffers) *[]byte { return &o.Username }, func(c uri.Components) string { return c.Username }, want.Username},
		{"host", len(want.Host) + 1, func(o *uri.Buffers) *[]byte { return &o.Host }, func(c uri.Components) string { return c.Host }, want.Host},
		{"resource", len(want.Resource) + 1, func(o *uri.Buffers) *[]byte { return &o.Resource }, func(c uri.Components) string { return c.Resource }, want.Resource},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			for size := 1; size <= c.max; size++ {
				out := newBuffers(64, 64, 64, 64)
				buf, mem := guardedBuf(size)
				*c.buf(out) = buf

				st, err := uri.Separate(uri.CodingAll, in, out)
				checkGuard(t, "uri.Separate", size, mem)
				checkTerminated(t, "uri.Separate", size, buf)
				if err != nil {
					// only a truncated scheme is rejected
					if c.name != "scheme" || st != uri.StatusBadScheme {
						t.Errorf("uri.Separate(%s[%d]) = %v, %v, want nil error", c.name, size, st, err)
					}
					continue
				}

				got := c.got(out.Components())
				if n := min(size-1, len(c.full)); got != c.full[:n] {
					t.Errorf("uri.Separate(%s[%d]) %s = %q, want %q", c.name, size, c.name, got, c.full[:n])
				}
			}
		})
	}
}

func TestEncodeURI_Capacity(t *testing.T) {
	t.Parallel()

	const in, want = "/a b%", "/a%20b%25"

	for size := 0; size <= len(want)+1; size++ {
		buf, mem := guardedBuf(size)
		n, err := uri.EncodeURI(buf, in)
		checkGuard(t, "uri.EncodeURI", size, mem)
		checkTerminated(t, "uri.EncodeURI", size, buf)

		switch {
		case size == 0:
			if diff := cmp.Diff(err, error(uri.StatusBadArguments), cmpopts.EquateErrors()); diff != "" {
				t.Errorf("uri.EncodeURI(buf[%d]) error = %v, want %v", size, err, uri.StatusBadArguments)
			}
		case size <= len(want):
			if diff := cmp.Diff(err, error(uri.StatusOverflow), cmpopts.EquateErrors()); diff != "" {
				t.Errorf("uri.EncodeURI(buf[%d]) error = %v, want %v", size, err, uri.StatusOverflow)
			}
			if n != 0 || buf[0] != 0 {
				t.Errorf("uri.EncodeURI(buf[%d]) = %d, %q, want empty output", size, n, buf)
			}
		default:
			if err != nil {
				t.Fatalf("uri.EncodeURI(buf[%d]) error = %v, want nil", size, err)
			}
			if got := string(buf[:n]); got != want {
				t.Errorf("uri.EncodeURI(buf[%d]) = %q, want %q", size, got, want)
			}
		}
	}
}

func TestDecodeURI_Capacity(t *testing.T) {
	t.Parallel()

	const in, want = "/a%20b?q=%41", "/a b?q=A"

	for size := 0; size <= len(want)+1; size++ {
		buf, mem := guardedBuf(size)
		n, err := uri.DecodeURI(buf, in)
		checkGuard(t, "uri.DecodeURI", size, mem)
		checkTerminated(t, "uri.DecodeURI", size, buf)

		if size == 0 {
			if diff := cmp.Diff(err, error(uri.StatusBadArguments), cmpopts.EquateErrors()); diff != "" {
				t.Errorf("uri.DecodeURI(buf[%d]) error = %v, want %v", size, err, uri.StatusBadArguments)
			}
			continue
		}
		if err != nil {
			t.Fatalf("uri.DecodeURI(buf[%d]) error = %v, want nil", size, err)
		}
		if got, want := string(buf[:n]), want[:min(size-1, len(want))]; got != want {
			t.Errorf("uri.DecodeURI(buf[%d]) = %q, want %q", size, got, want)
		}
	}
}

func TestEncode64_Capacity(t *testing.T) {
	t.Parallel()

	const want = "aGVsbG8gd29ybGQ="
	src := []byte("hello world")

	for size := 0; size <= len(want)+1; size++ {
		buf, mem := guardedBuf(size)
		n, err := uri.Encode64(buf, src, false)
		checkGuard(t, "uri.Encode64", size, mem)
		checkTerminated(t, "uri.Encode64", size, buf)

		if size == 0 {
			if diff := cmp.Diff(err, error(uri.StatusBadArguments), cmpopts.EquateErrors()); diff != "" {
				t.Errorf("uri.Encode64(buf[%d]) error = %v, want %v", size, err, uri.StatusBadArguments)
			}
			continue
		}
		if err != nil {
			t.Fatalf("uri.Encode64(buf[%d]) error = %v, want nil", size, err)
		}
		if got, want := string(buf[:n]), want[:min(size-1, len(want))]; got != want {
			t.Errorf("uri.Encode64(buf[%d]) = %q, want %q", size, got, want)
		}
	}
}

func TestDecode64_Capacity(t *testing.T) {
	t.Parallel()

	const in, want = "aGVsbG8gd29ybGQ=", "hello world"

	for size := 0; size <= len(want)+1; size++ {
		buf, mem := guardedBuf(size)
		n, rest, err := uri.Decode64(buf, in)
		checkGuard(t, "uri.Decode64", size, mem)
		checkTerminated(t, "uri.Decode64", size, buf)

		if size == 0 {
			if diff := cmp.Diff(err, error(uri.StatusBadArguments), cmpopts.EquateErrors()); diff != "" {
				t.Errorf("uri.Decode64(buf[%d]) error = %v, want %v", size, err, uri.StatusBadArguments)
			}
			continue
		}
		if err != nil {
			t.Fatalf("uri.Decode64(buf[%d]) error = %v, want nil", size, err)
		}
		if got, want := string(buf[:n]), want[:min(size-1, len(want))]; got != want {
			t.Errorf("uri.Decode64(buf[%d]) = %q, want %q", size, got, want)
		}
		if rest != "" {
			t.Errorf("uri.Decode64(buf[%d]) rest = %q, want empty", size, rest)
		}
	}
}

func TestResolveTo_Capacity(t *testing.T) {
	t.Parallel()

	t.Run("pass through", func(t *testing.T) {
		t.Parallel()

		const in = "ipp://printer.example.com:631/ipp/print"
		r := uri.NewResolver(&uri.ResolverOptions{Log: testLogger()})

		for size := 0; size <= len(in)+1; size++ {
			buf, mem := guardedBuf(size)
			n, err := r.ResolveTo(t.Context(), buf, in, nil)
			checkGuard(t, "r.ResolveTo", size, mem)
			checkTerminated(t, "r.ResolveTo", size, buf)

			if size == 0 {
				if diff := cmp.Diff(err, error(uri.StatusBadArguments), cmpopts.EquateErrors()); diff != "" {
					t.Errorf("r.ResolveTo(buf[%d]) error = %v, want %v", size, err, uri.StatusBadArguments)
				}
				continue
			}
			if err != nil {
				t.Fatalf("r.ResolveTo(buf[%d]) error = %v, want nil", size, err)
			}
			if got, want := string(buf[:n]), in[:min(size-1, len(in))]; got != want {
				t.Errorf("r.ResolveTo(buf[%d]) = %q, want %q", size, got, want)
			}
		}
	})

	t.Run("resolved", func(t *testing.T) {
		t.Parallel()

		const (
			in   = "ipp://Office._ipp._tcp.local./"
			want = "ipp://office.local.:631/ipp/print"
		)
		call := resolveCall{
			iface:  dnssd.InterfaceAny,
			domain: "local.",
			res:    dnssd.Result{FullName: "Office._ipp._tcp.local.", Host: "office.local.", Port: 631},
			txt:    []string{"rp=ipp/print"},
		}

		for size := 1; size <= len(want)+1; size++ {
			disc := setupDiscoverer(t, "Office", "_ipp._tcp", call)
			r := uri.NewResolver(&uri.ResolverOptions{Discoverer: disc, Clock: newFakeClock(), Log: testLogger()})

			buf, mem := guardedBuf(size)
			n, err := r.ResolveTo(t.Context(), buf, in, nil)
			checkGuard(t, "r.ResolveTo", size, mem)
			checkTerminated(t, "r.ResolveTo", size, buf)

			if size <= len(want) {
				// the only result does not fit, so the resolve runs until the deadline
				if diff := cmp.Diff(err, error(uri.ErrNotFound), cmpopts.EquateErrors()); diff != "" {
					t.Errorf("r.ResolveTo(buf[%d]) error = %v, want %v", size, err, uri.ErrNotFound)
				}
				if n != 0 || buf[0] != 0 {
					t.Errorf("r.ResolveTo(buf[%d]) = %d, %q, want empty output", size, n, buf)
				}
				continue
			}
			if err != nil {
				t.Fatalf("r.ResolveTo(buf[%d]) error = %v, want nil", size, err)
			}
			if got := string(buf[:n]); got != want {
				t.Errorf("r.ResolveTo(buf[%d]) = %q, want %q", size, got, want)
			}
		}
	})
}
