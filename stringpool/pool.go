package stringpool

//go:generate errtrace -w .

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"braces.dev/errtrace"
	"github.com/goccy/go-json"

	"github.com/ghettovoice/gocups/internal/log"
)

// Handle is a reference to an interned string.
// A nil handle is valid and renders as an empty string.
type Handle struct {
	value string
	refs  atomic.Uint64
}

// String returns the interned value.
func (h *Handle) String() string {
	if h == nil {
		return ""
	}
	return h.value
}

// Refs returns the current reference count.
func (h *Handle) Refs() uint64 {
	if h == nil {
		return 0
	}
	return h.refs.Load()
}

// LogValue implements [slog.LogValuer].
func (h *Handle) LogValue() slog.Value {
	if h == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("value", h.value),
		slog.Uint64("refs", h.refs.Load()),
	)
}

func cmpHandle(h *Handle, s string) int { return strings.Compare(h.value, s) }

const entryHeaderSize = uint64(unsafe.Sizeof(Handle{}))

// Stats describes the pool memory usage.
type Stats struct {
	// Count is the number of live references.
	Count uint64 `json:"count"`
	// AllocBytes is the memory held by the pool entries.
	AllocBytes uint64 `json:"alloc_bytes"`
	// TotalBytes is the memory the referenced strings would take without interning.
	TotalBytes uint64 `json:"total_bytes"`
}

// LogValue implements [slog.LogValuer].
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("count", s.Count),
		slog.Uint64("alloc_bytes", s.AllocBytes),
		slog.Uint64("total_bytes", s.TotalBytes),
	)
}

// Options are the pool options.
type Options struct {
	// Log is the logger.
	// If nil, the [log.Noop] is used.
	Log *slog.Logger
}

func (o *Options) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Noop
	}
	return o.Log
}

// Pool is a set of reference-counted strings ordered by value.
// The zero value is ready to use.
type Pool struct {
	mu      sync.Mutex
	entries []*Handle
	log     *slog.Logger
}

// New creates a new empty pool.
func New(opts *Options) *Pool {
	return &Pool{log: opts.log()}
}

func (p *Pool) logger() *slog.Logger {
	if p.log == nil {
		return log.Noop
	}
	return p.log
}

// Intern returns the handle of s, adding s to the pool if it is not there yet.
// Each call takes a new reference that must be returned with [Pool.Release].
func (p *Pool) Intern(s string) *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := slices.BinarySearchFunc(p.entries, s, cmpHandle)
	if ok {
		h := p.entries[i]
		h.refs.Add(1)
		return h
	}

	h := &Handle{value: strings.Clone(s)}
	h.refs.Store(1)
	p.entries = slices.Insert(p.entries, i, h)
	return h
}

// InternBytes is like [Pool.Intern] but takes a byte slice.
// A nil slice yields a nil handle.
func (p *Pool) InternBytes(b []byte) *Handle {
	if b == nil {
		return nil
	}
	return p.Intern(string(b))
}

// Retain takes one more reference of h.
// The handle is not looked up, so it must have been obtained from this pool.
func (p *Pool) Retain(h *Handle) *Handle {
	if h == nil {
		return nil
	}

	p.mu.Lock()
	h.refs.Add(1)
	p.mu.Unlock()
	return h
}

// Release returns a reference of h to the pool.
// The entry is removed when the last reference is released.
// Handles that do not belong to the pool are ignored.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := slices.BinarySearchFunc(p.entries, h.value, cmpHandle)
	if !ok || p.entries[i] != h {
		return
	}
	if h.refs.Add(^uint64(0)) == 0 {
		p.entries = slices.Delete(p.entries, i, i+1)
	}
}

// Len returns the number of distinct strings in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// All returns an iterator over the pooled values in ascending order.
// The iterator works on a snapshot taken when iteration starts.
func (p *Pool) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		p.mu.Lock()
		vals := make([]string, len(p.entries))
		for i, h := range p.entries {
			vals[i] = h.value
		}
		p.mu.Unlock()

		for _, v := range vals {
			if !yield(v) {
				return
			}
		}
	}
}

// Statistics returns the pool memory usage.
// Lengths are counted with the terminating byte and aligned to 8 bytes.
func (p *Pool) Statistics() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats()
}

func (p *Pool) stats() Stats {
	var s Stats
	for _, h := range p.entries {
		refs := h.refs.Load()
		size := uint64(len(h.value)+8) &^ 7
		s.Count += refs
		s.AllocBytes += entryHeaderSize + size
		s.TotalBytes += refs * size
	}
	return s
}

// Flush drops all entries regardless of their reference counts.
// Handles obtained before the flush are ignored by [Pool.Release] afterwards.
func (p *Pool) Flush() {
	p.mu.Lock()
	stats := p.stats()
	n := len(p.entries)
	p.entries = nil
	p.mu.Unlock()

	if n == 0 {
		return
	}
	p.logger().LogAttrs(context.Background(), slog.LevelWarn,
		"string pool flushed with live entries",
		slog.Int("entries", n),
		slog.Any("stats", stats),
	)
}

type dumpEntry struct {
	Value string `json:"value"`
	Refs  uint64 `json:"refs"`
}

type dump struct {
	Stats   Stats       `json:"stats"`
	Entries []dumpEntry `json:"entries"`
}

// Dump writes the pool statistics and entries to w as JSON.
func (p *Pool) Dump(w io.Writer) error {
	p.mu.Lock()
	d := dump{
		Stats:   p.stats(),
		Entries: make([]dumpEntry, len(p.entries)),
	}
	for i, h := range p.entries {
		d.Entries[i] = dumpEntry{h.value, h.refs.Load()}
	}
	p.mu.Unlock()

	return errtrace.Wrap(json.NewEncoder(w).Encode(d))
}
