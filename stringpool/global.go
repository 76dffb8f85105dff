package stringpool

import "sync/atomic"

var defPool atomic.Pointer[Pool]

func init() { Init(nil) }

// Init replaces the default pool with a new empty one.
// Handles of the previous pool are ignored by [Release] afterwards.
func Init(opts *Options) { defPool.Store(New(opts)) }

// Shutdown flushes and drops the default pool.
// Subsequent calls to [Intern] create a new default pool.
func Shutdown() {
	if p := defPool.Swap(nil); p != nil {
		p.Flush()
	}
}

// Default returns the default pool, creating it if needed.
func Default() *Pool {
	for {
		if p := defPool.Load(); p != nil {
			return p
		}
		defPool.CompareAndSwap(nil, New(nil))
	}
}

// Intern interns s in the default pool. See [Pool.Intern].
func Intern(s string) *Handle { return Default().Intern(s) }

// InternBytes interns b in the default pool. See [Pool.InternBytes].
func InternBytes(b []byte) *Handle { return Default().InternBytes(b) }

// Retain takes one more reference of h in the default pool. See [Pool.Retain].
func Retain(h *Handle) *Handle { return Default().Retain(h) }

// Release returns a reference of h to the default pool. See [Pool.Release].
// It does nothing if the default pool has been shut down.
func Release(h *Handle) {
	if p := defPool.Load(); p != nil {
		p.Release(h)
	}
}

// Statistics returns the default pool memory usage. See [Pool.Statistics].
func Statistics() Stats {
	if p := defPool.Load(); p != nil {
		return p.Statistics()
	}
	return Stats{}
}

// Flush drops all entries of the default pool. See [Pool.Flush].
func Flush() {
	if p := defPool.Load(); p != nil {
		p.Flush()
	}
}
