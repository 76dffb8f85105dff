// Package stringpool implements a process-wide pool of interned, reference-counted strings.
//
// Equal strings share a single [Handle] while at least one reference is held:
//
//	h := stringpool.Intern("printer-state")
//	defer stringpool.Release(h)
//	fmt.Println(h)
//
// Every [Intern] or [Retain] must be paired with exactly one [Release]. The entry is
// removed from the pool when its last reference is released; a later [Intern] of the
// same value creates a fresh entry.
//
// Entries are kept ordered by byte-wise comparison of their values, so lookups are
// binary searches and iteration is deterministic. All operations on a [Pool] are
// serialized by a single mutex held only for the lookup and the counter update.
//
// The package-level functions operate on the default pool. [Init] replaces it with an
// empty pool and [Shutdown] drops it; both are meant for process start-up, shutdown
// and tests.
package stringpool
