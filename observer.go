package mempool

import "sync/atomic"

// Observer receives allocation events for diagnostics. Implementations must
// be safe for concurrent use and should be cheap. ObserveAlloc runs after
// the chunk was popped, ObserveFree before the chunk is pushed back, so a
// chunk is always unregistered before another goroutine can obtain it.
type Observer interface {
	// ObserveAlloc reports a successful allocation of n bytes from class at
	// byte offset off in the backing buffer.
	ObserveAlloc(off uint64, n, class int)

	// ObserveFree reports a successful deallocation.
	ObserveFree(off uint64, n, class int)

	// ObserveSplit reports that a chunk of class from was subdivided,
	// releasing chunks sub-chunks onto class to.
	ObserveSplit(from, to, chunks int)
}

type nopObserver struct{}

func (nopObserver) ObserveAlloc(uint64, int, int) {}
func (nopObserver) ObserveFree(uint64, int, int)  {}
func (nopObserver) ObserveSplit(int, int, int)    {}

// Stats is a snapshot of pool activity counters.
type Stats struct {
	Allocs     uint64
	Frees      uint64
	Splits     uint64
	AllocBytes uint64
	FreeBytes  uint64
}

// StatsObserver is an Observer keeping process-wide activity counters.
type StatsObserver struct {
	allocs     atomic.Uint64
	frees      atomic.Uint64
	splits     atomic.Uint64
	allocBytes atomic.Uint64
	freeBytes  atomic.Uint64
}

func (s *StatsObserver) ObserveAlloc(_ uint64, n, _ int) {
	s.allocs.Add(1)
	s.allocBytes.Add(uint64(n))
}

func (s *StatsObserver) ObserveFree(_ uint64, n, _ int) {
	s.frees.Add(1)
	s.freeBytes.Add(uint64(n))
}

func (s *StatsObserver) ObserveSplit(_, _, _ int) {
	s.splits.Add(1)
}

// Snapshot returns the current counter values.
func (s *StatsObserver) Snapshot() Stats {
	return Stats{
		Allocs:     s.allocs.Load(),
		Frees:      s.frees.Load(),
		Splits:     s.splits.Load(),
		AllocBytes: s.allocBytes.Load(),
		FreeBytes:  s.freeBytes.Load(),
	}
}

func (s *StatsObserver) Reset() {
	s.allocs.Store(0)
	s.frees.Store(0)
	s.splits.Store(0)
	s.allocBytes.Store(0)
	s.freeBytes.Store(0)
}
