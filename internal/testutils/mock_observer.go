package testutils

import "sync/atomic"

// MockObserver counts observer callbacks.
type MockObserver struct {
	allocCalls  atomic.Int64
	freeCalls   atomic.Int64
	splitCalls  atomic.Int64
	splitChunks atomic.Int64
}

func (m *MockObserver) ObserveAlloc(off uint64, n, class int) {
	m.allocCalls.Add(1)
}

func (m *MockObserver) ObserveFree(off uint64, n, class int) {
	m.freeCalls.Add(1)
}

func (m *MockObserver) ObserveSplit(from, to, chunks int) {
	m.splitCalls.Add(1)
	m.splitChunks.Add(int64(chunks))
}

func (m *MockObserver) AllocCalls() int64 {
	return m.allocCalls.Load()
}

func (m *MockObserver) FreeCalls() int64 {
	return m.freeCalls.Load()
}

func (m *MockObserver) SplitCalls() int64 {
	return m.splitCalls.Load()
}

func (m *MockObserver) SplitChunks() int64 {
	return m.splitChunks.Load()
}

func (m *MockObserver) ChunksInUse() int64 {
	return m.AllocCalls() - m.FreeCalls()
}

func (m *MockObserver) Reset() {
	m.allocCalls.Store(0)
	m.freeCalls.Store(0)
	m.splitCalls.Store(0)
	m.splitChunks.Store(0)
}
