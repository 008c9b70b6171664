package mempool

import (
	"math/rand"
	"testing"
	"time"
)

// GOMAXPROCS=4 go clean -testcache && go test -bench=BenchmarkPool -benchtime=10s -benchmem .

func newBenchPool(b *testing.B, classes []int) *Pool {
	b.Helper()
	p, err := NewMapped(16*MiB, Config{Classes: classes})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { p.Close() })
	return p
}

// BenchmarkPoolAllocFreeFixed measures a ping-pong workload on a single
// size class, the worst case for freelist head contention.
func BenchmarkPoolAllocFreeFixed(b *testing.B) {
	p := newBenchPool(b, []int{64, 256, 1024})

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf, err := p.Alloc(64)
			if err != nil {
				b.Error(err)
				return
			}
			if err := p.Free(buf); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// BenchmarkPoolAllocFreeMixed measures interleaved allocations across all
// size classes, exercising the availability search and chunk splitting.
func BenchmarkPoolAllocFreeMixed(b *testing.B) {
	classes := []int{64, 256, 1024}
	p := newBenchPool(b, classes)

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		// Each goroutine gets its own random number source to avoid lock contention.
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		live := make([][]byte, 0, 64)
		for pb.Next() {
			if len(live) == cap(live) || (len(live) > 0 && rng.Intn(2) == 0) {
				j := rng.Intn(len(live))
				if err := p.Free(live[j]); err != nil {
					b.Error(err)
					return
				}
				live[j] = live[len(live)-1]
				live = live[:len(live)-1]
				continue
			}
			buf, err := p.Alloc(rng.Intn(classes[len(classes)-1]) + 1)
			if err != nil {
				continue // Transient exhaustion under churn.
			}
			live = append(live, buf)
		}
		for _, buf := range live {
			p.Free(buf)
		}
	})
}
