package mempool

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const trackerShards = 64 // Must be a power of two for unbiased modulo.

// Tracker is an Observer that maintains the set of live allocations and
// panics on a double free or on a chunk handed out twice. The set is
// sharded by offset hash to keep contention low under concurrent use.
// Intended for tests and debug deployments; the core pool itself never
// checks for double frees.
type Tracker struct {
	shards [trackerShards]trackerShard
}

type trackerShard struct {
	mu   sync.Mutex
	live map[uint64]int // chunk offset → allocated size
}

func NewTracker() *Tracker {
	t := &Tracker{}
	for i := range t.shards {
		t.shards[i].live = make(map[uint64]int)
	}
	return t
}

func (t *Tracker) shard(off uint64) *trackerShard {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], off)
	// Faster modulo via bitwise AND; requires trackerShards to be a power of two.
	return &t.shards[xxhash.Sum64(key[:])&(trackerShards-1)]
}

func (t *Tracker) ObserveAlloc(off uint64, n, class int) {
	s := t.shard(off)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.live[off]; ok {
		panic(fmt.Sprintf(
			"mempool: chunk at offset %d handed out twice (live allocation of %d bytes)", off, prev,
		))
	}
	s.live[off] = n
}

func (t *Tracker) ObserveFree(off uint64, n, class int) {
	s := t.shard(off)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[off]; !ok {
		panic(fmt.Sprintf("mempool: free of offset %d which is not live", off))
	}
	delete(s.live, off)
}

func (t *Tracker) ObserveSplit(from, to, chunks int) {}

// Live returns the number of live allocations.
func (t *Tracker) Live() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		n += len(s.live)
		s.mu.Unlock()
	}
	return n
}

// LiveBytes returns the total requested bytes of live allocations.
func (t *Tracker) LiveBytes() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for _, size := range s.live {
			n += size
		}
		s.mu.Unlock()
	}
	return n
}
