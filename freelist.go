package mempool

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Freelist heads and the next-links stored inside free chunks share one
// tagged word encoding. A raw buffer offset cannot be used directly because
// offset 0 is a valid chunk; shifting by one keeps 0 free for the empty
// marker and all-bits-set free for the lock sentinel.
const (
	wordEmpty  uint64 = 0
	wordLocked uint64 = ^uint64(0) // head reserved by an in-flight pop
)

func encode(off uint64) uint64  { return off + 1 }
func decode(word uint64) uint64 { return word - 1 }

// linkAt returns an atomic view of the next-link word occupying the first
// bytes of the free chunk at off. The word only exists while the chunk is
// free; an allocated chunk's contents belong entirely to the caller.
func (p *Pool) linkAt(off uint64) *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&p.buf[off]))
}

// pushChain atomically prepends the chain [head..tail] onto the freelist of
// class. Interior links of the chain must already be set; tail's link is
// written here. Single chunks are pushed as a chain of one.
func (p *Pool) pushChain(class int, head, tail uint64) {
	fl := &p.heads[class]
	for {
		old := fl.Load()
		if old == wordLocked {
			// A pop reserved the head; it will restore it shortly. The
			// sentinel must never be overwritten, so retry without a CAS.
			continue
		}
		// Publish the tail link before swinging the head, so a pop that wins
		// the new head never reads a torn chain.
		p.linkAt(tail).Store(old)
		if fl.CompareAndSwap(old, encode(head)) {
			return
		}
	}
}

// numFree returns the number of free chunks on class's freelist. It is not
// safe against concurrent mutation and is primarily intended as a helper in
// tests.
func (p *Pool) numFree(class int) int {
	n := 0
	for word := p.heads[class].Load(); word != wordEmpty && word != wordLocked; word = p.linkAt(decode(word)).Load() {
		n++
	}
	return n
}

// pop removes one chunk from the first non-empty freelist at or above the
// ideal class and returns its offset and the class it came from. Heads found
// locked or drained mid-pop cause a rescan from the ideal class. Only scans
// that find every class empty count against the retry budget; at the budget
// the pool is declared exhausted.
func (p *Pool) pop(ideal int) (off uint64, class int, err error) {
	for tries := 0; ; {
		class = ideal
		for class < len(p.classes) && p.heads[class].Load() == wordEmpty {
			class++
		}
		if class == len(p.classes) {
			tries++
			if tries >= p.maxRetries {
				return 0, 0, ErrPoolExhausted
			}
			continue
		}

		fl := &p.heads[class]
		old := fl.Load()
		if old == wordEmpty || old == wordLocked {
			continue
		}
		if !fl.CompareAndSwap(old, wordLocked) {
			continue
		}
		// The head is reserved: no push or pop may touch this freelist until
		// the swap below restores it, so reading the successor is safe.
		off = decode(old)
		next := p.linkAt(off).Load()
		if !fl.CompareAndSwap(wordLocked, next) {
			// Nothing may alter a reserved head; if something did, the pool
			// state is corrupt and continuing would hand out aliased memory.
			panic(fmt.Sprintf("mempool: freelist %d head mutated while reserved", class))
		}
		p.linkAt(off).Store(wordEmpty)
		return off, class, nil
	}
}
