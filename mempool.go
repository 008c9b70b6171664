// Package mempool implements a concurrent, size-classed memory pool over a
// single contiguous backing buffer. Chunks of a fixed set of sizes are
// handed out and reclaimed through per-class lock-free freelists, so many
// goroutines can allocate and free concurrently without a mutex and without
// touching the Go allocator in steady state. When a class runs dry, an
// oversized chunk from a larger class is split and the remainder seeds the
// smaller class.
package mempool

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/holmberd/go-mempool/internal/region"
)

// Allocator is the contract a chunk consumer embeds. *Pool implements it.
type Allocator interface {
	Alloc(n int) ([]byte, error) // Alloc returns a chunk holding n bytes.
	Free(b []byte) error         // Free returns a chunk obtained from Alloc.
	Sizes() []int                // Sizes returns the supported size classes.
}

// Pool is a size-classed allocator over one backing buffer. All methods
// except Seed and Close are safe for concurrent use.
type Pool struct {
	buf     []byte
	classes []int
	heads   []atomic.Uint64 // one tagged freelist head per size class
	mapped  bool            // buffer owned by the pool via internal/region

	maxRetries int
	mode       ErrorMode
	logger     *slog.Logger
	observer   Observer
}

var _ Allocator = (*Pool)(nil)

// New creates a pool over a caller-provided buffer. All freelists start
// empty; call Seed to register capacity before concurrent use begins.
func New(buf []byte, config Config) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(buf) < config.Classes[0] {
		return nil, fmt.Errorf(
			"mempool: buffer of %d bytes cannot hold the smallest class (%d)",
			len(buf), config.Classes[0],
		)
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%linkSize != 0 {
		return nil, fmt.Errorf("mempool: buffer base must be %d-byte aligned", linkSize)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := config.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Pool{
		buf:        buf,
		classes:    slices.Clone(config.Classes),
		heads:      make([]atomic.Uint64, len(config.Classes)),
		maxRetries: maxRetries,
		mode:       config.Mode,
		logger:     logger,
		observer:   observer,
	}, nil
}

// NewMapped creates a pool over a fresh anonymous mmap region of up to
// capacity bytes (rounded down to a multiple of the largest class) and
// seeds the whole region into the coarsest class. Close releases the region.
//
// Keeping the buffer off the Go heap means chunk payloads are never scanned
// by the garbage collector.
func NewMapped(capacity int, config Config) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	largest := config.Classes[len(config.Classes)-1]
	capacity -= capacity % largest
	if capacity <= 0 {
		return nil, fmt.Errorf(
			"mempool: capacity must hold at least one chunk of the largest class (%d)", largest,
		)
	}
	buf, err := region.Map(capacity)
	if err != nil {
		return nil, err
	}
	p, err := New(buf, config)
	if err != nil {
		region.Unmap(buf)
		return nil, err
	}
	p.mapped = true
	if err := p.Seed(0, largest, capacity/largest); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Seed registers count free chunks of the given class size starting at byte
// offset off, linked and pushed as a single batch. The offset must be
// aligned to the class size and the range must lie within the buffer.
// Seeding must complete before concurrent use of the pool begins.
func (p *Pool) Seed(off uint64, size, count int) error {
	class := -1
	for i, s := range p.classes {
		if s == size {
			class = i
			break
		}
	}
	if class < 0 {
		return fmt.Errorf("mempool: seed size %d is not a size class %v", size, p.classes)
	}
	if count <= 0 {
		return fmt.Errorf("mempool: seed count must be positive, got %d", count)
	}
	csize := uint64(size)
	if off%csize != 0 {
		return fmt.Errorf("mempool: seed offset %d not aligned to class size %d", off, size)
	}
	if off+csize*uint64(count) > uint64(len(p.buf)) {
		return fmt.Errorf(
			"mempool: seed range [%d,%d) outside buffer of %d bytes",
			off, off+csize*uint64(count), len(p.buf),
		)
	}
	for i := uint64(1); i < uint64(count); i++ {
		p.linkAt(off + (i-1)*csize).Store(encode(off + i*csize))
	}
	p.pushChain(class, off, off+uint64(count-1)*csize)
	return nil
}

// Alloc returns a chunk of at least n bytes as a slice with len and cap
// exactly n. The chunk belongs to the caller until passed back to Free.
// Failure means no memory was obtained and no pool state changed.
func (p *Pool) Alloc(n int) ([]byte, error) {
	if n <= 0 {
		panic(fmt.Sprintf("mempool: invalid allocation size %d", n))
	}
	ideal := p.classFor(n)
	if ideal < 0 {
		return nil, p.fail(ErrRequestTooLarge)
	}
	off, used, err := p.pop(ideal)
	if err != nil {
		return nil, p.fail(err)
	}
	if used > ideal {
		p.split(off, used, ideal)
	}
	p.observer.ObserveAlloc(off, n, ideal)
	end := off + uint64(n)
	return p.buf[off:end:end], nil
}

// split carves the chunk at off, taken from the used class, into chunks of
// the ideal class. The first sub-chunk stays with the caller; the remainder
// is linked into a chain and pushed back in one batch, so the leftover
// capacity is immediately reusable at the requested granularity.
func (p *Pool) split(off uint64, used, ideal int) {
	csize := uint64(p.classes[ideal])
	chunks := uint64(p.classes[used]) / csize
	for i := uint64(2); i < chunks; i++ {
		p.linkAt(off + (i-1)*csize).Store(encode(off + i*csize))
	}
	p.pushChain(ideal, off+csize, off+(chunks-1)*csize)
	p.observer.ObserveSplit(used, ideal, int(chunks-1))
}

// Free returns a chunk previously obtained from Alloc. The slice must be
// exactly the one Alloc returned: its address and length identify the chunk
// and its size class. Freeing nil is a no-op. Double frees are not detected
// (see Tracker). Failure means the deallocation was not applied.
func (p *Pool) Free(b []byte) error {
	if b == nil {
		return nil
	}
	start := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	base := uintptr(unsafe.Pointer(unsafe.SliceData(p.buf)))
	if start < base || start+uintptr(len(b)) > base+uintptr(len(p.buf)) {
		return p.fail(ErrAddressOutOfRange)
	}
	class := p.classFor(len(b))
	if class < 0 {
		return p.fail(ErrChunkTooLarge)
	}
	off := uint64(start - base)
	// Unregister with the observer before the push makes the chunk visible
	// to other allocators; once on the freelist it may be popped and
	// re-observed as an allocation at any moment.
	p.observer.ObserveFree(off, len(b), class)
	p.pushChain(class, off, off)
	return nil
}

// Close releases a region owned by the pool (NewMapped). The pool must not
// be used afterwards. Closing a pool built with New is a no-op.
func (p *Pool) Close() error {
	if !p.mapped || p.buf == nil {
		return nil
	}
	buf := p.buf
	p.buf = nil
	return region.Unmap(buf)
}

// fail reports err per the configured error mode: returned as a value, or
// logged and escalated to a panic under ModeAbort.
func (p *Pool) fail(err error) error {
	if p.mode == ModeAbort {
		p.logger.Error("aborting on pool failure", "error", err)
		panic(err)
	}
	return err
}
