package mempool

import "fmt"

const (
	KiB = 1024
	MiB = KiB * KiB
)

// linkSize is the number of leading bytes of a free chunk that hold its
// next-link word. Every size class must be at least this large and a
// multiple of it so link words stay 8-byte aligned.
const linkSize = 8

// ClassSizes returns a geometric series of chunk sizes starting at minSize
// and growing by factor until maxSize is exceeded. factor must be at least
// 2; the result is suitable for Config.Classes.
func ClassSizes(minSize, maxSize, factor int) []int {
	if factor < 2 {
		panic(fmt.Sprintf("mempool: class size growth factor must be at least 2, got %d", factor))
	}
	sizes := make([]int, 0, 10)
	for size := minSize; size <= maxSize; size *= factor {
		sizes = append(sizes, size)
	}
	return sizes
}

// classFor returns the index of the smallest size class that can hold n
// bytes, or -1 if n exceeds the largest class. The same lookup is used at
// allocation and deallocation time, so a size always resolves to the same
// class on both sides.
func (p *Pool) classFor(n int) int {
	for i, size := range p.classes {
		if n <= size {
			return i
		}
	}
	return -1
}

// Sizes returns the pool's size-class table, smallest to largest.
// The returned slice must not be modified.
func (p *Pool) Sizes() []int {
	return p.classes
}

// IsSupported reports whether size is an exact size-class size.
func (p *Pool) IsSupported(size int) bool {
	for _, s := range p.classes {
		if s == size {
			return true
		}
	}
	return false
}
