// Package region reserves and releases the contiguous off-heap memory a
// pool manages. Memory comes from anonymous mmap, so chunk payloads live
// outside the Go heap and are never scanned by the garbage collector.
package region

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Map reserves a page-aligned anonymous region of n bytes, readable and
// writable and private to the process.
func Map(n int) ([]byte, error) {
	data, err := unix.Mmap(-1, 0, n,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot reserve %d bytes via mmap: %w", n, err)
	}
	return data, nil
}

// Unmap releases a region obtained from Map back to the operating system.
// The region must not be accessed afterwards.
func Unmap(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("cannot release region of %d bytes: %w", len(b), err)
	}
	return nil
}
