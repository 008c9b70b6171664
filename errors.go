package mempool

import "errors"

var (
	// ErrRequestTooLarge is returned by Alloc when the requested size exceeds
	// the largest configured size class. Detected before any freelist mutation.
	ErrRequestTooLarge = errors.New("mempool: requested size exceeds largest size class")

	// ErrPoolExhausted is returned by Alloc when no size class had chunks
	// available after the configured retry budget.
	ErrPoolExhausted = errors.New("mempool: no chunks available")

	// ErrAddressOutOfRange is returned by Free when the slice does not lie
	// fully within the pool's backing buffer.
	ErrAddressOutOfRange = errors.New("mempool: address outside backing buffer")

	// ErrChunkTooLarge is returned by Free when the slice length exceeds every
	// configured size class. Unreachable when freeing slices obtained from Alloc.
	ErrChunkTooLarge = errors.New("mempool: freed size exceeds largest size class")
)
