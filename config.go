package mempool

import (
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxRetries is the default starvation bound: the number of times an
// allocation rescans a fully empty class table before giving up with
// ErrPoolExhausted.
const DefaultMaxRetries = 100000

// ErrorMode selects how the pool reports failures.
type ErrorMode int

const (
	// ModeReturn propagates failures as error values. This is the default.
	ModeReturn ErrorMode = iota

	// ModeAbort logs a diagnostic and panics on any failure. Useful while
	// integrating, where an unnoticed nil chunk is worse than a crash.
	ModeAbort
)

func (m ErrorMode) String() string {
	switch m {
	case ModeReturn:
		return "return"
	case ModeAbort:
		return "abort"
	default:
		return fmt.Sprintf("ErrorMode(%d)", int(m))
	}
}

type Config struct {
	// Classes is the size-class table: the fixed set of chunk sizes the pool
	// hands out, ordered smallest to largest. Each class size must be a
	// multiple of the one before it, so an oversized chunk always splits into
	// an exact number of smaller chunks. Immutable once the pool is built.
	Classes []int

	// MaxRetries bounds how many times an allocation rescans the class table
	// after finding every freelist empty, before failing with
	// ErrPoolExhausted. Rescans caused by losing a race on a non-empty
	// freelist do not count against the budget. Note this conflates "truly
	// exhausted" with "every chunk was in flight on each scan"; the bound is
	// a liveness heuristic, not a guarantee. <= 0 means DefaultMaxRetries.
	MaxRetries int

	// Mode selects between returning failures as errors and aborting with a
	// diagnostic. Internal invariant violations panic regardless of Mode.
	Mode ErrorMode

	// Logger receives failure diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Observer receives allocation events for diagnostics. Nil disables
	// observation.
	Observer Observer
}

func DefaultConfig() Config {
	return Config{
		Classes:    ClassSizes(64, 64*KiB, 4),
		MaxRetries: DefaultMaxRetries,
	}
}

func (c Config) Validate() error {
	var errs []error
	if len(c.Classes) == 0 {
		return errors.New("invalid config: no size classes")
	}
	if first := c.Classes[0]; first < linkSize || first%linkSize != 0 {
		errs = append(
			errs,
			fmt.Errorf("invalid config: smallest class %d must be a positive multiple of %d", first, linkSize),
		)
	}
	for i := 1; i < len(c.Classes); i++ {
		prev, cur := c.Classes[i-1], c.Classes[i]
		if cur <= prev {
			errs = append(
				errs,
				fmt.Errorf("invalid config: classes must be strictly ascending, got %d after %d", cur, prev),
			)
		} else if cur%prev != 0 {
			errs = append(
				errs,
				fmt.Errorf("invalid config: class %d must be a multiple of class %d", cur, prev),
			)
		}
	}
	return errors.Join(errs...)
}
