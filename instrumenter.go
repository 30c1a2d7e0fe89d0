package gatez

import (
	"context"
	"time"
)

// Instrumenter observes feature checks and storage operations. The gate name
// passed to Check is the first gate that opened, or empty when the check
// resolved to false. Implementations must be safe for concurrent use.
//
// Ready-made implementations live in the instrument package.
type Instrumenter interface {
	Check(ctx context.Context, feature string, result bool, gate string, elapsed time.Duration)
	Operation(ctx context.Context, op string, feature string, err error)
}

type noopInstrumenter struct{}

func (noopInstrumenter) Check(context.Context, string, bool, string, time.Duration) {}
func (noopInstrumenter) Operation(context.Context, string, string, error)           {}
