package instrument

import (
	"context"
	"time"

	"github.com/matt-riley/gatez"
)

// Multi fans every event out to several instrumenters in order.
type Multi []gatez.Instrumenter

func (m Multi) Check(ctx context.Context, feature string, result bool, gate string, elapsed time.Duration) {
	for _, in := range m {
		in.Check(ctx, feature, result, gate, elapsed)
	}
}

func (m Multi) Operation(ctx context.Context, op string, feature string, err error) {
	for _, in := range m {
		in.Operation(ctx, op, feature, err)
	}
}
