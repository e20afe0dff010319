package producer

import (
	"context"
	"time"
)

// sleepCtx sleeps for d milliseconds or until ctx is canceled, returning
// false in the latter case so Run can stop emitting promptly.
func sleepCtx(ctx context.Context, d int64) bool {
	t := time.NewTimer(time.Duration(d) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
