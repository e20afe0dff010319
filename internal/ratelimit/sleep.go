package ratelimit

import "time"

// sleepMillis is a package variable so tests driving a fake clock can
// replace real sleeping with an immediate clock advance instead of
// waiting on wall-clock time.
var sleepMillis = func(ms int64) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
