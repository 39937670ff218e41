package pipeline

import (
	"time"

	"github.com/kbukum/powermap/ops"
)

// Throttle drops values that arrive faster than the given interval.
// Only the first value in each interval window is emitted; subsequent
// values within the same window are dropped.
func Throttle[T any](p *Pipeline[T], interval time.Duration) *Pipeline[T] {
	return Through(p, ops.Throttle[T](interval))
}

// RateLimit delays values so at most rate per second reach the next stage
// after an initial burst. Unlike Throttle nothing is dropped.
func RateLimit[T any](p *Pipeline[T], rate float64, burst int) *Pipeline[T] {
	return Through(p, ops.RateLimit[T](rate, burst))
}
