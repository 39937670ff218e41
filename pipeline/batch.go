package pipeline

import "github.com/kbukum/powermap/ops"

// Batch collects up to size values and emits them as a slice. The last
// batch holds whatever is left when the source ends. A size below one is
// treated as one.
//
// Named Batch so it reads apart from drain-side buffering.
func Batch[T any](p *Pipeline[T], size int) *Pipeline[[]T] {
	return Through(p, ops.Batch[T](size))
}
