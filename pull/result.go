package pull

import "fmt"

// Result is one step of a pull sequence: a value, or the done marker.
type Result[T any] struct {
	value T
	ok    bool
}

// Done returns the end-of-sequence marker.
func Done[T any]() Result[T] { return Result[T]{} }

// Value wraps v as a produced element.
func Value[T any](v T) Result[T] { return Result[T]{value: v, ok: true} }

// IsDone reports whether the sequence has ended.
func (r Result[T]) IsDone() bool { return !r.ok }

// Get returns the value and whether one was produced.
func (r Result[T]) Get() (T, bool) { return r.value, r.ok }

// Value returns the produced value, or the zero value at Done.
func (r Result[T]) Value() T { return r.value }

func (r Result[T]) String() string {
	if !r.ok {
		return "done"
	}
	return fmt.Sprintf("value(%v)", r.value)
}
