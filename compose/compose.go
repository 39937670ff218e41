package compose

import "github.com/kbukum/powermap/pull"

// Identity returns a step that hands its upstream through unchanged.
func Identity[T any]() pull.Step[T, T] {
	return func(p pull.Puller[T]) pull.Puller[T] { return p }
}

// Pipe2 runs a, then b.
func Pipe2[A, B, C any](a pull.Step[A, B], b pull.Step[B, C]) pull.Step[A, C] {
	return func(p pull.Puller[A]) pull.Puller[C] {
		return b(a(p))
	}
}

// Pipe3 runs a, b, then c.
func Pipe3[A, B, C, D any](a pull.Step[A, B], b pull.Step[B, C], c pull.Step[C, D]) pull.Step[A, D] {
	return Pipe2(Pipe2(a, b), c)
}

// Pipe4 runs a, b, c, then d.
func Pipe4[A, B, C, D, E any](a pull.Step[A, B], b pull.Step[B, C], c pull.Step[C, D], d pull.Step[D, E]) pull.Step[A, E] {
	return Pipe2(Pipe3(a, b, c), d)
}

// Pipe5 runs a, b, c, d, then e.
func Pipe5[A, B, C, D, E, F any](a pull.Step[A, B], b pull.Step[B, C], c pull.Step[C, D], d pull.Step[D, E], e pull.Step[E, F]) pull.Step[A, F] {
	return Pipe2(Pipe4(a, b, c, d), e)
}

// Chain runs steps left to right. With no steps it is Identity. Nil steps
// are skipped.
func Chain[T any](steps ...pull.Step[T, T]) pull.Step[T, T] {
	return func(p pull.Puller[T]) pull.Puller[T] {
		for _, step := range steps {
			if step != nil {
				p = step(p)
			}
		}
		return p
	}
}

// Compose2 is Pipe2 with its arguments in mathematical order: the result
// applies inner first, then outer.
func Compose2[A, B, C any](outer pull.Step[B, C], inner pull.Step[A, B]) pull.Step[A, C] {
	return Pipe2(inner, outer)
}

// Apply runs step over p.
func Apply[In, Out any](p pull.Puller[In], step pull.Step[In, Out]) pull.Puller[Out] {
	return step(p)
}
