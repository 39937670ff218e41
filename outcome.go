package powermap

import (
	"context"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/pull"
)

// Kind says what a transition decided for one upstream result.
type Kind uint8

const (
	// KindDone ends the output sequence.
	KindDone Kind = iota
	// KindSkip consumes the input without emitting.
	KindSkip
	// KindEmit emits Value.
	KindEmit
	// KindEmitMany emits every element of Values before pulling upstream again.
	KindEmitMany
)

func (k Kind) String() string {
	switch k {
	case KindDone:
		return "done"
	case KindSkip:
		return "skip"
	case KindEmit:
		return "emit"
	case KindEmitMany:
		return "emit_many"
	default:
		return "unknown"
	}
}

// Outcome is the decision a transition returns for one upstream result.
// The zero value is Done.
type Outcome[Out, S any] struct {
	Kind Kind
	// Value is the element emitted by KindEmit.
	Value Out
	// Values is the payload of KindEmitMany. It must be something
	// pull.Materialize accepts for Out. Setting it on KindEmit is an error.
	Values any
	// State replaces the instance state when HasState is set.
	State    S
	HasState bool
	// Last ends the sequence after this outcome is delivered; upstream is
	// not pulled again.
	Last bool
}

// Done ends the output sequence.
func Done[Out, S any]() Outcome[Out, S] {
	return Outcome[Out, S]{Kind: KindDone}
}

// Skip consumes the current input without emitting.
func Skip[Out, S any]() Outcome[Out, S] {
	return Outcome[Out, S]{Kind: KindSkip}
}

// Emit emits a single value.
func Emit[Out, S any](v Out) Outcome[Out, S] {
	return Outcome[Out, S]{Kind: KindEmit, Value: v}
}

// EmitMany emits every element of values, which may be a slice, an
// iter.Seq, a puller or anything else pull.Materialize accepts.
func EmitMany[Out, S any](values any) Outcome[Out, S] {
	return Outcome[Out, S]{Kind: KindEmitMany, Values: values}
}

// WithState returns o carrying s as the next state.
func (o Outcome[Out, S]) WithState(s S) Outcome[Out, S] {
	o.State, o.HasState = s, true
	return o
}

// AsLast returns o marked as the final outcome.
func (o Outcome[Out, S]) AsLast() Outcome[Out, S] {
	o.Last = true
	return o
}

// Transition maps one upstream result and the current state to an outcome,
// immediately or deferred. It is called with the done marker once upstream
// ends, which lets it flush buffered state. It keeps receiving the done
// marker on later pulls until it returns Done, a Skip, or an outcome
// marked AsLast. The state it receives must not be modified in place; a
// new state is returned with WithState.
type Transition[In, Out, S any] func(ctx context.Context, in pull.Result[In], state S) deferred.Maybe[Outcome[Out, S]]

// Sync adapts a plain function to a Transition that always answers
// immediately.
func Sync[In, Out, S any](fn func(in pull.Result[In], state S) (Outcome[Out, S], error)) Transition[In, Out, S] {
	return func(_ context.Context, in pull.Result[In], state S) deferred.Maybe[Outcome[Out, S]] {
		return deferred.Settle(fn(in, state))
	}
}
