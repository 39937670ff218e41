package resilience

import (
	"context"
	"errors"
	"time"
)

// Common bulkhead errors.
var (
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string
	// MaxConcurrent is the maximum number of slots held at once.
	MaxConcurrent int
	// MaxWait bounds how long Acquire waits for a slot. 0 waits until the
	// context is done.
	MaxWait time.Duration
	// OnAcquire is called when a slot is acquired.
	OnAcquire func(name string)
	// OnRelease is called when a slot is released.
	OnRelease func(name string)
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
	}
}

// Bulkhead bounds the number of concurrently held slots.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// TryAcquire takes a slot if one is free, without waiting.
func (b *Bulkhead) TryAcquire() bool {
	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return true
	default:
		return false
	}
}

// Acquire waits for a slot. It returns ErrBulkheadTimeout when MaxWait
// elapses first, or the context error when ctx is done first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.TryAcquire() {
		return nil
	}

	var timeout <-chan time.Time
	if b.config.MaxWait > 0 {
		timer := time.NewTimer(b.config.MaxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return nil
	case <-timeout:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by TryAcquire or Acquire.
func (b *Bulkhead) Release() {
	<-b.sem
	if b.config.OnRelease != nil {
		b.config.OnRelease(b.config.Name)
	}
}

func (b *Bulkhead) acquired() {
	if b.config.OnAcquire != nil {
		b.config.OnAcquire(b.config.Name)
	}
}

// Available returns the number of available slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the maximum number of slots.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
