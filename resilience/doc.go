// Package resilience provides the flow-control primitives used by the drain
// helpers and pipeline operators.
//
//   - Bulkhead: bounds concurrently held slots (drain.ForEach in-flight limit)
//
//   - RateLimiter: token bucket (pipeline.Throttle, pipeline.RateLimit)
//
//     slots := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})
//     if !slots.TryAcquire() {
//     if err := slots.Acquire(ctx); err != nil {
//     return err
//     }
//     }
//     defer slots.Release()
package resilience
