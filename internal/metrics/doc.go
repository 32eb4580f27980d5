// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Gateway request counts, latencies and rate limiter waits
//   - Engine cycle durations, ranked pair counts and risk outcomes
//   - Orders placed, cancelled and skipped
//   - Stream quote updates and cycle record writes
package metrics
